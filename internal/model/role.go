package model

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleReader Role = "reader"
	RoleWriter Role = "writer"
	RoleOwner  Role = "owner"
)

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleReader, RoleWriter, RoleOwner:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}
