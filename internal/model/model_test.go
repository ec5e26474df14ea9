package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyMapClone(t *testing.T) {
	orig := CopyMap{"a": {ID: "id-a", Name: "a"}}
	clone := orig.Clone()
	clone["b"] = CopyEntry{ID: "id-b", Name: "b"}

	assert.Len(t, orig, 1)
	assert.Len(t, clone, 2)
	assert.NotNil(t, CopyMap(nil).Clone())
}

func TestPathsDeepestFirst(t *testing.T) {
	m := CopyMap{
		"docs":           {},
		"docs/a.txt":     {},
		"docs/sub":       {},
		"docs/sub/b.txt": {},
		"top.txt":        {},
	}

	assert.Equal(t, []string{
		"docs/sub/b.txt",
		"docs/a.txt",
		"docs/sub",
		"docs",
		"top.txt",
	}, m.PathsDeepestFirst())
}

func TestJoinPath(t *testing.T) {
	assert.Equal(t, "name", JoinPath("", "name"))
	assert.Equal(t, "base/name", JoinPath("base", "name"))
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"reader":   RoleReader,
		" Writer ": RoleWriter,
		"OWNER":    RoleOwner,
	} {
		got, err := ParseRole(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseRole("commenter")
	assert.ErrorIs(t, err, ErrInvalidRole)
}
