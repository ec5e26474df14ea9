package gateway

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

func escapeName(name string) string {
	name = strings.ReplaceAll(name, `\`, `\\`)
	return strings.ReplaceAll(name, "'", `\'`)
}

func isNotFound(err error) bool {
	if apiErr, ok := errors.AsType[*googleapi.Error](err); ok {
		return apiErr.Code == http.StatusNotFound
	}

	return false
}
