package gateway

import (
	"context"
	"drivemirror/internal/model"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func newTestDrive(t *testing.T, attempts int, handler http.HandlerFunc) *Drive {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	return NewDrive(svc, attempts, 0)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": code, "message": http.StatusText(code)},
	})
}

func TestListChildrenFollowsPages(t *testing.T) {
	d := newTestDrive(t, 3, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "'src' in parents and trashed = false", r.URL.Query().Get("q"))
		assert.Equal(t, "true", r.URL.Query().Get("supportsAllDrives"))
		assert.Equal(t, "true", r.URL.Query().Get("includeItemsFromAllDrives"))

		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, http.StatusOK, map[string]any{
				"nextPageToken": "p2",
				"files": []map[string]string{
					{"id": "f1", "name": "a.txt", "mimeType": "text/plain"},
				},
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"files": []map[string]string{
				{"id": "d1", "name": "docs", "mimeType": model.FolderMimeType},
			},
		})
	})

	items, err := d.ListChildren(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.txt", items[0].Name)
	assert.False(t, items[0].IsFolder())
	assert.Equal(t, "d1", items[1].ID)
	assert.True(t, items[1].IsFolder())
}

func TestCopyFileRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	d := newTestDrive(t, 3, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/src1/copy", r.URL.Path)
		if calls.Add(1) < 3 {
			writeError(w, http.StatusServiceUnavailable)
			return
		}

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"parents":["dst"]`)
		writeJSON(w, http.StatusOK, map[string]string{"id": "new1", "name": "a.txt"})
	})

	item, err := d.CopyFile(context.Background(), "src1", "a.txt", "dst")
	require.NoError(t, err)
	assert.Equal(t, "new1", item.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCopyFileGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	d := newTestDrive(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusInternalServerError)
	})

	_, err := d.CopyFile(context.Background(), "src1", "a.txt", "dst")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	apiErr, ok := errors.AsType[*googleapi.Error](err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
}

func TestPermanentErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	d := newTestDrive(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusBadRequest)
	})

	_, err := d.Get(context.Background(), "x1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureFolderReusesExisting(t *testing.T) {
	d := newTestDrive(t, 1, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method, "no folder should be created")
		assert.Contains(t, r.URL.Query().Get("q"), `name = 'it\'s' and 'parent' in parents`)
		writeJSON(w, http.StatusOK, map[string]any{
			"files": []map[string]string{{"id": "first"}, {"id": "second"}},
		})
	})

	res, err := d.EnsureFolder(context.Background(), "it's", "parent")
	require.NoError(t, err)
	assert.Equal(t, FolderResult{ID: "first", Matches: 2}, res)
}

func TestEnsureFolderCreatesMissing(t *testing.T) {
	d := newTestDrive(t, 1, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"files": []any{}})
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.True(t, strings.Contains(string(body), model.FolderMimeType))
			writeJSON(w, http.StatusOK, map[string]string{"id": "made"})
		}
	})

	res, err := d.EnsureFolder(context.Background(), "docs", "parent")
	require.NoError(t, err)
	assert.Equal(t, FolderResult{ID: "made", Created: true}, res)
}

func TestDeleteTreatsNotFoundAsDone(t *testing.T) {
	d := newTestDrive(t, 3, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeError(w, http.StatusNotFound)
	})

	assert.NoError(t, d.Delete(context.Background(), "gone123"))
}

func TestCreatePermissionOwnerTransfersOwnership(t *testing.T) {
	d := newTestDrive(t, 1, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/obj1/permissions", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("transferOwnership"))

		var perm drive.Permission
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&perm))
		assert.Equal(t, "user", perm.Type)
		assert.Equal(t, "owner", perm.Role)
		assert.Equal(t, "a@b.com", perm.EmailAddress)

		writeJSON(w, http.StatusOK, map[string]string{"id": "perm1"})
	})

	id, err := d.CreatePermission(context.Background(), "obj1", "a@b.com", model.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, "perm1", id)
}

func TestUndecodableResponseIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	d := newTestDrive(t, 3, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := d.Get(context.Background(), "x1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureFolderLookupFailure(t *testing.T) {
	var creates atomic.Int32
	d := newTestDrive(t, 1, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			creates.Add(1)
		}
		writeError(w, http.StatusNotFound)
	})

	_, err := d.EnsureFolder(context.Background(), "docs", "parent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to find or create folder docs")
	assert.Zero(t, creates.Load())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&url.Error{Op: "Get", URL: "https://www.googleapis.com", Err: errors.New("connection reset")}))
	assert.True(t, isTransient(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}))
	assert.False(t, isTransient(errors.New("unexpected response shape")))
	assert.False(t, isTransient(fmt.Errorf("decode: %w", &json.SyntaxError{Offset: 3})))
	assert.True(t, isTransient(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, isTransient(&googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
	}))
	assert.False(t, isTransient(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isTransient(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, isTransient(context.Canceled))
}
