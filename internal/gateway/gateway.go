// Package gateway is the boundary to the cloud drive: listing, copying,
// deleting, sharing and metadata lookups by object id.
package gateway

import (
	"context"
	"drivemirror/internal/model"
)

// FolderResult reports whether EnsureFolder reused an existing folder or
// created a new one. Matches is the number of same-named folders found; the
// first one reported by the drive is reused.
type FolderResult struct {
	ID      string
	Created bool
	Matches int
}

type Gateway interface {
	ListChildren(ctx context.Context, folderID string) ([]model.DriveItem, error)
	CopyFile(ctx context.Context, fileID, name, destFolderID string) (model.DriveItem, error)
	EnsureFolder(ctx context.Context, name, parentID string) (FolderResult, error)
	Delete(ctx context.Context, id string) error
	CreatePermission(ctx context.Context, id, email string, role model.Role) (string, error)
	Get(ctx context.Context, id string) (model.DriveItem, error)
}
