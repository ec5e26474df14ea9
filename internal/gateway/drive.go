package gateway

import (
	"context"
	"drivemirror/internal/model"
	"fmt"
	"time"

	"google.golang.org/api/drive/v3"
)

const (
	listPageSize = 1000
	itemFields   = "id, name, mimeType, parents"
)

// Drive implements Gateway on top of the Drive v3 API. Shared drives are
// always included.
type Drive struct {
	svc      *drive.Service
	attempts int
	pause    time.Duration
}

func NewDrive(svc *drive.Service, attempts int, pause time.Duration) *Drive {
	if attempts < 1 {
		attempts = 1
	}

	return &Drive{
		svc:      svc,
		attempts: attempts,
		pause:    pause,
	}
}

func (d *Drive) ListChildren(ctx context.Context, folderID string) ([]model.DriveItem, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeName(folderID))

	var items []model.DriveItem
	err := invoke(ctx, "list", d.attempts, d.pause, func(ctx context.Context) error {
		items = items[:0]
		return d.svc.Files.List().
			Q(q).
			Fields("nextPageToken, files(id, name, mimeType)").
			PageSize(listPageSize).
			IncludeItemsFromAllDrives(true).
			SupportsAllDrives(true).
			Pages(ctx, func(list *drive.FileList) error {
				for _, f := range list.Files {
					items = append(items, convert(f))
				}
				return nil
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}

	return items, nil
}

func (d *Drive) CopyFile(ctx context.Context, fileID, name, destFolderID string) (model.DriveItem, error) {
	body := &drive.File{
		Name:    name,
		Parents: []string{destFolderID},
	}

	var copied *drive.File
	err := invoke(ctx, "copy", d.attempts, d.pause, func(ctx context.Context) error {
		var err error
		copied, err = d.svc.Files.Copy(fileID, body).
			Fields(itemFields).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return model.DriveItem{}, fmt.Errorf("failed to copy file %s: %w", name, err)
	}

	return convert(copied), nil
}

// EnsureFolder looks the folder up before creating it, inside the same retry
// unit, so a create that timed out but succeeded is found on the next attempt.
func (d *Drive) EnsureFolder(ctx context.Context, name, parentID string) (FolderResult, error) {
	var result FolderResult
	err := invoke(ctx, "ensure_folder", d.attempts, d.pause, func(ctx context.Context) error {
		found, err := d.findFolders(ctx, name, parentID)
		if err != nil {
			return err
		}

		if len(found) > 0 {
			result = FolderResult{ID: found[0].Id, Matches: len(found)}
			return nil
		}

		created, err := d.svc.Files.Create(&drive.File{
			Name:     name,
			MimeType: model.FolderMimeType,
			Parents:  []string{parentID},
		}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
		if err != nil {
			return err
		}

		result = FolderResult{ID: created.Id, Created: true}
		return nil
	})
	if err != nil {
		return FolderResult{}, fmt.Errorf("failed to find or create folder %s: %w", name, err)
	}

	return result, nil
}

func (d *Drive) findFolders(ctx context.Context, name, parentID string) ([]*drive.File, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		escapeName(name), escapeName(parentID), model.FolderMimeType)

	list, err := d.svc.Files.List().
		Q(q).
		Fields("files(id, name)").
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	return list.Files, nil
}

// Delete removes an object permanently. An object that is already gone is
// not an error.
func (d *Drive) Delete(ctx context.Context, id string) error {
	err := invoke(ctx, "delete", d.attempts, d.pause, func(ctx context.Context) error {
		return d.svc.Files.Delete(id).SupportsAllDrives(true).Context(ctx).Do()
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}

	return nil
}

func (d *Drive) CreatePermission(ctx context.Context, id, email string, role model.Role) (string, error) {
	perm := &drive.Permission{
		Type:         "user",
		Role:         string(role),
		EmailAddress: email,
	}

	var created *drive.Permission
	err := invoke(ctx, "create_permission", d.attempts, d.pause, func(ctx context.Context) error {
		call := d.svc.Permissions.Create(id, perm).
			Fields("id").
			SupportsAllDrives(true).
			Context(ctx)
		if role == model.RoleOwner {
			call = call.TransferOwnership(true)
		}

		var err error
		created, err = call.Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to set permission on %s: %w", id, err)
	}

	return created.Id, nil
}

func (d *Drive) Get(ctx context.Context, id string) (model.DriveItem, error) {
	var f *drive.File
	err := invoke(ctx, "get", d.attempts, d.pause, func(ctx context.Context) error {
		var err error
		f, err = d.svc.Files.Get(id).
			Fields(itemFields).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return model.DriveItem{}, fmt.Errorf("failed to get %s: %w", id, err)
	}

	return convert(f), nil
}

func convert(f *drive.File) model.DriveItem {
	if f == nil {
		return model.DriveItem{}
	}

	return model.DriveItem{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
	}
}
