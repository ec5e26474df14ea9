// Package copier mirrors a source folder tree into a destination folder,
// copying only what the copy map does not already record.
package copier

import (
	"context"
	"drivemirror/internal/gateway"
	"drivemirror/internal/logger"
	"drivemirror/internal/metrics"
	"drivemirror/internal/model"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrNoCopyID = errors.New("no id returned for copied file")

// CopyNewItems walks srcID recursively and creates under dstID every folder
// and file whose relative path is missing from copied. copied is updated in
// place and returned. Paths already present are never copied again, which
// makes repeated calls with the returned map incremental.
//
// When the walk stops on an error the map holds everything created up to
// that point and is returned together with the error.
func CopyNewItems(ctx context.Context, gw gateway.Gateway, srcID, dstID string, copied model.CopyMap, basePath string) (model.CopyMap, error) {
	if copied == nil {
		copied = model.CopyMap{}
	}

	items, err := gw.ListChildren(ctx, srcID)
	if err != nil {
		return copied, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return copied, err
		}

		currentPath := model.JoinPath(basePath, item.Name)

		if item.IsFolder() {
			folderID, err := resolveFolder(ctx, gw, item.Name, dstID, currentPath, copied)
			if err != nil {
				return copied, err
			}

			if _, err := CopyNewItems(ctx, gw, item.ID, folderID, copied, currentPath); err != nil {
				return copied, err
			}
			continue
		}

		if copied.Has(currentPath) {
			continue
		}

		newFile, err := gw.CopyFile(ctx, item.ID, item.Name, dstID)
		if err != nil {
			return copied, err
		}

		if newFile.ID == "" {
			return copied, fmt.Errorf("%w: %s", ErrNoCopyID, currentPath)
		}

		copied[currentPath] = model.CopyEntry{ID: newFile.ID, Name: item.Name}
		metrics.RecordFileCopied()

		logger.Log.Debug("file copied",
			zap.String("path", currentPath),
			zap.String("id", newFile.ID))
	}

	return copied, nil
}

func resolveFolder(ctx context.Context, gw gateway.Gateway, name, dstID, currentPath string, copied model.CopyMap) (string, error) {
	if entry, ok := copied[currentPath]; ok {
		return entry.ID, nil
	}

	res, err := gw.EnsureFolder(ctx, name, dstID)
	if err != nil {
		return "", err
	}

	switch {
	case res.Created:
		metrics.RecordFolderCreated()
	case res.Matches > 1:
		metrics.RecordFolderReused()
		logger.Log.Warn("several destination folders share this name, reusing the first",
			zap.String("path", currentPath),
			zap.String("parent", dstID),
			zap.Int("matches", res.Matches),
			zap.String("id", res.ID))
	default:
		metrics.RecordFolderReused()
	}

	copied[currentPath] = model.CopyEntry{ID: res.ID, Name: name}
	return res.ID, nil
}
