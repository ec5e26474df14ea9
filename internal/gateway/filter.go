package gateway

import (
	"context"
	"drivemirror/internal/logger"
	"drivemirror/internal/model"
	"path"

	"go.uber.org/zap"
)

// Filtered hides children whose names match any of the ignore patterns
// (path.Match syntax) from ListChildren. Every other call goes straight to
// the wrapped gateway.
type Filtered struct {
	Gateway
	ignore []string
}

// WithIgnore returns gw unchanged when patterns is empty.
func WithIgnore(gw Gateway, patterns []string) Gateway {
	if len(patterns) == 0 {
		return gw
	}

	return &Filtered{Gateway: gw, ignore: patterns}
}

func (f *Filtered) ListChildren(ctx context.Context, folderID string) ([]model.DriveItem, error) {
	items, err := f.Gateway.ListChildren(ctx, folderID)
	if err != nil {
		return nil, err
	}

	kept := items[:0]
	for _, item := range items {
		if f.shouldIgnore(item.Name) {
			logger.Log.Debug("ignoring drive item",
				zap.String("name", item.Name),
				zap.String("id", item.ID))
			continue
		}
		kept = append(kept, item)
	}

	return kept, nil
}

func (f *Filtered) shouldIgnore(name string) bool {
	for _, pattern := range f.ignore {
		matched, err := path.Match(pattern, name)
		if err == nil && matched {
			return true
		}
	}

	return false
}
