// Package repository persists monitor tasks and the change log, either as
// flat JSON documents or in a sqlite database.
package repository

import (
	"drivemirror/internal/config"
	"drivemirror/internal/db"
	"drivemirror/internal/model"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

type TaskRepository interface {
	GetAll() ([]model.MonitorTask, error)
	Get(src, dst string) (model.MonitorTask, bool, error)
	// Add stores task unless one with the same source and destination
	// exists, in which case it reports false.
	Add(task model.MonitorTask) (bool, error)
	Remove(src, dst string) (bool, error)
	// UpdateCopyMap replaces the stored map of an existing task when copied
	// is strictly larger. It reports whether anything was written.
	UpdateCopyMap(src, dst string, copied model.CopyMap, at time.Time) (bool, error)
	Clear() error
}

type ChangeLogRepository interface {
	Append(rec model.ChangeRecord) error
	GetAll() ([]model.ChangeRecord, error)
}

type Store struct {
	Tasks   TaskRepository
	Changes ChangeLogRepository
	close   func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open builds the repositories selected by cfg.StoreBackend.
func Open(cfg *config.Config) (*Store, error) {
	switch cfg.StoreBackend {
	case config.BackendJSON:
		fs := afero.NewOsFs()
		return &Store{
			Tasks:   NewJSONTaskRepository(fs, cfg.TasksFile),
			Changes: NewJSONChangeLogRepository(fs, cfg.ChangesFile),
		}, nil

	case config.BackendSQLite:
		gdb, err := db.Open(cfg.DBPath, &taskRow{}, &changeRow{})
		if err != nil {
			return nil, err
		}

		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql db: %w", err)
		}

		return &Store{
			Tasks:   NewSQLTaskRepository(gdb),
			Changes: NewSQLChangeLogRepository(gdb),
			close:   sqlDB.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}
