package repository

import (
	"bytes"
	"drivemirror/internal/logger"
	"drivemirror/internal/model"
	"drivemirror/internal/util"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// jsonDoc is a JSON array of records kept in one file. Every read loads the
// whole file and every mutation rewrites it. mu serializes mutations made
// through this process; other processes writing the same file can still race.
type jsonDoc[T any] struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// load returns an empty list when the file is missing or unreadable.
func (d *jsonDoc[T]) load() []T {
	b, err := afero.ReadFile(d.fs, d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Log.Warn("failed to read state file",
				zap.String("path", d.path),
				zap.Error(err))
		}
		return []T{}
	}

	var records []T
	if err := json.Unmarshal(b, &records); err != nil {
		logger.Log.Warn("failed to parse state file, treating it as empty",
			zap.String("path", d.path),
			zap.Error(err))
		return []T{}
	}

	return records
}

func (d *jsonDoc[T]) save(records []T) error {
	if records == nil {
		records = []T{}
	}

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.path, err)
	}

	if err := util.AtomicWrite(d.fs, d.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("failed to save %s: %w", d.path, err)
	}

	return nil
}

type JSONTaskRepository struct {
	doc jsonDoc[model.MonitorTask]
}

func NewJSONTaskRepository(fs afero.Fs, path string) *JSONTaskRepository {
	return &JSONTaskRepository{doc: jsonDoc[model.MonitorTask]{fs: fs, path: path}}
}

func (r *JSONTaskRepository) GetAll() ([]model.MonitorTask, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.doc.load(), nil
}

func (r *JSONTaskRepository) Get(src, dst string) (model.MonitorTask, bool, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	for _, t := range r.doc.load() {
		if t.Matches(src, dst) {
			return t, true, nil
		}
	}

	return model.MonitorTask{}, false, nil
}

func (r *JSONTaskRepository) Add(task model.MonitorTask) (bool, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	tasks := r.doc.load()
	for _, t := range tasks {
		if t.Matches(task.SourceFolderID, task.DestFolderID) {
			return false, nil
		}
	}

	if task.CopiedFiles == nil {
		task.CopiedFiles = model.CopyMap{}
	}

	if err := r.doc.save(append(tasks, task)); err != nil {
		return false, err
	}

	return true, nil
}

func (r *JSONTaskRepository) Remove(src, dst string) (bool, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	tasks := r.doc.load()
	kept := tasks[:0]
	removed := false
	for _, t := range tasks {
		if t.Matches(src, dst) {
			removed = true
			continue
		}
		kept = append(kept, t)
	}

	if !removed {
		return false, nil
	}

	if err := r.doc.save(kept); err != nil {
		return false, err
	}

	return true, nil
}

func (r *JSONTaskRepository) UpdateCopyMap(src, dst string, copied model.CopyMap, at time.Time) (bool, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	tasks := r.doc.load()
	for i, t := range tasks {
		if !t.Matches(src, dst) {
			continue
		}

		if len(copied) <= len(t.CopiedFiles) {
			return false, nil
		}

		tasks[i].CopiedFiles = copied
		tasks[i].UpdatedAt = at
		if err := r.doc.save(tasks); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

func (r *JSONTaskRepository) Clear() error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.doc.save(nil)
}

type JSONChangeLogRepository struct {
	doc jsonDoc[model.ChangeRecord]
}

func NewJSONChangeLogRepository(fs afero.Fs, path string) *JSONChangeLogRepository {
	return &JSONChangeLogRepository{doc: jsonDoc[model.ChangeRecord]{fs: fs, path: path}}
}

func (r *JSONChangeLogRepository) Append(rec model.ChangeRecord) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.doc.save(append(r.doc.load(), rec))
}

func (r *JSONChangeLogRepository) GetAll() ([]model.ChangeRecord, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()
	return r.doc.load(), nil
}
