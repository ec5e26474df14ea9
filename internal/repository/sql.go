package repository

import (
	"drivemirror/internal/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

type taskRow struct {
	ID          uint          `gorm:"primaryKey"`
	Source      string        `gorm:"not null;uniqueIndex:idx_task_pair"`
	Dest        string        `gorm:"not null;uniqueIndex:idx_task_pair"`
	CopiedFiles model.CopyMap `gorm:"type:text;serializer:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRow) TableName() string { return "monitor_tasks" }

func (r taskRow) toModel() model.MonitorTask {
	copied := r.CopiedFiles
	if copied == nil {
		copied = model.CopyMap{}
	}

	return model.MonitorTask{
		SourceFolderID: r.Source,
		DestFolderID:   r.Dest,
		CopiedFiles:    copied,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type changeRow struct {
	ID             uint      `gorm:"primaryKey"`
	Timestamp      time.Time `gorm:"not null;index"`
	Operation      string    `gorm:"not null"`
	FileName       string
	FileID         string
	SourceFolderID string
	DestFolderID   string
	Comment        string
}

func (changeRow) TableName() string { return "change_records" }

type SQLTaskRepository struct {
	db *gorm.DB
}

func NewSQLTaskRepository(db *gorm.DB) *SQLTaskRepository {
	return &SQLTaskRepository{db: db}
}

func (r *SQLTaskRepository) GetAll() ([]model.MonitorTask, error) {
	var rows []taskRow
	if err := r.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	tasks := make([]model.MonitorTask, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}

	return tasks, nil
}

func (r *SQLTaskRepository) Get(src, dst string) (model.MonitorTask, bool, error) {
	var row taskRow
	err := r.db.Where("source = ? AND dest = ?", src, dst).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.MonitorTask{}, false, nil
	}
	if err != nil {
		return model.MonitorTask{}, false, err
	}

	return row.toModel(), true, nil
}

func (r *SQLTaskRepository) Add(task model.MonitorTask) (bool, error) {
	added := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&taskRow{}).
			Where("source = ? AND dest = ?", task.SourceFolderID, task.DestFolderID).
			Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return nil
		}

		copied := task.CopiedFiles
		if copied == nil {
			copied = model.CopyMap{}
		}

		row := taskRow{
			Source:      task.SourceFolderID,
			Dest:        task.DestFolderID,
			CopiedFiles: copied,
			CreatedAt:   task.CreatedAt,
			UpdatedAt:   task.UpdatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		added = true
		return nil
	})

	return added, err
}

func (r *SQLTaskRepository) Remove(src, dst string) (bool, error) {
	res := r.db.Where("source = ? AND dest = ?", src, dst).Delete(&taskRow{})
	return res.RowsAffected > 0, res.Error
}

func (r *SQLTaskRepository) UpdateCopyMap(src, dst string, copied model.CopyMap, at time.Time) (bool, error) {
	updated := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var row taskRow
		err := tx.Where("source = ? AND dest = ?", src, dst).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if len(copied) <= len(row.CopiedFiles) {
			return nil
		}

		row.CopiedFiles = copied
		row.UpdatedAt = at
		if err := tx.Save(&row).Error; err != nil {
			return err
		}

		updated = true
		return nil
	})

	return updated, err
}

func (r *SQLTaskRepository) Clear() error {
	return r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&taskRow{}).Error
}

type SQLChangeLogRepository struct {
	db *gorm.DB
}

func NewSQLChangeLogRepository(db *gorm.DB) *SQLChangeLogRepository {
	return &SQLChangeLogRepository{db: db}
}

func (r *SQLChangeLogRepository) Append(rec model.ChangeRecord) error {
	return r.db.Create(&changeRow{
		Timestamp:      rec.Timestamp,
		Operation:      string(rec.Operation),
		FileName:       rec.FileName,
		FileID:         rec.FileID,
		SourceFolderID: rec.SourceFolderID,
		DestFolderID:   rec.DestFolderID,
		Comment:        rec.Comment,
	}).Error
}

func (r *SQLChangeLogRepository) GetAll() ([]model.ChangeRecord, error) {
	var rows []changeRow
	if err := r.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]model.ChangeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.ChangeRecord{
			Timestamp:      row.Timestamp,
			Operation:      model.Operation(row.Operation),
			FileName:       row.FileName,
			FileID:         row.FileID,
			SourceFolderID: row.SourceFolderID,
			DestFolderID:   row.DestFolderID,
			Comment:        row.Comment,
		})
	}

	return records, nil
}
