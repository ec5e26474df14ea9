package model

import "time"

type MonitorTask struct {
	SourceFolderID string    `json:"source_folder_id"`
	DestFolderID   string    `json:"dest_folder_id"`
	CopiedFiles    CopyMap   `json:"copied_files"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

func (t MonitorTask) Matches(src, dst string) bool {
	return t.SourceFolderID == src && t.DestFolderID == dst
}

type TaskSnapshot struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	CopiedCount int       `json:"copied_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t MonitorTask) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		Source:      t.SourceFolderID,
		Destination: t.DestFolderID,
		CopiedCount: len(t.CopiedFiles),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
