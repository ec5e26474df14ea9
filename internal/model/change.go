package model

import "time"

type Operation string

const (
	OpCopy           Operation = "copy"
	OpSetPermissions Operation = "setpermissions"
	OpCancel         Operation = "cancel"
)

type ChangeRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Operation      Operation `json:"operation"`
	FileName       string    `json:"file_name"`
	FileID         string    `json:"file_id"`
	SourceFolderID string    `json:"source_folder_id"`
	DestFolderID   string    `json:"dest_folder_id"`
	Comment        string    `json:"comment"`
}
