package model

const FolderMimeType = "application/vnd.google-apps.folder"

// DriveItem is a snapshot of one object as reported by a single gateway call.
type DriveItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Parents  []string `json:"parents,omitempty"`
}

func (i DriveItem) IsFolder() bool {
	return i.MimeType == FolderMimeType
}
