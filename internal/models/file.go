package models

import "time"

type File struct {
	ID           string    `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	FolderID     *string   `json:"folder_id"`
	Name         string    `json:"name"`
	RelativePath string    `json:"relative_path"`
	SizeBytes    int64     `json:"size_bytes"`
	MimeType     *string   `json:"mime_type,omitempty"`
	IsPublic     bool      `json:"is_public"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}
