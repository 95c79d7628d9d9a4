package models

import "time"

type Folder struct {
	ID           string    `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	ParentID     *string   `json:"parent_id"`
	Name         string    `json:"name"`
	RelativePath string    `json:"relative_path"`
	IsPublic     bool      `json:"is_public"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at"`
}
