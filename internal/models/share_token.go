package models

import "time"

const (
	ShareItemFile   = "file"
	ShareItemFolder = "folder"
)

type ShareToken struct {
	Token     string     `json:"token"`
	ItemType  string     `json:"item_type"`
	ItemID    string     `json:"item_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
