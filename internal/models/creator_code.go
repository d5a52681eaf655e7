package models

import "time"

type CreatorCode struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	CreatorID int64     `json:"creator_id"`
	Uses      int64     `json:"uses"`
	CreatedAt time.Time `json:"created_at"`
}
