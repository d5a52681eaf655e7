package models

import "time"

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

type Report struct {
	ID         int64        `json:"id"`
	MatchID    int64        `json:"match_id"`
	ReporterID int64        `json:"reporter_id"`
	AccusedID  int64        `json:"accused_id"`
	Status     ReportStatus `json:"status"`
	Evidence   string       `json:"evidence,omitempty"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	ResolvedBy *int64       `json:"resolved_by,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}
