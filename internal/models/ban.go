package models

import "time"

type Ban struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Reason    string     `json:"reason"`
	Expires   *time.Time `json:"expires,omitempty"` // nil = permanent
	AdminID   int64      `json:"admin_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the ban is still in force at now.
func (b *Ban) Active(now time.Time) bool {
	return b.Expires == nil || b.Expires.After(now)
}
