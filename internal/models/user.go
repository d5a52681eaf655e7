package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID            int64      `json:"id"`
	DiscordID     string     `json:"discord_id"`
	Username      string     `json:"username"`
	Avatar        string     `json:"avatar,omitempty"`
	Coins         int64      `json:"coins"`
	Wins          int64      `json:"wins"`
	Losses        int64      `json:"losses"`
	MatchesPlayed int64      `json:"matches_played"`
	Role          Role       `json:"role"`
	IsBanned      bool       `json:"is_banned"`
	BanExpires    *time.Time `json:"ban_expires,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     time.Time  `json:"last_login"`
}

// Caller is the authenticated identity attached to every request by the
// auth middleware. The core trusts it; authentication happens upstream.
type Caller struct {
	UserID    int64
	DiscordID string
	Role      Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
