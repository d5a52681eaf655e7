package models

import "time"

type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

const (
	MinEntryFee   = 5
	MinMaxPlayers = 2
	MaxMaxPlayers = 16
)

type Match struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	EntryFee     int64       `json:"entry_fee"`
	MaxPlayers   int         `json:"max_players"`
	PrizePool    int64       `json:"prize_pool"`
	IsTournament bool        `json:"is_tournament"`
	CreatorID    int64       `json:"creator_id"`
	WinnerID     *int64      `json:"winner_id,omitempty"`
	Status       MatchStatus `json:"status"`
	Players      []Player    `json:"players,omitempty"`
	Votes        []Vote      `json:"votes,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Player struct {
	UserID   int64     `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

type Vote struct {
	VoterID  int64     `json:"voter_id"`
	WinnerID int64     `json:"winner_id"`
	VotedAt  time.Time `json:"voted_at"`
}

// EntryCost is what a single player pays to get in; tournaments double it.
func (m *Match) EntryCost() int64 {
	if m.IsTournament {
		return m.EntryFee * 2
	}
	return m.EntryFee
}

func (m *Match) HasPlayer(userID int64) bool {
	for _, p := range m.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (m *Match) HasVoteFrom(voterID int64) bool {
	for _, v := range m.Votes {
		if v.VoterID == voterID {
			return true
		}
	}
	return false
}

// Quorum is the number of votes a nominee needs to be declared winner.
func Quorum(playerCount int) int {
	return (playerCount + 1) / 2
}

// PrizePoolFor computes the advertised prize for a match configuration.
func PrizePoolFor(entryFee int64, maxPlayers int, isTournament bool) int64 {
	pool := entryFee * int64(maxPlayers)
	if isTournament {
		pool *= 2
	}
	return pool
}
