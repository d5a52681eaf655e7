package errors

import "errors"

var (
	// Not-found kinds.
	ErrUserNotFound        = errors.New("user not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrReportNotFound      = errors.New("report not found")
	ErrCodeNotFound        = errors.New("creator code not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Ledger refusals.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")

	// Match state guards.
	ErrMatchNotActive  = errors.New("match is not active")
	ErrMatchFull       = errors.New("match is full")
	ErrAlreadyJoined   = errors.New("already joined this match")
	ErrMatchNotVotable = errors.New("match is not in voting phase")
	ErrAlreadyVoted    = errors.New("user already voted")
	ErrNotAParticipant = errors.New("user did not participate in this match")
	ErrInvalidNominee  = errors.New("nominated winner is not a match player")
	ErrBlockedByReport = errors.New("cannot join match with reported cheater")

	// Friendship.
	ErrSelfFriend     = errors.New("cannot add yourself as friend")
	ErrAlreadyFriends = errors.New("already friends")
	ErrNotFriends     = errors.New("not friends")

	// Authorization and moderation.
	ErrForbidden = errors.New("forbidden")
	ErrBanned    = errors.New("user is banned")

	// Creator codes.
	ErrCodeExists = errors.New("creator code already exists")

	// Caller input and infrastructure.
	ErrInvalidParameters       = errors.New("invalid parameters")
	ErrRequestAlreadyProcessed = errors.New("request already processed")
	ErrInternal                = errors.New("internal error")
)
