// Package bot executes chat commands relayed by the external Discord
// gateway. The gateway owns the Discord connection and message parsing
// infrastructure; this side only settles the commands against the core.
package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/CeoSolace/stealth-bte/internal/models"
	service "github.com/CeoSolace/stealth-bte/internal/services"
	pkgerrors "github.com/CeoSolace/stealth-bte/pkg/errors"
)

const transferUsage = "Usage: /transfer <user_id> <amount>"

type Executor struct {
	users  service.UserService
	ledger service.LedgerService
}

func NewExecutor(users service.UserService, ledger service.LedgerService) *Executor {
	return &Executor{users: users, ledger: ledger}
}

// Execute runs a single chat command and returns the reply text. Parse
// failures produce usage replies, never errors.
func (e *Executor) Execute(ctx context.Context, authorDiscordID, content string) string {
	fields := strings.Fields(strings.TrimPrefix(content, "/"))
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "transfer":
		return e.transfer(ctx, authorDiscordID, fields[1:])
	default:
		return ""
	}
}

func (e *Executor) transfer(ctx context.Context, authorDiscordID string, args []string) string {
	if len(args) != 2 {
		return transferUsage
	}
	targetDiscordID := args[0]
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		return transferUsage
	}

	sender, err := e.users.GetByDiscordID(ctx, authorDiscordID)
	if err != nil {
		return "You are not registered in the system."
	}
	target, err := e.users.GetByDiscordID(ctx, targetDiscordID)
	if err != nil {
		return "Target user not found."
	}

	_, err = e.ledger.Transfer(ctx, sender.ID, target.ID, amount, models.TypeDiscordTransfer,
		fmt.Sprintf("Discord transfer from %s to %s", sender.Username, target.Username))
	if stderrors.Is(err, pkgerrors.ErrInsufficientFunds) {
		return "Insufficient coins."
	}
	if err != nil {
		slog.Error("discord transfer failed",
			"from_discord_id", authorDiscordID,
			"to_discord_id", targetDiscordID,
			"amount", amount,
			"error", err)
		return "An error occurred during transfer."
	}

	return fmt.Sprintf("Successfully transferred %d coins to %s!", amount, target.Username)
}
