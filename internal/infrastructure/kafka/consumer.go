package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// PaymentConfirmer credits a confirmed purchase. Implemented by the
// payment service; declared here so the consumer does not depend on it.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, discordID string, coins int64, creatorCode, requestID string) error
}

// PaymentConsumer reads confirmed-purchase events published by the
// external payment collaborator and credits them through the ledger.
type PaymentConsumer struct {
	reader    *kafka.Reader
	confirmer PaymentConfirmer
}

func NewPaymentConsumer(brokers []string, groupID string, confirmer PaymentConfirmer) *PaymentConsumer {
	return &PaymentConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    TopicPayments,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		confirmer: confirmer,
	}
}

type paymentEvent struct {
	DiscordID   string `json:"discord_id"`
	Coins       int64  `json:"coins"`
	CreatorCode string `json:"creator_code,omitempty"`
	RequestID   string `json:"request_id"`
}

func (c *PaymentConsumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", TopicPayments, "error", err)
			continue
		}

		var event paymentEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal payment event", "error", err)
			continue
		}
		if event.DiscordID == "" || event.Coins <= 0 || event.RequestID == "" {
			slog.Error("invalid payment event", "discord_id", event.DiscordID, "coins", event.Coins)
			continue
		}

		if err := c.confirmer.Confirm(ctx, event.DiscordID, event.Coins, event.CreatorCode, event.RequestID); err != nil {
			slog.Error("failed to confirm purchase",
				"discord_id", event.DiscordID,
				"request_id", event.RequestID,
				"error", err)
			continue
		}

		slog.Info("purchase confirmed", "discord_id", event.DiscordID, "coins", event.Coins, "request_id", event.RequestID)
	}
}

func (c *PaymentConsumer) Close() error {
	return c.reader.Close()
}
