package bot

import (
	"context"
	"encoding/json"
	"log/slog"

	infkafka "github.com/CeoSolace/stealth-bte/internal/infrastructure/kafka"
	"github.com/segmentio/kafka-go"
)

// Consumer reads raw chat commands off the bot topic and publishes the
// executor's replies back for the gateway to deliver.
type Consumer struct {
	reader   *kafka.Reader
	producer infkafka.KafkaProducer
	executor *Executor
}

func NewConsumer(brokers []string, groupID string, producer infkafka.KafkaProducer, executor *Executor) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    infkafka.TopicBotCommands,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		producer: producer,
		executor: executor,
	}
}

type commandEvent struct {
	MessageID int64  `json:"message_id"`
	AuthorID  string `json:"author_id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

type replyEvent struct {
	MessageID int64  `json:"message_id"`
	ChannelID string `json:"channel_id"`
	Reply     string `json:"reply"`
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read bot command", "error", err)
			continue
		}

		var event commandEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal bot command", "error", err)
			continue
		}
		if event.AuthorID == "" || event.Content == "" {
			continue
		}

		reply := c.executor.Execute(ctx, event.AuthorID, event.Content)
		if reply == "" {
			continue
		}

		replyBytes, err := json.Marshal(replyEvent{
			MessageID: event.MessageID,
			ChannelID: event.ChannelID,
			Reply:     reply,
		})
		if err != nil {
			slog.Error("failed to marshal bot reply", "error", err)
			continue
		}
		if err := c.producer.Send(ctx, infkafka.TopicBotReplies, event.MessageID, replyBytes); err != nil {
			slog.Error("failed to publish bot reply", "message_id", event.MessageID, "error", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
