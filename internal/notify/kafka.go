package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jo-hoe/splitpages/internal/event"
)

// messageWriter is the part of kafka.Writer the notifier needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes one JSON message per page, keyed by the page's object key so all
// messages for a key land on the same partition.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

func NewKafkaNotifier(cfg Config) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka notifier configuration incomplete: both brokers and topic are required")
	}

	var requiredAcks kafka.RequiredAcks
	switch cfg.RequiredAcks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "all":
		requiredAcks = kafka.RequireAll
	default:
		requiredAcks = kafka.RequireOne
	}

	// Synchronous writes: the Lambda may freeze as soon as the handler returns
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: requiredAcks,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			slog.Error(fmt.Sprintf("kafka writer: "+msg, args...))
		}),
	}

	slog.Info("kafka notifier created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return newKafkaNotifier(w, cfg.Topic), nil
}

func newKafkaNotifier(w messageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: w, topic: topic}
}

func (n *KafkaNotifier) Publish(ctx context.Context, pages []event.PageRef) error {
	if len(pages) == 0 {
		return nil
	}

	msgs, err := buildMessages(pages)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish %d pages to %s: %w", len(pages), n.topic, err)
	}

	slog.Debug("kafka notifier: pages published", "count", len(pages), "topic", n.topic)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func buildMessages(pages []event.PageRef) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(pages))
	for i, page := range pages {
		value, err := json.Marshal(page)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize page %s: %w", page.Key, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(page.Key),
			Value: value,
		}
	}
	return msgs, nil
}

var _ Notifier = (*KafkaNotifier)(nil)
