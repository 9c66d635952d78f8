// Package notify tells the next pipeline step which pages passed inspection unchanged.
package notify

import (
	"context"
	"fmt"

	"github.com/jo-hoe/splitpages/internal/event"
)

const (
	TypeNone  = "none"
	TypeKafka = "kafka"
)

type Notifier interface {
	Publish(ctx context.Context, pages []event.PageRef) error
	Close() error
}

type Config struct {
	Type         string   `yaml:"type" validate:"omitempty,oneof=none kafka"`
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	RequiredAcks string   `yaml:"requiredAcks" validate:"omitempty,oneof=none one all"`
}

// NewNotifier returns the configured notifier. Type "none" discards everything.
func NewNotifier(cfg Config) (Notifier, error) {
	switch cfg.Type {
	case "", TypeNone:
		return NoopNotifier{}, nil
	case TypeKafka:
		return NewKafkaNotifier(cfg)
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", cfg.Type)
	}
}

type NoopNotifier struct{}

func (NoopNotifier) Publish(ctx context.Context, pages []event.PageRef) error { return nil }
func (NoopNotifier) Close() error                                             { return nil }

var _ Notifier = NoopNotifier{}
