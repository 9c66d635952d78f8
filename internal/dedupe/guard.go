// Package dedupe drops repeated deliveries of the same upload event. S3 notifications are
// delivered at least once, and a second run would write every page again.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TypeNone  = "none"
	TypeRedis = "redis"

	DefaultTTL       = 24 * time.Hour
	DefaultClaimTTL  = 15 * time.Minute
	DefaultKeyPrefix = "splitpages:event:"

	stateInProgress = "in-progress"
	stateDone       = "done"
)

// ErrInProgress is returned for an id whose claim is held by a run that has not finished.
// The claim expires after the claim TTL, so a run that died is retried after that.
var ErrInProgress = errors.New("event is still being processed")

// Guard tracks which event ids have been handled.
type Guard interface {
	// Acquire claims id. It returns false when id was already completed and ErrInProgress
	// when another run holds the claim.
	Acquire(ctx context.Context, id string) (bool, error)
	// Complete marks a claimed id as done.
	Complete(ctx context.Context, id string) error
	// Release drops a claim so the id can be retried at once.
	Release(ctx context.Context, id string) error
	Close() error
}

type Config struct {
	Type     string        `yaml:"type" validate:"omitempty,oneof=none redis"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	TTL      time.Duration `yaml:"ttl" validate:"min=0"`
	// ClaimTTL bounds how long a run may hold an id before it counts as dead. It should
	// exceed the function timeout.
	ClaimTTL  time.Duration `yaml:"claimTTL" validate:"min=0"`
	KeyPrefix string        `yaml:"keyPrefix"`
}

// NewGuard returns the configured guard. Type "none" lets every event through.
func NewGuard(cfg Config) (Guard, error) {
	switch cfg.Type {
	case "", TypeNone:
		return NoopGuard{}, nil
	case TypeRedis:
		if cfg.Address == "" {
			return nil, fmt.Errorf("redis guard requires an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		return NewRedisGuard(client, cfg), nil
	default:
		return nil, fmt.Errorf("unsupported dedupe type: %s", cfg.Type)
	}
}

type NoopGuard struct{}

func (NoopGuard) Acquire(ctx context.Context, id string) (bool, error) { return true, nil }
func (NoopGuard) Complete(ctx context.Context, id string) error        { return nil }
func (NoopGuard) Release(ctx context.Context, id string) error         { return nil }
func (NoopGuard) Close() error                                         { return nil }

// RedisGuard claims ids with SET NX. A claim starts as in-progress with the short claim
// TTL and is rewritten as done with the full TTL once the run succeeds.
type RedisGuard struct {
	client   *redis.Client
	ttl      time.Duration
	claimTTL time.Duration
	prefix   string
}

// NewRedisGuard uses the TTLs and key prefix of cfg, applying defaults for unset values.
func NewRedisGuard(client *redis.Client, cfg Config) *RedisGuard {
	g := &RedisGuard{client: client, ttl: cfg.TTL, claimTTL: cfg.ClaimTTL, prefix: cfg.KeyPrefix}
	if g.ttl <= 0 {
		g.ttl = DefaultTTL
	}
	if g.claimTTL <= 0 {
		g.claimTTL = DefaultClaimTTL
	}
	if g.prefix == "" {
		g.prefix = DefaultKeyPrefix
	}
	return g
}

func (g *RedisGuard) Acquire(ctx context.Context, id string) (bool, error) {
	key := g.prefix + id
	// A second attempt covers a claim that expired between SETNX and GET
	for attempt := 0; attempt < 2; attempt++ {
		acquired, err := g.client.SetNX(ctx, key, stateInProgress, g.claimTTL).Result()
		if err != nil {
			return false, fmt.Errorf("failed to claim event %s: %w", id, err)
		}
		if acquired {
			return true, nil
		}

		state, err := g.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to read claim of event %s: %w", id, err)
		}
		if state == stateDone {
			slog.Info("dedupe: event already processed", "id", id)
			return false, nil
		}
		slog.Warn("dedupe: event claimed by another run", "id", id)
		return false, fmt.Errorf("%w: %s", ErrInProgress, id)
	}
	return false, fmt.Errorf("failed to claim event %s: claim kept expiring", id)
}

func (g *RedisGuard) Complete(ctx context.Context, id string) error {
	if err := g.client.Set(ctx, g.prefix+id, stateDone, g.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete event %s: %w", id, err)
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, id string) error {
	if err := g.client.Del(ctx, g.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to release event %s: %w", id, err)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

var (
	_ Guard = NoopGuard{}
	_ Guard = (*RedisGuard)(nil)
)
