package recipients

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"fleetmon/internal/config"
)

const keyPrefix = "alerts:recipients:"

// RedisStore keeps subscriptions in Redis sets, one set per machine plus
// a fleet-wide set, so recipients survive restarts and are shared across
// instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) ListRecipients(ctx context.Context, machineID string) ([]string, error) {
	emails, err := s.client.SUnion(ctx, keyPrefix+Fleet, keyPrefix+machineID).Result()
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	sort.Strings(emails)
	return emails, nil
}

func (s *RedisStore) Subscribe(ctx context.Context, email, machineID string) error {
	if machineID == "" {
		machineID = Fleet
	}
	if err := s.client.SAdd(ctx, keyPrefix+machineID, email).Err(); err != nil {
		return fmt.Errorf("subscribe %s: %w", email, err)
	}
	return nil
}

func (s *RedisStore) Unsubscribe(ctx context.Context, email, machineID string) error {
	if machineID == "" {
		machineID = Fleet
	}
	if err := s.client.SRem(ctx, keyPrefix+machineID, email).Err(); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", email, err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
