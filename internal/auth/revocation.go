package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobboard/apiserver/config"
)

// Revoker records session tokens that were logged out before they expired.
type Revoker interface {
	// Revoke marks tokenID as revoked until expiresAt.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Close() error
}

// NewRevoker connects to Redis when an address is configured. Without one,
// logout only clears the cookie and tokens stay valid until they expire.
func NewRevoker(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (Revoker, error) {
	if cfg.Addr == "" {
		logger.Info("redis not configured, token revocation disabled")
		return NoopRevoker{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return NewRedisRevoker(client, logger), nil
}

type redisRevoker struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisRevoker(client *redis.Client, logger *slog.Logger) Revoker {
	return &redisRevoker{client: client, logger: logger}
}

func revokedKey(tokenID string) string {
	return "session:revoked:" + tokenID
}

func (r *redisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKey(tokenID), 1, ttl).Err(); err != nil {
		r.logger.Error("failed to revoke session token", "token_id", tokenID, "error", err)
		return err
	}
	return nil
}

func (r *redisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	err := r.client.Get(ctx, revokedKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisRevoker) Close() error {
	return r.client.Close()
}

// NoopRevoker never revokes anything.
type NoopRevoker struct{}

func (NoopRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (NoopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func (NoopRevoker) Close() error { return nil }
