package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

const redisConnectTimeout = 3 * time.Second

// Redis holds the notification inbox connection and the key prefix that
// namespaces everything helpdesk writes to a shared instance.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis builds the client. An unreachable server is logged and left for
// the readiness check to report, since in-app notifications are optional.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	r := &Redis{Client: client, prefix: strings.Trim(cfg.KeyPrefix, ":")}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, in-app inbox degraded", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.String("prefix", r.prefix))
	}
	return r
}

// Key joins parts under the configured prefix, e.g. "helpdesk:inbox:u1".
func (r *Redis) Key(parts ...string) string {
	if r.prefix == "" {
		return strings.Join(parts, ":")
	}
	return r.prefix + ":" + strings.Join(parts, ":")
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping backs the /health/ready redis entry.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
