package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fleetrelay/fleetrelay/internal/log"
)

// RedisPublisher publishes to Redis pub/sub channels, grounded on the
// teacher's connection configuration for its Redis-backed cache (dial/read/
// write timeouts, connection pool sizing).
type RedisPublisher struct {
	client *redis.Client
	logger zerolog.Logger
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisPublisher connects to addr and verifies reachability with a ping.
func NewRedisPublisher(cfg RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisPublisher{client: client, logger: log.WithComponent("eventbus")}, nil
}

func (p *RedisPublisher) PublishTelemetryEvent(ctx context.Context, msg TelemetryMessage) error {
	data, err := marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal telemetry message: %w", err)
	}
	if err := p.client.Publish(ctx, TelemetryChannel, data).Err(); err != nil {
		p.logger.Warn().Err(err).Str("vehicle_id", msg.VehicleID).Msg("telemetry publish failed")
		return err
	}
	return nil
}

func (p *RedisPublisher) PublishAuditEntry(ctx context.Context, msg AuditMessage) error {
	data, err := marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal audit message: %w", err)
	}
	if err := p.client.Publish(ctx, AuditChannel, data).Err(); err != nil {
		p.logger.Warn().Err(err).Uint64("seq_id", msg.SeqID).Msg("audit publish failed")
		return err
	}
	return nil
}

// Close closes the underlying Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var _ Publisher = (*RedisPublisher)(nil)
