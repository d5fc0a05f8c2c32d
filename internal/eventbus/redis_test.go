package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T) (*RedisPublisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	pub, err := NewRedisPublisher(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })
	return pub, mr
}

func TestRedisPublisher_PublishTelemetryEvent(t *testing.T) {
	pub, mr := newTestPublisher(t)

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = sub.Close() }()
	ch := sub.Subscribe(context.Background(), TelemetryChannel)
	defer func() { _ = ch.Close() }()
	// Wait for the subscription to register so the publish isn't lost.
	_, err := ch.Receive(context.Background())
	require.NoError(t, err)

	msg := TelemetryMessage{
		VehicleID:      "V1",
		City:           "London",
		EventType:      "CRITICAL_TEMPERATURE",
		BatteryPercent: 40,
		TemperatureC:   65.0,
		Timestamp:      time.Now().UTC(),
	}
	require.NoError(t, pub.PublishTelemetryEvent(context.Background(), msg))

	received := <-ch.Channel()
	var got TelemetryMessage
	require.NoError(t, json.Unmarshal([]byte(received.Payload), &got))
	require.Equal(t, msg.VehicleID, got.VehicleID)
	require.Equal(t, msg.EventType, got.EventType)
}

func TestRedisPublisher_PublishAuditEntry(t *testing.T) {
	pub, mr := newTestPublisher(t)

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = sub.Close() }()
	ch := sub.Subscribe(context.Background(), AuditChannel)
	defer func() { _ = ch.Close() }()
	_, err := ch.Receive(context.Background())
	require.NoError(t, err)

	msg := AuditMessage{SeqID: 1, EventType: "VEHICLE_RESERVED", Checksum: "abc123", Timestamp: time.Now().UTC()}
	require.NoError(t, pub.PublishAuditEntry(context.Background(), msg))

	received := <-ch.Channel()
	var got AuditMessage
	require.NoError(t, json.Unmarshal([]byte(received.Payload), &got))
	require.Equal(t, msg.SeqID, got.SeqID)
	require.Equal(t, msg.Checksum, got.Checksum)
}

func TestNoopPublisher_NeverErrors(t *testing.T) {
	var p NoopPublisher
	require.NoError(t, p.PublishTelemetryEvent(context.Background(), TelemetryMessage{}))
	require.NoError(t, p.PublishAuditEntry(context.Background(), AuditMessage{}))
	require.NoError(t, p.Close())
}
