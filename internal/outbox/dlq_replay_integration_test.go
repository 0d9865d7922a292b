//go:build integration

package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/Iviolo/SkinCycling-Coach/pkg/events"
)

func TestDLQReplayDeliversToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	profileID := uuid.NewString()
	seedOutbox(t, ctx, pool, profileID, events.TypeAdherenceCompleted)

	registry := &stubRegistry{id: 100}

	failing := NewDispatcher(pool, &stubProducer{err: errors.New("upstream kafka unavailable")}, registry, 5*time.Millisecond, 10, nil)
	require.NoError(t, failing.processBatch(ctx))

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Equal(t, 1, dlqCount)

	manager := NewDLQManager(pool, 5, time.Second, nil)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Equal(t, 0, dlqCount)

	kc, err := kafkacontainer.RunContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kc.Terminate(context.Background()) })

	brokers, err := kc.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{Topic: "adherence_events", NumPartitions: 1, ReplicationFactor: 1}))

	producer := NewKafkaProducer(brokers)
	defer producer.Close()

	require.NoError(t, NewDispatcher(pool, producer, registry, 5*time.Millisecond, 10, nil).processBatch(ctx))

	reader := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: "adherence_events", Partition: 0})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	schemaID, body := DecodeWireFormat(msg.Value)
	require.Equal(t, 100, schemaID)

	var evt events.AdherenceCompleted
	require.NoError(t, json.Unmarshal(body, &evt))
	require.Equal(t, profileID, evt.ProfileID)
	require.Equal(t, "pm", evt.Period)
}

func TestDLQManagerQuarantinesExhaustedEntries(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	profileID := uuid.NewString()
	seedOutbox(t, ctx, pool, profileID, "adherence.unknown")

	require.NoError(t, NewDispatcher(pool, &stubProducer{}, &stubRegistry{id: 1}, time.Millisecond, 10, nil).processBatch(ctx))

	manager := NewDLQManager(pool, 1, time.Millisecond, nil)

	_, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)

	var retries int
	require.NoError(t, pool.QueryRow(ctx, `SELECT retry_count FROM outbox_dlq WHERE profile_id = $1`, profileID).Scan(&retries))
	require.Equal(t, 1, retries)

	_, err = pool.Exec(ctx, `UPDATE outbox_dlq SET next_retry_at = NOW() - INTERVAL '1 second'`)
	require.NoError(t, err)

	_, err = manager.RunOnce(ctx, 10)
	require.NoError(t, err)

	var quarantined bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT quarantined_at IS NOT NULL FROM outbox_dlq WHERE profile_id = $1`, profileID).Scan(&quarantined))
	require.True(t, quarantined)
}
