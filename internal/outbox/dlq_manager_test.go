package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	m := NewDLQManager(nil, 0, time.Minute, nil)
	require.Equal(t, 5, m.maxRetries)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(12))
}

func TestRequeueRejectsEntriesWithoutSubject(t *testing.T) {
	err := requeueOutbox(context.Background(), nil, dlqEntry{ID: 9})
	require.ErrorContains(t, err, "missing schema_subject for dlq entry 9")
}
