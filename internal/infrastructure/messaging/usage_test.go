package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/domain/repository"
)

type fakeUnitRepo struct {
	repository.ContentUnitRepository

	ids    [][]string
	usedAt time.Time
	err    error
}

func (f *fakeUnitRepo) IncrementUsage(ctx context.Context, ids []string, usedAt time.Time) error {
	f.ids = append(f.ids, ids)
	f.usedAt = usedAt
	return f.err
}

func TestUsageApplyHandler(t *testing.T) {
	repo := &fakeUnitRepo{}
	handler := NewUsageApplyHandler(repo)

	usedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	msg, err := NewMessage("m1", MessageTypeContextUsage, "p1", &UsageBatchMessage{
		ProjectID: "p1",
		UnitIDs:   []string{"u1", "u2"},
		UsedAt:    usedAt,
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), msg))
	require.Len(t, repo.ids, 1)
	assert.Equal(t, []string{"u1", "u2"}, repo.ids[0])
	assert.True(t, repo.usedAt.Equal(usedAt))
}

func TestUsageApplyHandlerSkipsEmptyBatch(t *testing.T) {
	repo := &fakeUnitRepo{}
	handler := NewUsageApplyHandler(repo)

	msg, err := NewMessage("m1", MessageTypeContextUsage, "p1", &UsageBatchMessage{ProjectID: "p1"})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), msg))
	assert.Empty(t, repo.ids)
}

func TestUsageApplyHandlerRejectsMalformedPayload(t *testing.T) {
	repo := &fakeUnitRepo{}
	handler := NewUsageApplyHandler(repo)

	msg := &Message{ID: "m1", Type: MessageTypeContextUsage, Payload: []byte(`{"unit_ids": 42}`)}

	err := handler(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal usage batch")
	assert.Empty(t, repo.ids)
}

func TestStreamUsageRecorderSkipsEmptyBatch(t *testing.T) {
	recorder := NewStreamUsageRecorder(nil)

	// 空批次不触碰生产者
	require.NoError(t, recorder.RecordUsage(context.Background(), "p1", nil, time.Now()))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: time.Minute, Multiplier: 2}

	assert.Equal(t, time.Second, cfg.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, cfg.CalculateBackoff(1))
	assert.Equal(t, 8*time.Second, cfg.CalculateBackoff(3))
	assert.Equal(t, time.Minute, cfg.CalculateBackoff(20))
}

func TestDLQStreamName(t *testing.T) {
	assert.Equal(t, "dlq:stream:context:usage", StreamContextUsage.DLQStream())
}
