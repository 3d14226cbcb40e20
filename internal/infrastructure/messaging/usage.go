package messaging

import (
	"context"
	"fmt"
	"time"

	"z-novel-context-svc/internal/application/assembly"
	"z-novel-context-svc/internal/domain/repository"
)

// UsageBatchMessage 一次组装产生的使用量批次
type UsageBatchMessage struct {
	ProjectID string    `json:"project_id"`
	UnitIDs   []string  `json:"unit_ids"`
	UsedAt    time.Time `json:"used_at"`
}

// StreamUsageRecorder 把使用记录发布到流，由单写者消费落库
type StreamUsageRecorder struct {
	producer *Producer
}

var _ assembly.UsageRecorder = (*StreamUsageRecorder)(nil)

// NewStreamUsageRecorder 创建流式使用记录器
func NewStreamUsageRecorder(producer *Producer) *StreamUsageRecorder {
	return &StreamUsageRecorder{producer: producer}
}

// RecordUsage 发布使用量批次，组装侧对发布失败只告警
func (r *StreamUsageRecorder) RecordUsage(ctx context.Context, projectID string, unitIDs []string, at time.Time) error {
	if len(unitIDs) == 0 {
		return nil
	}
	_, err := r.producer.PublishUsageBatch(ctx, &UsageBatchMessage{
		ProjectID: projectID,
		UnitIDs:   unitIDs,
		UsedAt:    at,
	})
	return err
}

// NewUsageApplyHandler 消费侧处理器：把批次落到存储。
// 单消费者组保证串行，存储层的 GREATEST 守卫兜底消息重放。
func NewUsageApplyHandler(units repository.ContentUnitRepository) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		var batch UsageBatchMessage
		if err := msg.UnmarshalPayload(&batch); err != nil {
			return fmt.Errorf("failed to unmarshal usage batch: %w", err)
		}
		if len(batch.UnitIDs) == 0 {
			return nil
		}
		if err := units.IncrementUsage(ctx, batch.UnitIDs, batch.UsedAt); err != nil {
			return fmt.Errorf("failed to apply usage batch: %w", err)
		}
		return nil
	}
}
