package assembly

import (
	"context"
	"sync"
	"time"
)

// UsageRecorder 使用记录入口。
// usage_count/last_used_at 是组装流程唯一的写副作用，
// 并发组装同一项目时必须串行化更新，避免丢失计数。
type UsageRecorder interface {
	RecordUsage(ctx context.Context, projectID string, unitIDs []string, at time.Time) error
}

// LocalUsageRecorder 进程内实现：按项目加锁后同步写库。
// 未接入消息队列时的兜底，单实例部署下即可保证串行。
type LocalUsageRecorder struct {
	store ContentStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalUsageRecorder 创建进程内使用记录器
func NewLocalUsageRecorder(store ContentStore) *LocalUsageRecorder {
	return &LocalUsageRecorder{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// RecordUsage 串行记录一个项目的使用计数
func (r *LocalUsageRecorder) RecordUsage(ctx context.Context, projectID string, unitIDs []string, at time.Time) error {
	if len(unitIDs) == 0 {
		return nil
	}
	lock := r.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()
	return r.store.RecordUsage(ctx, unitIDs, at)
}

func (r *LocalUsageRecorder) projectLock(projectID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[projectID] = lock
	}
	return lock
}
