package timeline

import (
	"context"

	"saphira/server/internal/model"
)

// Store 会话事件的只追加审计日志。
type Store interface {
	// Append 写入事件并返回分配的 seq。同一会话 seq 单调递增；相同 EventID 幂等返回原 seq。
	Append(ctx context.Context, sessionID string, evt *model.Event) (int64, error)
	// List 返回该会话 seq > after 的事件，after 为 0 即全量。
	List(ctx context.Context, sessionID string, after int64) ([]model.Event, error)
}
