package session

import (
	"context"
	"errors"

	"saphira/server/internal/model"
)

var ErrNotFound = errors.New("session not found")

// Store 会话存储。实现必须在读写时复制，调用方拿到的会话与存储内部互不影响。
type Store interface {
	Get(ctx context.Context, id string) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Delete(ctx context.Context, id string) error
}
