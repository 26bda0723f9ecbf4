package session

import (
	"context"
	"sort"
	"sync"

	"saphira/server/internal/model"
)

// InMemoryStore 是一个基于内存的 Session 存储实现。
// 重启即丢数据；需要跨进程恢复时配合 RedisStore 使用。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*model.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]*model.Session)}
}

// Get 返回会话副本。
func (s *InMemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Save 保存或更新会话，存入的是副本。
func (s *InMemoryStore) Save(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sess.ID] = sess.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// List 按 ID 排序返回全部会话 ID。
func (s *InMemoryStore) List(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
