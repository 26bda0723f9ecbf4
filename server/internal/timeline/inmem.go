package timeline

import (
	"context"
	"sync"

	"saphira/server/internal/model"
)

// InMemoryStore 是一个基于内存的 Timeline 存储实现。
type InMemoryStore struct {
	mu       sync.RWMutex
	events   map[string][]model.Event
	eventIDs map[string]map[string]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:   make(map[string][]model.Event),
		eventIDs: make(map[string]map[string]int64),
	}
}

func (s *InMemoryStore) Append(_ context.Context, sessionID string, evt *model.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evt.EventID != "" {
		if seq, ok := s.eventIDs[sessionID][evt.EventID]; ok {
			return seq, nil
		}
	}

	seq := int64(len(s.events[sessionID]) + 1)
	eventCopy := *evt
	eventCopy.Seq = seq
	eventCopy.SessionID = sessionID
	s.events[sessionID] = append(s.events[sessionID], eventCopy)

	if evt.EventID != "" {
		if s.eventIDs[sessionID] == nil {
			s.eventIDs[sessionID] = make(map[string]int64)
		}
		s.eventIDs[sessionID][evt.EventID] = seq
	}
	return seq, nil
}

// List 返回副本。seq 从 1 连续分配，所以 after 直接就是下标。
func (s *InMemoryStore) List(_ context.Context, sessionID string, after int64) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[sessionID]
	if after < 0 {
		after = 0
	}
	if after >= int64(len(events)) {
		return []model.Event{}, nil
	}
	out := make([]model.Event, len(events)-int(after))
	copy(out, events[after:])
	return out, nil
}
