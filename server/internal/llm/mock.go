package llm

import (
	"context"
	"sync"
)

// MockClient 用于测试的 Mock LLM 客户端
type MockClient struct {
	mu sync.Mutex

	// Responses 按调用顺序返回，用完后重复最后一条；为空时返回 Response。
	Responses  []string
	Response   string
	Err        error
	ShouldFail bool
	CallCount  int
	LastInput  []Message
}

// NewMockClient 创建 Mock LLM 客户端
func NewMockClient(response string) *MockClient {
	return &MockClient{Response: response}
}

// Complete 模拟 LLM Complete 方法
func (m *MockClient) Complete(ctx context.Context, messages []Message, schema *JSONSchema) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastInput = append([]Message(nil), messages...)

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.ShouldFail {
		return "", context.DeadlineExceeded
	}
	if len(m.Responses) > 0 {
		idx := m.CallCount - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		return m.Responses[idx], nil
	}
	return m.Response, nil
}

// Calls 并发安全地读取调用次数。
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}
