package journal

import (
	"context"
	"sync"

	"github.com/agenthands/ember/internal/llm"
)

// MockLLMClient replays queued responses (or errors) and records prompts.
type MockLLMClient struct {
	mu       sync.Mutex
	Response string
	Queue    []mockReply
	Prompts  []string
	Calls    int
}

type mockReply struct {
	Response string
	Err      error
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Prompts = append(m.Prompts, prompt)

	if len(m.Queue) > 0 {
		reply := m.Queue[0]
		m.Queue = m.Queue[1:]
		return reply.Response, reply.Err
	}
	return m.Response, nil
}

func (m *MockLLMClient) enqueue(response string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queue = append(m.Queue, mockReply{Response: response, Err: err})
}
