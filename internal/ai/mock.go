package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockProvider answers deterministically without network access. It is used
// in development and tests.
type MockProvider struct {
	mu    sync.Mutex
	calls []Request
	Err   error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string { return ProviderMock }

func (m *MockProvider) Complete(ctx context.Context, req Request) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, req)
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	firstLine := strings.SplitN(req.User, "\n", 2)[0]
	content := fmt.Sprintf("[%s] %s", req.Model, firstLine)
	return &Completion{
		Content:    content,
		TokensUsed: len(strings.Fields(req.System)) + len(strings.Fields(req.User)) + len(strings.Fields(content)),
		Model:      req.Model,
	}, nil
}

// Calls returns the requests seen so far.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
