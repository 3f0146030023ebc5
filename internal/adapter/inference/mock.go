package inference

import (
	"context"
	"strings"
	"sync"

	"caregate/internal/domain"
)

// Mock is a deterministic InferenceService for development and tests.
// It echoes a canned reply derived from the system prompt, and can be
// scripted with fixed responses or failures.
type Mock struct {
	mu        sync.Mutex
	responses []string // consumed in order; empty falls through to the echo
	failWith  error    // when set, every call fails
	calls     []domain.GenerateRequest
}

// NewMock returns an empty mock that echoes.
func NewMock() *Mock { return &Mock{} }

// Script queues fixed responses, consumed one per call.
func (m *Mock) Script(responses ...string) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
	return m
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *Mock) FailWith(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
	return m
}

// Calls returns a copy of the requests seen so far.
func (m *Mock) Calls() []domain.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.GenerateRequest(nil), m.calls...)
}

// Name implements domain.InferenceService.
func (m *Mock) Name() string { return "mock" }

// Generate implements domain.InferenceService.
func (m *Mock) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if m.failWith != nil {
		return nil, m.failWith
	}
	if len(m.responses) > 0 {
		content := m.responses[0]
		m.responses = m.responses[1:]
		return &domain.GenerateResult{Content: content, ModelUsed: "mock"}, nil
	}

	// Echo mode: a short acknowledgement that includes the first line of
	// the system prompt so tests can assert prompt plumbing.
	firstLine := req.SystemPrompt
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	return &domain.GenerateResult{
		Content:   strings.TrimSpace(firstLine + "\n\n" + req.UserText),
		ModelUsed: "mock",
	}, nil
}

var _ domain.InferenceService = (*Mock)(nil)
