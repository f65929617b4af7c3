package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests. Each call consumes the next
// entry of Responses; once they run out, Response is returned. Err, when set,
// fails every call. Requests records what was asked.
type MockClient struct {
	Responses []string
	Response  string
	Err       error

	mu       sync.Mutex
	Requests []Request
}

func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		r := m.Responses[0]
		m.Responses = m.Responses[1:]
		return r, nil
	}
	return m.Response, nil
}

// Calls returns a copy of the recorded requests.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.Requests...)
}
