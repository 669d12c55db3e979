package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Mock is a Generator for tests. Responses and failures are matched by
// prompt substring; Structured runs through the same parse/validate path
// as the production client.
type Mock struct {
	mu sync.Mutex

	// Responses maps a prompt substring to the canned reply. The first
	// matching entry (in Order, then map order) wins. DefaultResponse is
	// used when nothing matches.
	Responses       map[string]string
	Order           []string
	DefaultResponse string

	// FailOn maps a prompt substring to how many calls should fail
	// before succeeding. A negative count fails forever.
	FailOn map[string]int

	calls    []string
	failures map[string]int
}

// NewMock creates a mock with a generic default reply long enough to
// count as produced chapter content.
func NewMock() *Mock {
	return &Mock{
		Responses:       map[string]string{},
		FailOn:          map[string]int{},
		DefaultResponse: strings.Repeat("Generated prose for testing purposes. ", 12),
		failures:        map[string]int{},
	}
}

// ErrMockFailure is returned by injected failures.
var ErrMockFailure = errors.New("injected generation failure")

func (m *Mock) Text(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req.Prompt)

	for sub, count := range m.FailOn {
		if !strings.Contains(req.Prompt, sub) {
			continue
		}
		if count < 0 || m.failures[sub] < count {
			m.failures[sub]++
			return "", ErrMockFailure
		}
	}

	for _, sub := range m.Order {
		if strings.Contains(req.Prompt, sub) {
			return m.Responses[sub], nil
		}
	}
	for sub, resp := range m.Responses {
		if strings.Contains(req.Prompt, sub) {
			return resp, nil
		}
	}
	return m.DefaultResponse, nil
}

func (m *Mock) Structured(ctx context.Context, req Request, schema string, out any) error {
	return structuredViaText(ctx, m, req, schema, out)
}

// Calls returns the prompts seen so far.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many prompts contained the substring.
func (m *Mock) CallCount(sub string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.Contains(c, sub) {
			n++
		}
	}
	return n
}
