package regen

import "context"

// MockRegenerator is a test double for Regenerator.
type MockRegenerator struct {
	RegenerateFunc func(ctx context.Context, cloneURL string) error

	// URLs records every clone URL passed to Regenerate, in order.
	URLs []string
}

// Regenerate records the call and delegates to RegenerateFunc if set.
func (m *MockRegenerator) Regenerate(ctx context.Context, cloneURL string) error {
	m.URLs = append(m.URLs, cloneURL)
	if m.RegenerateFunc != nil {
		return m.RegenerateFunc(ctx, cloneURL)
	}
	return nil
}

var _ Regenerator = (*MockRegenerator)(nil)
