// Package ledger exposes the entitlement ledger consumed by the admission
// gate: credit balances and tiers per owner identity. The balances
// themselves live in an external billing system; Memory is the in-process
// adapter used for tests and single-tenant deployments.
package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/quillhq/quill/internal/project"
)

// ErrNoCredits is returned by Debit when the balance is already zero.
var ErrNoCredits = errors.New("no credits available")

// Ledger tracks purchased credits and entitlement tiers per identity.
type Ledger interface {
	// Credits returns the available credit balance for the identity.
	Credits(ctx context.Context, identity string) (int, error)

	// Debit consumes exactly one credit.
	Debit(ctx context.Context, identity string) error

	// Tier returns the identity's entitlement tier.
	Tier(ctx context.Context, identity string) (project.Tier, error)
}

// Memory is an in-process Ledger with seedable balances.
type Memory struct {
	mu      sync.Mutex
	credits map[string]int
	tiers   map[string]project.Tier
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		credits: make(map[string]int),
		tiers:   make(map[string]project.Tier),
	}
}

// Grant adds credits to an identity.
func (m *Memory) Grant(identity string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits[identity] += n
}

// SetTier sets the identity's tier.
func (m *Memory) SetTier(identity string, tier project.Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers[identity] = tier
}

func (m *Memory) Credits(ctx context.Context, identity string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credits[identity], nil
}

func (m *Memory) Debit(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credits[identity] <= 0 {
		return ErrNoCredits
	}
	m.credits[identity]--
	return nil
}

func (m *Memory) Tier(ctx context.Context, identity string) (project.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tiers[identity]; ok {
		return t, nil
	}
	return project.TierBasic, nil
}
