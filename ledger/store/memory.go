// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/solhealth/clinic-core/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	entries     map[ledger.ProfessionalID][]ledger.Entry
	byReference map[string][]ledger.Entry
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		entries:     make(map[ledger.ProfessionalID][]ledger.Entry),
		byReference: make(map[string][]ledger.Entry),
		idempotency: make(map[string]bool),
	}
}

// Append adds a single entry. Append-only.
func (m *Memory) Append(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return ledger.ErrDuplicateIdempotencyKey
	}

	// Recording order. Load returns entries exactly as appended, so the
	// balance replay sees operations in the sequence they happened.
	m.entries[e.ProfessionalID] = append(m.entries[e.ProfessionalID], e)

	if e.ReferenceID != "" {
		m.byReference[e.ReferenceID] = append(m.byReference[e.ReferenceID], e)
	}
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) Load(_ context.Context, professionalID ledger.ProfessionalID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Entry, len(m.entries[professionalID]))
	copy(result, m.entries[professionalID])
	return result, nil
}

func (m *Memory) LoadByReference(_ context.Context, referenceID string) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Entry, len(m.byReference[referenceID]))
	copy(result, m.byReference[referenceID])
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}
