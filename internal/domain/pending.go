package domain

import "fmt"

// PendingState is the lifecycle state of an optimistically applied mutation.
type PendingState string

const (
	PendingStatePending    PendingState = "PENDING"
	PendingStateCommitted  PendingState = "COMMITTED"
	PendingStateRolledBack PendingState = "ROLLED_BACK"
)

// PendingMutation tracks a mutation applied locally before the backend
// confirmed it. Transitions: PENDING -> COMMITTED, PENDING -> ROLLED_BACK.
type PendingMutation struct {
	Mutation Mutation
	State    PendingState
	Cause    error

	base       *Ledger
	optimistic *Ledger
}

// NewPendingMutation validates m against base and returns it in PENDING
// state with the optimistic ledger precomputed.
func NewPendingMutation(base *Ledger, m Mutation) (*PendingMutation, error) {
	if err := ValidateMutation(base, m); err != nil {
		return nil, err
	}

	optimistic, err := base.WithMutation(m)
	if err != nil {
		return nil, err
	}

	return &PendingMutation{
		Mutation:   m,
		State:      PendingStatePending,
		base:       base,
		optimistic: optimistic,
	}, nil
}

// Ledger returns the ledger the caller should display: the optimistic one
// unless the mutation was rolled back.
func (p *PendingMutation) Ledger() *Ledger {
	if p.State == PendingStateRolledBack {
		return p.base
	}
	return p.optimistic
}

// Commit marks the mutation as accepted by the backend.
func (p *PendingMutation) Commit() error {
	if p.State != PendingStatePending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.State, PendingStateCommitted)
	}
	p.State = PendingStateCommitted
	return nil
}

// Rollback marks the mutation as rejected and records why.
func (p *PendingMutation) Rollback(cause error) error {
	if p.State != PendingStatePending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.State, PendingStateRolledBack)
	}
	p.State = PendingStateRolledBack
	p.Cause = cause
	return nil
}
