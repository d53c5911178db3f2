package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateMutation checks that applying m to l keeps every affected
// partition non-negative when replayed in time order. It has no side
// effects and may be called speculatively.
func ValidateMutation(l *Ledger, m Mutation) error {
	var (
		affected []PartitionKey
		subject  *Operation
	)

	switch mut := m.(type) {
	case CreateMutation:
		op := mut.Operation
		if err := op.Validate(); err != nil {
			return err
		}
		if !l.inScope(op.Partition()) {
			return fmt.Errorf("%w: %s", ErrUnknownAsset, op.AssetSymbol)
		}
		affected = []PartitionKey{op.Partition()}
		subject = &op

	case EditMutation:
		orig, ok := l.Find(mut.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrOperationNotFound, mut.ID)
		}
		edited := mut.Patch.Apply(orig)
		if err := edited.Validate(); err != nil {
			return err
		}
		if !l.inScope(edited.Partition()) {
			return fmt.Errorf("%w: %s", ErrUnknownAsset, edited.AssetSymbol)
		}
		affected = []PartitionKey{orig.Partition()}
		if edited.Partition() != orig.Partition() {
			affected = append(affected, edited.Partition())
		}
		subject = &edited

	case DeleteMutation:
		orig, ok := l.Find(mut.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrOperationNotFound, mut.ID)
		}
		affected = []PartitionKey{orig.Partition()}

	default:
		return fmt.Errorf("unsupported mutation %T", m)
	}

	next, err := l.WithMutation(m)
	if err != nil {
		return err
	}

	for _, key := range affected {
		ops := next.OperationsFor(key.PortfolioID, key.AssetSymbol)

		if subject != nil && subject.Partition() == key {
			if err := checkCurrency(ops, subject.Currency); err != nil {
				return err
			}
		}

		if err := CheckTemporalConsistency(ops); err != nil {
			return err
		}
	}

	return nil
}

// CheckTemporalConsistency replays ops in chronological order and returns
// a *NegativeHoldingError for the first sell that drives the running
// quantity below zero.
func CheckTemporalConsistency(ops []Operation) error {
	running := decimal.Zero

	for _, op := range SortOperations(ops) {
		running = running.Add(op.SignedQuantity())

		if op.Kind == OperationSell && running.IsNegative() {
			return &NegativeHoldingError{
				PortfolioID: op.PortfolioID,
				AssetSymbol: op.AssetSymbol,
				OperationID: op.ID,
				At:          op.ExecutedAt,
				Shortfall:   running.Neg(),
			}
		}
	}

	return nil
}

func checkCurrency(ops []Operation, currency Currency) error {
	for _, op := range ops {
		if op.Currency != currency {
			return fmt.Errorf("%w: %s is traded in %s, got %s",
				ErrCurrencyMismatch, op.AssetSymbol, op.Currency, currency)
		}
	}
	return nil
}
