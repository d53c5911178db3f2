package domain

import (
	"fmt"
	"sort"
)

// Ledger is an ordered collection of operations. Operations are kept in
// insertion order; chronological views break ties on that order.
// A Ledger is never modified after construction.
type Ledger struct {
	scope *PartitionKey
	ops   []Operation
}

// NewLedger creates a ledger spanning any number of partitions.
func NewLedger(ops []Operation) *Ledger {
	return &Ledger{ops: cloneOperations(ops)}
}

// NewPartitionLedger creates a ledger restricted to one (portfolio, asset)
// pair. Mutations that reference another partition are rejected with
// ErrUnknownAsset.
func NewPartitionLedger(key PartitionKey, ops []Operation) *Ledger {
	return &Ledger{scope: &key, ops: cloneOperations(ops)}
}

// Len returns the number of operations.
func (l *Ledger) Len() int {
	return len(l.ops)
}

// Operations returns the operations in insertion order.
func (l *Ledger) Operations() []Operation {
	return cloneOperations(l.ops)
}

// Sorted returns all operations in chronological order.
func (l *Ledger) Sorted() []Operation {
	return SortOperations(l.ops)
}

// OperationsFor returns one partition in chronological order.
func (l *Ledger) OperationsFor(portfolioID, assetSymbol string) []Operation {
	var ops []Operation
	for _, op := range l.ops {
		if op.PortfolioID == portfolioID && op.AssetSymbol == assetSymbol {
			ops = append(ops, op)
		}
	}
	return SortOperations(ops)
}

// Partitions returns the partitions present, ordered by portfolio then asset.
func (l *Ledger) Partitions() []PartitionKey {
	seen := make(map[PartitionKey]bool)

	var keys []PartitionKey
	for _, op := range l.ops {
		key := op.Partition()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PortfolioID != keys[j].PortfolioID {
			return keys[i].PortfolioID < keys[j].PortfolioID
		}
		return keys[i].AssetSymbol < keys[j].AssetSymbol
	})

	return keys
}

// Find returns the operation with the given ID.
func (l *Ledger) Find(id string) (Operation, bool) {
	for _, op := range l.ops {
		if op.ID == id {
			return op, true
		}
	}
	return Operation{}, false
}

// WithMutation returns the hypothetical ledger after applying m. The
// receiver is left untouched. Edits keep the operation in its original
// insertion slot so equal-timestamp ordering does not change.
func (l *Ledger) WithMutation(m Mutation) (*Ledger, error) {
	next := &Ledger{scope: l.scope}

	switch mut := m.(type) {
	case CreateMutation:
		if mut.Operation.ID != "" {
			if _, exists := l.Find(mut.Operation.ID); exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateOperation, mut.Operation.ID)
			}
		}
		next.ops = append(cloneOperations(l.ops), mut.Operation)

	case EditMutation:
		idx := l.indexOf(mut.ID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, mut.ID)
		}
		next.ops = cloneOperations(l.ops)
		next.ops[idx] = mut.Patch.Apply(l.ops[idx])

	case DeleteMutation:
		idx := l.indexOf(mut.ID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, mut.ID)
		}
		next.ops = make([]Operation, 0, len(l.ops)-1)
		next.ops = append(next.ops, l.ops[:idx]...)
		next.ops = append(next.ops, l.ops[idx+1:]...)

	default:
		return nil, fmt.Errorf("unsupported mutation %T", m)
	}

	return next, nil
}

func (l *Ledger) indexOf(id string) int {
	for i, op := range l.ops {
		if op.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) inScope(key PartitionKey) bool {
	return l.scope == nil || *l.scope == key
}

// SortOperations returns a chronologically sorted copy of ops. Equal
// timestamps keep their relative input order.
func SortOperations(ops []Operation) []Operation {
	sorted := cloneOperations(ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExecutedAt.Before(sorted[j].ExecutedAt)
	})
	return sorted
}

func cloneOperations(ops []Operation) []Operation {
	if ops == nil {
		return nil
	}
	out := make([]Operation, len(ops))
	copy(out, ops)
	return out
}
