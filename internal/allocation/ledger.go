package allocation

import (
	"context"
	"fmt"
	"sync"
)

// LedgerStore persists consumed ledgers and committed allocations. Commit is
// the single point at which ledger state changes.
type LedgerStore interface {
	Load(ctx context.Context, quizID string) (*ConsumedLedger, error)
	// Commit records alloc atomically. When recycled is true the quiz's
	// generation is bumped (and its consumed set cleared) first; alloc must
	// already carry the new generation.
	Commit(ctx context.Context, alloc Allocation, recycled bool) error
	Reset(ctx context.Context, quizID string) (int64, error)
	Get(ctx context.Context, allocationID string) (Allocation, error)
}

// ConsumedLedger is the set of question ids handed out for one quiz in the
// current generation.
type ConsumedLedger struct {
	QuizID     string
	Generation int64
	consumed   map[string]struct{}
}

// NewConsumedLedger returns an empty ledger at the given generation.
func NewConsumedLedger(quizID string, generation int64, consumed []string) *ConsumedLedger {
	l := &ConsumedLedger{
		QuizID:     quizID,
		Generation: generation,
		consumed:   make(map[string]struct{}, len(consumed)),
	}
	for _, id := range consumed {
		l.consumed[id] = struct{}{}
	}
	return l
}

// Available filters candidates down to those not consumed in generation.
// A generation other than the ledger's own has nothing consumed yet.
func (l *ConsumedLedger) Available(candidates []string, generation int64) []string {
	if generation != l.Generation {
		return append([]string(nil), candidates...)
	}
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if _, used := l.consumed[id]; !used {
			out = append(out, id)
		}
	}
	return out
}

// Reserve marks ids consumed. Reserving an id twice is a bug in the caller and
// is reported instead of ignored.
func (l *ConsumedLedger) Reserve(ids []string, generation int64) error {
	if generation != l.Generation {
		return fmt.Errorf("%w: ledger at generation %d, reserve for %d", ErrLedgerConflict, l.Generation, generation)
	}
	for _, id := range ids {
		if _, used := l.consumed[id]; used {
			return fmt.Errorf("%w: %s", ErrDoubleReservation, id)
		}
	}
	for _, id := range ids {
		l.consumed[id] = struct{}{}
	}
	return nil
}

// Recycle starts a new generation with nothing consumed.
func (l *ConsumedLedger) Recycle() int64 {
	l.Generation++
	l.consumed = make(map[string]struct{})
	return l.Generation
}

// Len reports how many ids are consumed in the current generation.
func (l *ConsumedLedger) Len() int { return len(l.consumed) }

func (l *ConsumedLedger) clone() *ConsumedLedger {
	c := &ConsumedLedger{
		QuizID:     l.QuizID,
		Generation: l.Generation,
		consumed:   make(map[string]struct{}, len(l.consumed)),
	}
	for id := range l.consumed {
		c.consumed[id] = struct{}{}
	}
	return c
}

// MemoryLedgerStore keeps ledgers and allocations in process memory.
type MemoryLedgerStore struct {
	mu          sync.RWMutex
	ledgers     map[string]*ConsumedLedger
	allocations map[string]Allocation
}

var _ LedgerStore = (*MemoryLedgerStore)(nil)

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		ledgers:     make(map[string]*ConsumedLedger),
		allocations: make(map[string]Allocation),
	}
}

func (s *MemoryLedgerStore) Load(_ context.Context, quizID string) (*ConsumedLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.ledgers[quizID]; ok {
		return l.clone(), nil
	}
	return NewConsumedLedger(quizID, 1, nil), nil
}

func (s *MemoryLedgerStore) Commit(_ context.Context, alloc Allocation, recycled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.ledgers[alloc.QuizID]
	if !ok {
		current = NewConsumedLedger(alloc.QuizID, 1, nil)
	}
	next := current.clone()
	if recycled {
		next.Recycle()
	}
	if err := next.Reserve(alloc.QuestionIDs, alloc.Generation); err != nil {
		return err
	}
	s.ledgers[alloc.QuizID] = next
	s.allocations[alloc.ID] = cloneAllocation(alloc)
	return nil
}

func (s *MemoryLedgerStore) Reset(_ context.Context, quizID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[quizID]
	if !ok {
		l = NewConsumedLedger(quizID, 1, nil)
		s.ledgers[quizID] = l
	}
	return l.Recycle(), nil
}

func (s *MemoryLedgerStore) Get(_ context.Context, allocationID string) (Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allocations[allocationID]
	if !ok {
		return Allocation{}, ErrAllocationNotFound
	}
	return cloneAllocation(a), nil
}

func cloneAllocation(a Allocation) Allocation {
	a.QuestionIDs = append([]string(nil), a.QuestionIDs...)
	a.PerSection = append([]SectionCount(nil), a.PerSection...)
	if a.Shortfall != nil {
		sf := make(map[string]int, len(a.Shortfall))
		for k, v := range a.Shortfall {
			sf[k] = v
		}
		a.Shortfall = sf
	}
	return a
}
