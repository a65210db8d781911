package allocation

import (
	"context"
	"fmt"
)

// BankStore is the read-only contract required from the question bank.
type BankStore interface {
	ListAvailable(ctx context.Context, filter PoolFilter) ([]QuestionRecord, error)
	// Existing returns the subset of ids that are still present in the bank.
	Existing(ctx context.Context, ids []string) (map[string]struct{}, error)
}

// PoolFilter narrows a snapshot. Empty fields mean "no restriction".
type PoolFilter struct {
	SectionIDs []string
	Difficulty *Difficulty
}

// Snapshot maps section id to the ordered set of available question ids.
type Snapshot map[string][]string

// Size returns the number of ids across all sections.
func (s Snapshot) Size() int {
	n := 0
	for _, ids := range s {
		n += len(ids)
	}
	return n
}

// Flatten merges every section into the implicit flat section.
func (s Snapshot) Flatten() Snapshot {
	merged := make([]string, 0, s.Size())
	for _, ids := range s {
		merged = append(merged, ids...)
	}
	return Snapshot{FlatSection: merged}
}

// PoolIndex builds per-allocation snapshots of the bank.
type PoolIndex struct {
	bank BankStore
}

func NewPoolIndex(bank BankStore) *PoolIndex {
	return &PoolIndex{bank: bank}
}

// Snapshot reads the bank at call time and groups ids by section.
func (p *PoolIndex) Snapshot(ctx context.Context, filter PoolFilter) (Snapshot, error) {
	records, err := p.bank.ListAvailable(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list available questions: %w", err)
	}

	var wanted map[string]struct{}
	if len(filter.SectionIDs) > 0 {
		wanted = make(map[string]struct{}, len(filter.SectionIDs))
		for _, id := range filter.SectionIDs {
			wanted[id] = struct{}{}
		}
	}

	snap := make(Snapshot)
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		if wanted != nil {
			if _, ok := wanted[rec.SectionID]; !ok {
				continue
			}
		}
		if filter.Difficulty != nil && rec.Difficulty != *filter.Difficulty {
			continue
		}
		seen[rec.ID] = struct{}{}
		snap[rec.SectionID] = append(snap[rec.SectionID], rec.ID)
	}

	// Requested sections with no questions still appear so the planner can
	// report them with available=0.
	for _, sectionID := range filter.SectionIDs {
		if _, ok := snap[sectionID]; !ok {
			snap[sectionID] = nil
		}
	}
	return snap, nil
}
