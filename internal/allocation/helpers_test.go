package allocation

import (
	"context"
	"fmt"
	"sync"
)

// memoryBank is an in-memory BankStore for tests.
type memoryBank struct {
	mu        sync.Mutex
	questions []QuestionRecord
	// onExisting, when set, runs before Existing answers and may mutate the bank.
	onExisting func(b *memoryBank, ids []string)
}

func newMemoryBank() *memoryBank {
	return &memoryBank{}
}

func (b *memoryBank) add(section string, difficulty Difficulty, n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%s-%d", section, difficulty, len(b.questions))
		b.questions = append(b.questions, QuestionRecord{ID: id, SectionID: section, Difficulty: difficulty})
		ids = append(ids, id)
	}
	return ids
}

func (b *memoryBank) removeLocked(id string) {
	for i, q := range b.questions {
		if q.ID == id {
			b.questions = append(b.questions[:i], b.questions[i+1:]...)
			return
		}
	}
}

func (b *memoryBank) ListAvailable(_ context.Context, filter PoolFilter) ([]QuestionRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]QuestionRecord, 0, len(b.questions))
	for _, q := range b.questions {
		if filter.Difficulty != nil && q.Difficulty != *filter.Difficulty {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (b *memoryBank) Existing(_ context.Context, ids []string) (map[string]struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.onExisting != nil {
		b.onExisting(b, ids)
	}
	present := make(map[string]struct{}, len(b.questions))
	for _, q := range b.questions {
		present[q.ID] = struct{}{}
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := present[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type memoryCache struct {
	mu    sync.Mutex
	store map[string]Allocation
}

func newMemoryCache() *memoryCache {
	return &memoryCache{store: map[string]Allocation{}}
}

func (c *memoryCache) Get(_ context.Context, id string) (*Allocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.store[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (c *memoryCache) Set(_ context.Context, a Allocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[a.ID] = a
	return nil
}

func intPtr(n int) *int { return &n }

func difficultyPtr(d Difficulty) *Difficulty { return &d }
