package allocation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolIndexSnapshotGroupsBySection(t *testing.T) {
	bank := newMemoryBank()
	math := bank.add("math", DifficultyMedium, 3)
	science := bank.add("science", DifficultyEasy, 2)
	loose := bank.add("", DifficultyHard, 1)

	snap, err := NewPoolIndex(bank).Snapshot(context.Background(), PoolFilter{})
	require.NoError(t, err)
	assert.Equal(t, math, snap["math"])
	assert.Equal(t, science, snap["science"])
	assert.Equal(t, loose, snap[""])
	assert.Equal(t, 6, snap.Size())

	flat := snap.Flatten()
	assert.Len(t, flat, 1)
	assert.ElementsMatch(t, append(append(math, science...), loose...), flat[FlatSection])
}

func TestPoolIndexSnapshotAppliesFilter(t *testing.T) {
	bank := newMemoryBank()
	bank.add("math", DifficultyMedium, 2)
	bank.add("math", DifficultyHard, 2)
	bank.add("science", DifficultyMedium, 2)

	snap, err := NewPoolIndex(bank).Snapshot(context.Background(), PoolFilter{
		SectionIDs: []string{"math", "art"},
		Difficulty: difficultyPtr(DifficultyMedium),
	})
	require.NoError(t, err)
	assert.Len(t, snap["math"], 2)
	assert.NotContains(t, snap, "science")
	assert.Contains(t, snap, "art", "requested sections are always present")
	assert.Empty(t, snap["art"])
}

type duplicatingBank struct{ memoryBank }

func (b *duplicatingBank) ListAvailable(ctx context.Context, filter PoolFilter) ([]QuestionRecord, error) {
	recs, _ := b.memoryBank.ListAvailable(ctx, filter)
	return append(recs, recs...), nil
}

func TestPoolIndexSnapshotDropsDuplicates(t *testing.T) {
	bank := &duplicatingBank{}
	bank.add("math", DifficultyEasy, 2)

	snap, err := NewPoolIndex(bank).Snapshot(context.Background(), PoolFilter{})
	require.NoError(t, err)
	assert.Len(t, snap["math"], 2)
}
