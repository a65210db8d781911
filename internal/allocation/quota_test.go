package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBySectionReportsEveryShortfall(t *testing.T) {
	snap := Snapshot{
		"math":    {"m1", "m2"},
		"science": {"s1"},
		"history": {"h1", "h2", "h3"},
	}

	_, err := Resolve(QuotaSpec{Sections: []SectionQuota{
		{SectionID: "math", RequestedCount: 3},
		{SectionID: "science", RequestedCount: 2},
		{SectionID: "history", RequestedCount: 1},
	}}, snap)

	var invalid *InvalidQuotaError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []SectionShortfall{
		{SectionID: "math", Requested: 3, Available: 2},
		{SectionID: "science", Requested: 2, Available: 1},
	}, invalid.Sections)
}

func TestResolveDropsZeroCountSections(t *testing.T) {
	snap := Snapshot{"math": {"m1", "m2"}}

	got, err := Resolve(QuotaSpec{Sections: []SectionQuota{
		{SectionID: "math", RequestedCount: 2},
		{SectionID: "empty", RequestedCount: 0},
	}}, snap)

	require.NoError(t, err)
	assert.Equal(t, QuotaBySection, got.Kind)
	assert.Equal(t, []SectionQuota{{SectionID: "math", RequestedCount: 2}}, got.Sections)
	assert.Equal(t, 2, got.Total())
}

func TestResolveUnknownSectionCountsAsEmpty(t *testing.T) {
	_, err := Resolve(QuotaSpec{Sections: []SectionQuota{{SectionID: "ghost", RequestedCount: 1}}}, Snapshot{})

	var invalid *InvalidQuotaError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, invalid.Sections[0].Available)
}

func TestResolveFlat(t *testing.T) {
	snap := Snapshot{"a": {"a1", "a2"}, "b": {"b1"}}.Flatten()

	got, err := Resolve(QuotaSpec{TotalCount: intPtr(3)}, snap)
	require.NoError(t, err)
	assert.Equal(t, QuotaFlat, got.Kind)
	assert.Equal(t, []SectionQuota{{SectionID: FlatSection, RequestedCount: 3}}, got.Sections)

	_, err = Resolve(QuotaSpec{TotalCount: intPtr(4)}, snap)
	var invalid *InvalidQuotaError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []SectionShortfall{{SectionID: FlatSection, Requested: 4, Available: 3}}, invalid.Sections)
}

func TestResolveFlatZeroIsEmpty(t *testing.T) {
	got, err := Resolve(QuotaSpec{TotalCount: intPtr(0)}, Snapshot{})
	require.NoError(t, err)
	assert.Empty(t, got.Sections)
	assert.Equal(t, 0, got.Total())
}

func TestResolveRejectsMalformedQuotas(t *testing.T) {
	snap := Snapshot{"math": {"m1"}}
	cases := map[string]QuotaSpec{
		"empty":     {},
		"negative":  {TotalCount: intPtr(-1)},
		"duplicate": {Sections: []SectionQuota{{SectionID: "math", RequestedCount: 1}, {SectionID: "math", RequestedCount: 1}}},
		"neg count": {Sections: []SectionQuota{{SectionID: "math", RequestedCount: -2}}},
	}
	for name, qs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(qs, snap)
			var invalid *InvalidQuotaError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestFilterFor(t *testing.T) {
	hard := DifficultyHard
	filter := FilterFor(QuotaSpec{
		Sections:   []SectionQuota{{SectionID: "a", RequestedCount: 1}, {SectionID: "b"}},
		Difficulty: &hard,
	})
	assert.Equal(t, []string{"a", "b"}, filter.SectionIDs)
	assert.Equal(t, &hard, filter.Difficulty)

	assert.Nil(t, FilterFor(QuotaSpec{TotalCount: intPtr(1)}).SectionIDs)
}

func TestResolveFlatAcceptsSectionedSnapshot(t *testing.T) {
	qs := QuotaSpec{TotalCount: intPtr(3)}
	assert.Equal(t, QuotaFlat, qs.Kind())

	got, err := Resolve(qs, Snapshot{"a": {"a1", "a2"}, "b": {"b1"}})
	require.NoError(t, err)
	assert.Equal(t, QuotaFlat, got.Kind)
	assert.Equal(t, 3, got.Total())

	bySection := QuotaSpec{Sections: []SectionQuota{{SectionID: "a", RequestedCount: 1}}, TotalCount: intPtr(9)}
	assert.Equal(t, QuotaBySection, bySection.Kind(), "sections win over total_count")
}
