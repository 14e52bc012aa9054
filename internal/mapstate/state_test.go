package mapstate

import (
	"testing"
	"time"

	"github.com/futaoo/INTERVAL/internal/trees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) *time.Time {
	t := time.Date(2024, time.March, d, 15, 0, 0, 0, time.UTC)
	return &t
}

func strp(s string) *string { return &s }

func TestWithStatisticsKeepsTenNewest(t *testing.T) {
	var acts []trees.Activity
	for d := 1; d <= 14; d++ {
		acts = append(acts, trees.Activity{TreeID: d, Date: day(d)})
	}
	acts = append(acts, trees.Activity{TreeID: 99})

	s := State{}.WithStatistics(trees.Statistics{
		ElectoralName:     "Pembroke",
		TotalTrees:        15,
		MostCommonSpecies: strp("Sycamore"),
		Activities:        acts,
	})

	require.Len(t, s.Statistics.Activities, 10)
	assert.Equal(t, 10, s.Statistics.TotalIssues)
	assert.Equal(t, 14, s.Statistics.Activities[0].TreeID)
	assert.Equal(t, "2024-03-14", s.Statistics.Activities[0].Date)
	assert.Equal(t, 5, s.Statistics.Activities[9].TreeID)
	assert.Equal(t, "Pembroke", s.ElectoralName)
	assert.Equal(t, "Sycamore", s.Statistics.MostCommonSpecies)
	assert.Equal(t, int64(15), s.Statistics.TotalTrees)
}

func TestWithStatisticsUndatedLast(t *testing.T) {
	s := State{}.WithStatistics(trees.Statistics{Activities: []trees.Activity{
		{TreeID: 1},
		{TreeID: 2, Date: day(2)},
	}})
	require.Len(t, s.Statistics.Activities, 2)
	assert.Equal(t, 2, s.Statistics.Activities[0].TreeID)
	assert.Equal(t, "", s.Statistics.Activities[1].Date)
	assert.Equal(t, 2, s.Statistics.TotalIssues)
}

func TestReducersDoNotMutate(t *testing.T) {
	acts := []trees.Activity{{TreeID: 1, Date: day(1)}, {TreeID: 2, Date: day(2)}}
	before := State{ElectoralName: "all"}

	after := before.WithFilterResult(trees.FilterStatistics{
		TreeIDs:    []int{4, 8},
		Statistics: trees.Statistics{ElectoralName: "Area of Interest", Activities: acts},
	})

	assert.Equal(t, "all", before.ElectoralName)
	assert.False(t, before.FromFilter)
	assert.Nil(t, before.IncludedTreeIDs)
	assert.Equal(t, 1, acts[0].TreeID, "input activities keep their order")

	assert.True(t, after.FromFilter)
	assert.True(t, after.IncludedTreeIDs.Contains(8))
	assert.False(t, after.IncludedTreeIDs.Contains(5))

	cleared := after.ClearFilter()
	assert.False(t, cleared.FromFilter)
	assert.True(t, after.FromFilter)
}

func TestFilterIDsBeyondBitmapRange(t *testing.T) {
	const wide = 1<<32 + 8
	st := State{}.WithFilterResult(trees.FilterStatistics{TreeIDs: []int{-1, 8 + 1, wide}})

	assert.Equal(t, uint64(1), st.IncludedTreeIDs.GetCardinality())
	assert.True(t, st.IncludedTreeIDs.Contains(9))
	assert.False(t, st.IncludedTreeIDs.Contains(8), "wide ids must not wrap onto small ones")
}

func TestSelectionAndRecord(t *testing.T) {
	s := State{}.WithSelectedTree(12, "POINT(-6.26 53.34)")
	assert.Equal(t, 12, s.SelectedTreeID)
	assert.Equal(t, "POINT(-6.26 53.34)", s.SelectedGeomWKT)

	s = s.WithRecord(trees.TreeRecord{RecordID: 3, TreeID: 12})
	require.NotNil(t, s.CurrentRecord)
	assert.Equal(t, 3, s.CurrentRecord.RecordID)
	assert.Nil(t, s.ClearRecord().CurrentRecord)
}
