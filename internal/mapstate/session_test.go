package mapstate

import (
	"context"
	"errors"
	"testing"

	"github.com/futaoo/INTERVAL/internal/style"
	"github.com/futaoo/INTERVAL/internal/trees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	world  trees.Statistics
	filter func(ctx context.Context, req trees.FilterRequest) (trees.FilterStatistics, error)
	tree   func(ctx context.Context, id int) (trees.TreeDetail, error)
	combos []trees.StyleCombination
}

func (f *fakeAPI) WorldStatistics(ctx context.Context) (trees.Statistics, error) {
	return f.world, nil
}

func (f *fakeAPI) Statistics(ctx context.Context, divisionID int) (trees.Statistics, error) {
	st := f.world
	st.ElectoralName = "division"
	return st, nil
}

func (f *fakeAPI) FilterStatistics(ctx context.Context, req trees.FilterRequest) (trees.FilterStatistics, error) {
	return f.filter(ctx, req)
}

func (f *fakeAPI) Tree(ctx context.Context, id int) (trees.TreeDetail, error) {
	return f.tree(ctx, id)
}

func (f *fakeAPI) StyleCombinations(ctx context.Context) ([]trees.StyleCombination, error) {
	return f.combos, nil
}

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func TestStaleFilterResponseDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0

	api := &fakeAPI{filter: func(ctx context.Context, req trees.FilterRequest) (trees.FilterStatistics, error) {
		calls++
		if calls == 1 {
			close(entered)
			<-release
			return trees.FilterStatistics{TreeIDs: []int{1}, Statistics: trees.Statistics{TotalTrees: 1}}, nil
		}
		return trees.FilterStatistics{TreeIDs: []int{2, 3}, Statistics: trees.Statistics{TotalTrees: 2}}, nil
	}}
	s := NewSession(api, nil)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- s.ApplyFilter(context.Background(), trees.FilterRequest{})
	}()
	<-entered

	require.NoError(t, s.ApplyFilter(context.Background(), trees.FilterRequest{}))
	close(release)

	assert.ErrorIs(t, <-firstErr, ErrStale)
	st := s.State()
	assert.Equal(t, int64(2), st.Statistics.TotalTrees)
	assert.True(t, st.IncludedTreeIDs.Contains(3))
	assert.False(t, st.IncludedTreeIDs.Contains(1))
}

func TestInitStylesPrefetches(t *testing.T) {
	api := &fakeAPI{combos: []trees.StyleCombination{
		{SpeciesID: intp(1), SpreadCategory: "Up to 300 cm", IsPublic: boolp(true)},
		{SpeciesID: intp(1), SpreadCategory: "Up to 300 cm", IsPublic: boolp(false)},
		{SpeciesID: nil, SpreadCategory: "Unknown", IsPublic: nil},
	}}
	cache := style.NewCache(nil)
	s := NewSession(api, cache)

	n, err := s.InitStyles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, ok := s.FeatureStyle(Feature{TreeID: 5, SpeciesID: 1, SpreadCategory: "Up to 300 cm", IsPublic: true})
	require.True(t, ok)
	assert.Same(t, cache.Get(style.Key{SpeciesID: 1, Spread: style.UpTo300, IsPublic: true}), got)
}

func TestFeatureStyleModes(t *testing.T) {
	api := &fakeAPI{
		filter: func(ctx context.Context, req trees.FilterRequest) (trees.FilterStatistics, error) {
			return trees.FilterStatistics{TreeIDs: []int{10}}, nil
		},
		tree: func(ctx context.Context, id int) (trees.TreeDetail, error) {
			return trees.TreeDetail{TreeID: id, GeomWKT: "POINT(-6.2 53.3)"}, nil
		},
	}
	s := NewSession(api, nil)
	ctx := context.Background()

	plain, ok := s.FeatureStyle(Feature{TreeID: 11, SpeciesID: 2, SpreadCategory: "Unknown", IsPublic: true})
	require.True(t, ok)
	assert.Equal(t, style.Fallback(), plain)

	require.NoError(t, s.ApplyFilter(ctx, trees.FilterRequest{}))
	_, ok = s.FeatureStyle(Feature{TreeID: 11})
	assert.False(t, ok, "trees outside the filter are hidden")
	_, ok = s.FeatureStyle(Feature{TreeID: 10})
	assert.True(t, ok)
	_, ok = s.FeatureStyle(Feature{TreeID: 1<<32 + 10})
	assert.False(t, ok, "ids beyond uint32 are not aliased onto included ids")

	detail, err := s.SelectTree(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "POINT(-6.2 53.3)", detail.GeomWKT)
	assert.Equal(t, "POINT(-6.2 53.3)", s.State().SelectedGeomWKT)

	hl, ok := s.FeatureStyle(Feature{TreeID: 11, IsPublic: false})
	require.True(t, ok)
	assert.Equal(t, style.Triangle, hl.Shape)
	assert.Equal(t, 5, hl.Stroke.Width)

	require.NoError(t, s.LoadDivision(ctx, intp(4)))
	assert.False(t, s.State().FromFilter)
	assert.Equal(t, "division", s.State().ElectoralName)
}

func TestSelectTreeError(t *testing.T) {
	boom := errors.New("boom")
	api := &fakeAPI{tree: func(ctx context.Context, id int) (trees.TreeDetail, error) {
		return trees.TreeDetail{}, boom
	}}
	s := NewSession(api, nil)

	_, err := s.SelectTree(context.Background(), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.State().SelectedTreeID)
}
