package trees

import (
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func bp(v bool) *bool        { return &v }

func TestEmptyFilter(t *testing.T) {
	p, err := NewPredicate(FilterRequest{})
	require.NoError(t, err)

	assert.True(t, p.Empty())
	assert.Equal(t, "", p.TreeClause("t"))
	assert.Equal(t, "", p.SpeciesClause("s"))
	assert.Equal(t, WorldScope, p.Scope())
	assert.Equal(t, map[string]any{"scope": WorldScope}, p.Args())
	assert.Equal(t, "ST_Within(t.geom, ST_Transform(ST_GeomFromEWKT(@scope), 4326))", p.Where("t", "s"))
}

func TestRangePolicy(t *testing.T) {
	cases := []struct {
		name     string
		req      FilterRequest
		want     string
		wantArgs map[string]any
	}{
		{
			name:     "both bounds",
			req:      FilterRequest{HeightMin: f64(5), HeightMax: f64(10)},
			want:     " AND t.actual_height BETWEEN @height_min AND @height_max",
			wantArgs: map[string]any{"height_min": 5.0, "height_max": 10.0},
		},
		{
			name:     "min only",
			req:      FilterRequest{TrunkMin: f64(30)},
			want:     " AND t.actual_trunk >= @trunk_min",
			wantArgs: map[string]any{"trunk_min": 30.0},
		},
		{
			name:     "max only",
			req:      FilterRequest{SpreadMax: f64(600)},
			want:     " AND t.actual_spread <= @spread_max",
			wantArgs: map[string]any{"spread_max": 600.0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPredicate(tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.TreeClause("t"))
			assert.Equal(t, "", p.SpeciesClause("s"))
			args := p.Args()
			for k, v := range tc.wantArgs {
				assert.Equal(t, v, args[k], k)
			}
		})
	}
}

func TestOneClausePerMeasurement(t *testing.T) {
	p, err := NewPredicate(FilterRequest{
		HeightMin: f64(1), HeightMax: f64(2),
		TrunkMin: f64(3), TrunkMax: f64(4),
		SpreadMin: f64(5), SpreadMax: f64(6),
	})
	require.NoError(t, err)

	clause := p.TreeClause("t")
	for _, col := range []string{"actual_height", "actual_trunk", "actual_spread"} {
		assert.Equal(t, 1, strings.Count(clause, "t."+col+" "), col)
	}
	assert.NotContains(t, clause, ">=")
	assert.NotContains(t, clause, "<=")
}

func TestFragmentsSplitByTable(t *testing.T) {
	p, err := NewPredicate(FilterRequest{
		SpeciesID: []int{3, 7},
		Condition: []string{"Good", "Fair"},
		IsNative:  bp(true),
		IsPublic:  bp(false),
	})
	require.NoError(t, err)

	tree := p.TreeClause("t")
	species := p.SpeciesClause("s")

	assert.Contains(t, tree, "t.species_id = ANY(@species_ids)")
	assert.Contains(t, species, "s.species_id = ANY(@species_ids)")
	assert.Contains(t, tree, "t.condition = ANY(@conditions)")
	assert.Contains(t, tree, "t.is_public = @is_public")
	assert.Contains(t, species, "s.is_native = @is_native")
	assert.NotContains(t, tree, "is_native")
	assert.NotContains(t, species, "condition")
	assert.NotContains(t, species, "is_public")

	args := p.Args()
	assert.Equal(t, pq.Int64Array{3, 7}, args["species_ids"])
	assert.Equal(t, pq.StringArray{"Good", "Fair"}, args["conditions"])
	assert.Equal(t, true, args["is_native"])
	assert.Equal(t, false, args["is_public"])
}

func TestClauseBindsToAnyAlias(t *testing.T) {
	p, err := NewPredicate(FilterRequest{HeightMin: f64(2), SpeciesID: []int{1}})
	require.NoError(t, err)

	assert.Equal(t, " AND t2.species_id = ANY(@species_ids) AND t2.actual_height >= @height_min", p.TreeClause("t2"))
	assert.Equal(t, " AND species_id = ANY(@species_ids) AND actual_height >= @height_min", p.TreeClause(""))
}

func TestValuesNeverInSQL(t *testing.T) {
	evil := "Good'); DROP TABLE tree_data.tree; --"
	p, err := NewPredicate(FilterRequest{Condition: []string{evil}, HeightMin: f64(12345.678)})
	require.NoError(t, err)

	for _, sql := range []string{SummaryQuery(p), CompositionQuery(p), p.Where("t", "s")} {
		assert.NotContains(t, sql, "DROP TABLE")
		assert.NotContains(t, sql, "12345")
		assert.NotContains(t, sql, "?")
	}
}

func TestSubqueriesUseTheirOwnAliases(t *testing.T) {
	p, err := NewPredicate(FilterRequest{IsPublic: bp(true), IsNative: bp(false)})
	require.NoError(t, err)

	summary := SummaryQuery(p)
	assert.Contains(t, summary, "ST_Within(t2.geom, ST_Transform(ST_GeomFromEWKT(@scope), 4326)) AND t2.is_public = @is_public AND s2.is_native = @is_native")
	assert.Contains(t, summary, "ST_Within(t.geom, ST_Transform(ST_GeomFromEWKT(@scope), 4326)) AND t.is_public = @is_public AND s.is_native = @is_native")

	comp := CompositionQuery(p)
	assert.Contains(t, comp, "t3.is_public = @is_public AND s3.is_native = @is_native")
}

func TestUserGeometry(t *testing.T) {
	poly := "POLYGON((-6.3 53.3, -6.2 53.3, -6.2 53.4, -6.3 53.4, -6.3 53.3))"

	p, err := NewPredicate(FilterRequest{UserGeometry: poly})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Scope(), "SRID=4326;POLYGON(("))
	assert.Equal(t, p.Scope(), p.Args()["scope"])

	// Irish Grid coordinates stay in their own SRID and are transformed in SQL.
	itm := "SRID=2157;POLYGON((715000 734000, 716000 734000, 716000 735000, 715000 735000, 715000 734000))"
	p, err = NewPredicate(FilterRequest{UserGeometry: itm})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.Scope(), "SRID=2157;"))
	assert.Contains(t, p.Where("t", "s"), "ST_Transform(ST_GeomFromEWKT(@scope), 4326)")

	multi := "MULTIPOLYGON(((0 0, 1 0, 1 1, 0 1, 0 0)))"
	_, err = NewPredicate(FilterRequest{UserGeometry: multi})
	assert.NoError(t, err)
}

func TestInvalidGeometry(t *testing.T) {
	for _, g := range []string{
		"POINT(1 2)",
		"POLYGON((not numbers))",
		"SRID=abc;POLYGON((0 0, 1 0, 1 1, 0 0))",
		"SRID=4326 POLYGON((0 0, 1 0, 1 1, 0 0))",
	} {
		_, err := NewPredicate(FilterRequest{UserGeometry: g})
		assert.ErrorIs(t, err, ErrInvalidGeometry, g)
	}
}

func TestWithDivisionBindsIDOnly(t *testing.T) {
	p, err := NewPredicate(FilterRequest{IsPublic: bp(true)})
	require.NoError(t, err)

	scoped := p.WithDivision(12)
	id, ok := scoped.Division()
	require.True(t, ok)
	assert.Equal(t, 12, id)
	assert.Equal(t, map[string]any{"division": 12, "is_public": true}, scoped.Args())
	assert.Equal(t, "ST_Within(t.geom, (SELECT d.geom FROM tree_data.electoral_dublin d WHERE d.ogc_fid = @division)) AND t.is_public = @is_public",
		scoped.Where("t", "s"))
	assert.NotContains(t, SummaryQuery(scoped), "@scope")
	assert.Empty(t, scoped.Scope())

	_, ok = p.Division()
	assert.False(t, ok)
	assert.Equal(t, WorldScope, p.Scope())
	assert.Equal(t, WorldScope, p.Args()["scope"])
}
