package trees

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// WorldScope covers every coordinate in EPSG:4326, so an unscoped query
// passes every containment test.
const WorldScope = "SRID=4326;POLYGON((-180 -90, 180 -90, 180 90, -180 90, -180 -90))"

const defaultSRID = 4326

var ErrInvalidGeometry = errors.New("invalid user geometry")

// FilterRequest is the body of POST /api/trees. Unset fields do not filter.
type FilterRequest struct {
	SpeciesID    []int    `json:"species_id"`
	Condition    []string `json:"condition"`
	HeightMin    *float64 `json:"height_min"`
	HeightMax    *float64 `json:"height_max"`
	TrunkMin     *float64 `json:"trunk_min"`
	TrunkMax     *float64 `json:"trunk_max"`
	SpreadMin    *float64 `json:"spread_min"`
	SpreadMax    *float64 `json:"spread_max"`
	UserGeometry string   `json:"userGeometry"`
	IsNative     *bool    `json:"is_native"`
	IsPublic     *bool    `json:"is_public"`
}

// condition is one predicate on a single column, written without a table
// alias so it can be bound to whichever alias a query uses.
type condition struct {
	column string
	expr   string
}

func (c condition) bind(alias string) string {
	return qualify(alias, c.column) + " " + c.expr
}

func qualify(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}

// Predicate is a compiled filter: tree-table and species-table conditions,
// the spatial scope, and the named arguments they reference.
type Predicate struct {
	tree    []condition
	species []condition
	args    map[string]any
}

// NewPredicate compiles a filter request. Every value is bound as a named
// argument; nothing from the request is written into the SQL text.
func NewPredicate(f FilterRequest) (Predicate, error) {
	scope, err := scopeFromWKT(f.UserGeometry)
	if err != nil {
		return Predicate{}, err
	}

	p := Predicate{args: map[string]any{"scope": scope}}

	if len(f.SpeciesID) > 0 {
		ids := make([]int64, len(f.SpeciesID))
		for i, id := range f.SpeciesID {
			ids[i] = int64(id)
		}
		p.args["species_ids"] = pq.Int64Array(ids)
		// Either table may drive the query, so both sides get the condition.
		p.tree = append(p.tree, condition{"species_id", "= ANY(@species_ids)"})
		p.species = append(p.species, condition{"species_id", "= ANY(@species_ids)"})
	}

	if len(f.Condition) > 0 {
		p.args["conditions"] = pq.StringArray(f.Condition)
		p.tree = append(p.tree, condition{"condition", "= ANY(@conditions)"})
	}

	p.addRange("actual_height", "height", f.HeightMin, f.HeightMax)
	p.addRange("actual_trunk", "trunk", f.TrunkMin, f.TrunkMax)
	p.addRange("actual_spread", "spread", f.SpreadMin, f.SpreadMax)

	if f.IsNative != nil {
		p.args["is_native"] = *f.IsNative
		p.species = append(p.species, condition{"is_native", "= @is_native"})
	}
	if f.IsPublic != nil {
		p.args["is_public"] = *f.IsPublic
		p.tree = append(p.tree, condition{"is_public", "= @is_public"})
	}

	return p, nil
}

// addRange emits exactly one condition per measurement: a closed range when
// both bounds are set, a one-sided comparison when only one is.
func (p *Predicate) addRange(column, name string, from, to *float64) {
	lo, hi := name+"_min", name+"_max"
	switch {
	case from != nil && to != nil:
		p.args[lo] = *from
		p.args[hi] = *to
		p.tree = append(p.tree, condition{column, "BETWEEN @" + lo + " AND @" + hi})
	case from != nil:
		p.args[lo] = *from
		p.tree = append(p.tree, condition{column, ">= @" + lo})
	case to != nil:
		p.args[hi] = *to
		p.tree = append(p.tree, condition{column, "<= @" + hi})
	}
}

// WithDivision returns a copy of p scoped to the stored boundary of an
// electoral division. The geometry stays in the database; only the id is bound.
func (p Predicate) WithDivision(ogcFid int) Predicate {
	args := p.Args()
	delete(args, "scope")
	args["division"] = ogcFid
	p.args = args
	return p
}

// Division reports the division id p is scoped to, if any.
func (p Predicate) Division() (int, bool) {
	id, ok := p.args["division"].(int)
	return id, ok
}

// Scope is the EWKT geometry every tree must lie within. It is empty for a
// division-scoped predicate.
func (p Predicate) Scope() string {
	if _, ok := p.Division(); ok {
		return ""
	}
	s, _ := p.args["scope"].(string)
	if s == "" {
		return WorldScope
	}
	return s
}

// TreeClause returns the tree conditions bound to alias as " AND ..." text,
// or "" when there are none.
func (p Predicate) TreeClause(alias string) string {
	return joinConditions(p.tree, alias)
}

// SpeciesClause is TreeClause for the species table.
func (p Predicate) SpeciesClause(alias string) string {
	return joinConditions(p.species, alias)
}

// Where is the full WHERE body for a query joining tree (treeAlias) to
// species (speciesAlias): spatial containment followed by both fragments.
func (p Predicate) Where(treeAlias, speciesAlias string) string {
	return "ST_Within(" + qualify(treeAlias, "geom") + ", " + p.scopeExpr() + ")" +
		p.TreeClause(treeAlias) + p.SpeciesClause(speciesAlias)
}

// User scopes may carry any SRID; tree.geom is always 4326.
const (
	userScopeExpr     = "ST_Transform(ST_GeomFromEWKT(@scope), 4326)"
	divisionScopeExpr = "(SELECT d.geom FROM tree_data.electoral_dublin d WHERE d.ogc_fid = @division)"
)

func (p Predicate) scopeExpr() string {
	if _, ok := p.Division(); ok {
		return divisionScopeExpr
	}
	return userScopeExpr
}

// Args returns a copy of the named arguments, scope or division included.
func (p Predicate) Args() map[string]any {
	out := make(map[string]any, len(p.args)+1)
	for k, v := range p.args {
		out[k] = v
	}
	_, hasScope := out["scope"]
	_, hasDivision := out["division"]
	if !hasScope && !hasDivision {
		out["scope"] = WorldScope
	}
	return out
}

// Empty reports whether the predicate filters nothing beyond its scope.
func (p Predicate) Empty() bool {
	return len(p.tree) == 0 && len(p.species) == 0
}

func joinConditions(cs []condition, alias string) string {
	if len(cs) == 0 {
		return ""
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.bind(alias)
	}
	return " AND " + strings.Join(parts, " AND ")
}

// scopeFromWKT validates a user polygon and normalises it to EWKT. An
// optional "SRID=n;" prefix is kept, otherwise WGS84 is assumed. The query
// transforms the polygon to 4326 before the containment test.
func scopeFromWKT(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return WorldScope, nil
	}

	srid := defaultSRID
	body := s
	if strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			return "", fmt.Errorf("%w: missing ';' after SRID", ErrInvalidGeometry)
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[len("SRID="):semi]))
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%w: bad SRID %q", ErrInvalidGeometry, s[:semi])
		}
		srid = n
		body = s[semi+1:]
	}

	g, err := wkt.Unmarshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return "", fmt.Errorf("%w: expected a polygon, got %s", ErrInvalidGeometry, g.GeoJSONType())
	}

	return fmt.Sprintf("SRID=%d;%s", srid, wkt.MarshalString(g)), nil
}
