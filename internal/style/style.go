// Package style builds and memoizes point styles for tree features on the map.
package style

import "github.com/RoaringBitmap/roaring"

type Shape uint8

const (
	Circle Shape = iota
	Triangle
)

func (s Shape) String() string {
	if s == Triangle {
		return "triangle"
	}
	return "circle"
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Stroke struct {
	Color string `json:"color"`
	Width int    `json:"width"`
}

// Style is a point symbol. Triangles have three points at angle zero.
type Style struct {
	Shape  Shape  `json:"shape"`
	Radius int    `json:"radius"`
	Points int    `json:"points,omitempty"`
	Fill   string `json:"fill"`
	Stroke Stroke `json:"stroke"`
}

// Key identifies one style: species, spread bucket and visibility.
type Key struct {
	SpeciesID int
	Spread    SpreadCategory
	IsPublic  bool
}

func NewKey(speciesID int, spreadLabel string, isPublic bool) Key {
	return Key{SpeciesID: speciesID, Spread: ParseSpreadCategory(spreadLabel), IsPublic: isPublic}
}

const (
	highlightStroke = "#654321"
	highlightWidth  = 5
)

var fallback = Style{
	Shape:  Circle,
	Radius: 2,
	Fill:   "#999",
	Stroke: Stroke{Color: "#000", Width: 1},
}

// Fallback returns a fresh copy of the style used for keys that were never
// built, so callers may modify it.
func Fallback() *Style {
	s := fallback
	return &s
}

// Cache memoizes styles by key. Entries are never evicted. A Cache is owned by
// one goroutine and must not be mutated concurrently.
type Cache struct {
	palette *Palette
	entries map[Key]*Style
}

// NewCache returns an empty cache; a nil palette means DefaultPalette.
func NewCache(p *Palette) *Cache {
	if p == nil {
		p = DefaultPalette()
	}
	return &Cache{palette: p, entries: make(map[Key]*Style)}
}

// Get returns the style for k, building it on first use.
func (c *Cache) Get(k Key) *Style {
	if s, ok := c.entries[k]; ok {
		return s
	}
	s := c.build(k)
	c.entries[k] = s
	return s
}

// Prefetch builds every missing key up front.
func (c *Cache) Prefetch(keys []Key) {
	for _, k := range keys {
		c.Get(k)
	}
}

// Lookup returns the cached style for k, or a Fallback copy. It never builds.
func (c *Cache) Lookup(k Key) *Style {
	if s, ok := c.entries[k]; ok {
		return s
	}
	return Fallback()
}

// Highlight is the selected-feature variant of k: same fill, radius +2 and a
// thick brown outline. Visibility still decides the shape.
func (c *Cache) Highlight(k Key) *Style {
	base := c.Lookup(k)
	h := &Style{
		Shape:  Circle,
		Radius: base.Radius + 2,
		Fill:   base.Fill,
		Stroke: Stroke{Color: highlightStroke, Width: highlightWidth},
	}
	if !k.IsPublic {
		h.Shape = Triangle
		h.Points = 3
	}
	return h
}

// FilterHighlight returns the style for a feature only when its id is in
// included; ok is false for features the active filter hides.
func (c *Cache) FilterHighlight(k Key, included *roaring.Bitmap, featureID uint32) (*Style, bool) {
	if included == nil || !included.Contains(featureID) {
		return nil, false
	}
	return c.Lookup(k), true
}

func (c *Cache) Len() int {
	return len(c.entries)
}

func (c *Cache) build(k Key) *Style {
	color := rgba(c.palette.Color(k.SpeciesID), fillOpacity)
	s := &Style{
		Shape:  Circle,
		Radius: k.Spread.Radius(),
		Fill:   color,
		Stroke: Stroke{Color: color, Width: 1},
	}
	if !k.IsPublic {
		s.Shape = Triangle
		s.Radius += 2
		s.Points = 3
	}
	return s
}

type Text struct {
	Text   string `json:"text"`
	Font   string `json:"font"`
	Fill   string `json:"fill"`
	Stroke Stroke `json:"stroke"`
}

// PolygonStyle styles electoral division outlines.
type PolygonStyle struct {
	Stroke Stroke `json:"stroke"`
	Fill   string `json:"fill"`
	Label  *Text  `json:"label,omitempty"`
}

// ElectoralStyle returns the division style, labelled when label is non-empty.
func ElectoralStyle(label string) PolygonStyle {
	ps := PolygonStyle{
		Stroke: Stroke{Color: "black", Width: 2},
		Fill:   "rgba(0, 100, 0, 0.6)",
	}
	if label != "" {
		ps.Label = &Text{
			Text:   label,
			Font:   "bold 12px Calibri,sans-serif",
			Fill:   "#000",
			Stroke: Stroke{Color: "#fff", Width: 3},
		}
	}
	return ps
}
