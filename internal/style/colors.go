package style

import (
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed colors.yaml
var defaultColors []byte

const (
	fallbackColor = "#00FF00"
	fillOpacity   = 0.8
)

// Palette maps species ids to hex colours.
type Palette struct {
	Default string         `yaml:"default"`
	Species map[int]string `yaml:"species"`
}

// DefaultPalette is the embedded species colour table.
func DefaultPalette() *Palette {
	p, err := parsePalette(defaultColors)
	if err != nil {
		panic(fmt.Sprintf("style: embedded colors.yaml: %v", err))
	}
	return p
}

// LoadColors reads a palette in the colors.yaml layout.
func LoadColors(r io.Reader) (*Palette, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read colors: %w", err)
	}
	return parsePalette(data)
}

func parsePalette(data []byte) (*Palette, error) {
	var p Palette
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse colors: %w", err)
	}
	if p.Default == "" {
		p.Default = fallbackColor
	}
	if _, err := parseHex(p.Default); err != nil {
		return nil, fmt.Errorf("default colour: %w", err)
	}
	for id, c := range p.Species {
		if _, err := parseHex(c); err != nil {
			return nil, fmt.Errorf("species %d: %w", id, err)
		}
	}
	return &p, nil
}

// Color returns the species colour, or the palette default.
func (p *Palette) Color(speciesID int) string {
	if c, ok := p.Species[speciesID]; ok {
		return c
	}
	return p.Default
}

// rgba renders a hex colour with the given alpha as a CSS rgba() string.
func rgba(hex string, alpha float64) string {
	rgb, err := parseHex(hex)
	if err != nil {
		rgb = [3]uint8{0, 255, 0}
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", rgb[0], rgb[1], rgb[2], strconv.FormatFloat(alpha, 'f', -1, 64))
}

func parseHex(s string) ([3]uint8, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return [3]uint8{}, fmt.Errorf("bad colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return [3]uint8{}, fmt.Errorf("bad colour %q", s)
	}
	return [3]uint8{uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}
