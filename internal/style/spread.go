package style

// SpreadCategory is the canopy-spread bucket a tree falls into.
type SpreadCategory uint8

const (
	Unknown SpreadCategory = iota
	UpTo300
	From301To600
	From601To900
	From901To1200
	Over1200
)

var spreadLabels = [...]string{
	Unknown:       "Unknown",
	UpTo300:       "Up to 300 cm",
	From301To600:  "301 - 600 cm",
	From601To900:  "601 - 900 cm",
	From901To1200: "901 - 1200 cm",
	Over1200:      "More than 1200 cm",
}

var spreadRadius = [...]int{
	Unknown:       2,
	UpTo300:       3,
	From301To600:  6,
	From601To900:  9,
	From901To1200: 12,
	Over1200:      15,
}

// SpreadCategories lists every category, Unknown included.
func SpreadCategories() []SpreadCategory {
	return []SpreadCategory{Unknown, UpTo300, From301To600, From601To900, From901To1200, Over1200}
}

// ParseSpreadCategory maps a database label to its category. Unrecognised
// labels are Unknown.
func ParseSpreadCategory(label string) SpreadCategory {
	for i, l := range spreadLabels {
		if l == label {
			return SpreadCategory(i)
		}
	}
	return Unknown
}

func (s SpreadCategory) String() string {
	if int(s) >= len(spreadLabels) {
		return spreadLabels[Unknown]
	}
	return spreadLabels[s]
}

// Radius is the base point radius in pixels.
func (s SpreadCategory) Radius() int {
	if int(s) >= len(spreadRadius) {
		return spreadRadius[Unknown]
	}
	return spreadRadius[s]
}
