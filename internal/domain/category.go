package domain

import (
	"log/slog"
	"strings"
)

// Category is one of the ten crime categories, in input column order.
type Category int

const (
	Drug Category = iota
	Financial
	LowLevelProperty
	LowLevelViolent
	NonCriminal
	PublicOrder
	SevereProperty
	SevereViolent
	SexualOffenses
	Weapon

	// NumCategories is the size of the closed category set.
	NumCategories = 10
)

var categoryNames = [NumCategories]string{
	"drug",
	"financial",
	"low_level_property",
	"low_level_violent",
	"non_criminal",
	"public_order",
	"severe_property",
	"severe_violent",
	"sexual_offenses",
	"weapon",
}

// AllCategories returns every category in column order.
func AllCategories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

func (c Category) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryNames[c]
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	return c >= 0 && int(c) < NumCategories
}

// ParseCategory maps a tag such as "low_level_violent" to its Category.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return 0, false
}

// Style is the static presentation config for a category.
type Style struct {
	Color     string  `json:"color" yaml:"color"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DefaultStyle is returned for lookups of unknown categories.
var DefaultStyle = Style{Color: "#999999", Threshold: 0}

var defaultStyles = [NumCategories]Style{
	Drug:             {Color: "#1f77b4", Threshold: 10},
	Financial:        {Color: "#ff7f0e", Threshold: 10},
	LowLevelProperty: {Color: "#2ca02c", Threshold: 20},
	LowLevelViolent:  {Color: "#d62728", Threshold: 20},
	NonCriminal:      {Color: "#9467bd", Threshold: 10},
	PublicOrder:      {Color: "#8c564b", Threshold: 5},
	SevereProperty:   {Color: "#e377c2", Threshold: 10},
	SevereViolent:    {Color: "#7f7f7f", Threshold: 5},
	SexualOffenses:   {Color: "#bcbd22", Threshold: 2},
	Weapon:           {Color: "#17becf", Threshold: 5},
}

// BuiltinStyle returns the built-in style for cat, or DefaultStyle when cat
// is out of range.
func BuiltinStyle(cat Category) Style {
	if !cat.Valid() {
		return DefaultStyle
	}
	return defaultStyles[cat]
}

// Catalog holds the color and threshold for every category.
type Catalog struct {
	styles [NumCategories]Style
	logger *slog.Logger
}

// NewCatalog builds a catalog from the built-in defaults, overridden by any
// entries in overrides keyed by category tag. Unknown override keys are
// logged and ignored.
func NewCatalog(overrides map[string]Style, logger *slog.Logger) *Catalog {
	c := &Catalog{styles: defaultStyles, logger: logger}
	for name, style := range overrides {
		cat, ok := ParseCategory(name)
		if !ok {
			logger.Warn("ignoring style for unknown category", "category", name)
			continue
		}
		if style.Color == "" {
			style.Color = defaultStyles[cat].Color
		}
		c.styles[cat] = style
	}
	return c
}

// Style returns the style for a category.
func (c *Catalog) Style(cat Category) Style {
	if !cat.Valid() {
		c.logger.Warn("style lookup for unknown category", "category", int(cat))
		return DefaultStyle
	}
	return c.styles[cat]
}

// Lookup returns the style for a category tag, falling back to DefaultStyle.
func (c *Catalog) Lookup(name string) Style {
	cat, ok := ParseCategory(name)
	if !ok {
		c.logger.Warn("style lookup for unknown category", "category", name)
		return DefaultStyle
	}
	return c.styles[cat]
}

// Color returns the display color of a category.
func (c *Catalog) Color(cat Category) string { return c.Style(cat).Color }

// Threshold returns the visibility threshold of a category.
func (c *Catalog) Threshold(cat Category) float64 { return c.Style(cat).Threshold }
