package domain

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseCategory(t *testing.T) {
	cat, ok := ParseCategory(" Low_Level_Violent ")
	assert.True(t, ok)
	assert.Equal(t, LowLevelViolent, cat)
	assert.Equal(t, "low_level_violent", cat.String())

	_, ok = ParseCategory("arson")
	assert.False(t, ok)
}

func TestAllCategories_ColumnOrder(t *testing.T) {
	cats := AllCategories()
	assert.Len(t, cats, NumCategories)
	assert.Equal(t, Drug, cats[0])
	assert.Equal(t, Weapon, cats[NumCategories-1])
	assert.Equal(t, "unknown", Category(-1).String())
}

func TestCatalog_Defaults(t *testing.T) {
	c := NewCatalog(nil, discardLogger())
	assert.Equal(t, "#1f77b4", c.Color(Drug))
	assert.Equal(t, 10.0, c.Threshold(Drug))
	assert.Equal(t, 2.0, c.Threshold(SexualOffenses))
}

func TestCatalog_Overrides(t *testing.T) {
	c := NewCatalog(map[string]Style{
		"drug":   {Color: "#000000", Threshold: 1},
		"weapon": {Threshold: 50},
		"arson":  {Color: "#ffffff"},
	}, discardLogger())

	assert.Equal(t, Style{Color: "#000000", Threshold: 1}, c.Style(Drug))
	assert.Equal(t, "#17becf", c.Color(Weapon), "empty color keeps default")
	assert.Equal(t, 50.0, c.Threshold(Weapon))
}

func TestCatalog_UnknownLookupWarns(t *testing.T) {
	var buf bytes.Buffer
	c := NewCatalog(nil, slog.New(slog.NewTextHandler(&buf, nil)))

	assert.Equal(t, DefaultStyle, c.Lookup("arson"))
	assert.Equal(t, DefaultStyle, c.Style(Category(99)))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "arson")

	assert.Equal(t, 5.0, c.Lookup("weapon").Threshold)
}
