package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

func TestClassify(t *testing.T) {
	c := New(policy.Default())

	tests := []struct {
		name  string
		title string
		want  string
		ok    bool
	}{
		{"exact name", "Water Spider", "Water Spider", true},
		{"exact wins over containment", "water_spider", "Water Spider", true},
		{"input contains path", "CRET Vreturns WaterSpider AM", "Vreturns WaterSpider", true},
		{"path contains input", "EndofLine", "C-Returns_EndofLine", true},
		{"longest contained name wins", "WHD WaterSpider Dock", "WHD Waterspider", true},
		{"shorter name inside longer", "water spider 2", "Water Spider", true},
		{"hyphenated is not normalized", "Dock Water-Spider", "", false},
		{"eol keyword", "CRET EOL", "C-Returns_EndofLine", true},
		{"team mech keyword", "TeamMech-Flow", "Team_Mech_Wspider", true},
		{"tmwsp code", "TMWSP", "Team_Mech_Wspider", true},
		{"direct work", "C-Returns Processed", "", false},
		{"empty", "", "", false},
		{"whitespace only", "  _ ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Classify(tt.title)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyContainmentIsSymmetric(t *testing.T) {
	c := New(policy.Default())

	longer, ok := c.Classify("Night Team_Mech_Wspider Line 2")
	assert.True(t, ok)
	shorter, ok2 := c.Classify("mech wspider")
	assert.True(t, ok2)
	assert.Equal(t, longer, shorter)
}

func TestPathTimes(t *testing.T) {
	c := New(policy.Default())

	times, order := c.PathTimes([]model.ActivityRow{
		{Title: "C-Returns_EndofLine", Minutes: 30},
		{Title: "Pick", Minutes: 60},
		{Title: "Water Spider", Minutes: 0},
		{Title: "CRET EOL", Minutes: 15},
		{Title: "Water Spider", Minutes: -5},
	})

	assert.Equal(t, []string{"C-Returns_EndofLine", "Water Spider"}, order)
	assert.Equal(t, map[string]float64{"C-Returns_EndofLine": 45, "Water Spider": 0}, times)
}
