package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaobenny/mpvwatch/internal/classify"
	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

func newEvaluator() *Evaluator {
	pol := policy.Default()
	return New(pol, classify.New(pol))
}

func rows(title string, minutes ...float64) []model.ActivityRow {
	var out []model.ActivityRow
	for _, m := range minutes {
		out = append(out, model.ActivityRow{Title: title, End: "x", Minutes: m, Kind: model.RowJob})
	}
	return out
}

func TestEvaluatePathSwitchWinsOverTime(t *testing.T) {
	e := newEvaluator()

	r := e.Evaluate(rows("C-Returns_EndofLine", 10), "VRWS")

	assert.True(t, r.HasRisk)
	assert.Equal(t, model.ReasonPathSwitch, r.Reason)
	assert.Equal(t, "Vreturns WaterSpider", r.TargetPath)
	assert.Equal(t, []string{"C-Returns_EndofLine"}, r.WorkedPaths)
	assert.Equal(t, "Already worked C-Returns_EndofLine (10m). Cannot switch to Vreturns WaterSpider.", r.Details)
	assert.Nil(t, r.RemainingMinutes)
}

func TestEvaluateSwitchWhenTargetAlsoWorked(t *testing.T) {
	e := newEvaluator()
	sessions := append(rows("Water Spider", 30), rows("Team_Mech_Wspider", 5)...)

	r := e.Evaluate(sessions, "CRSDCNTF")

	assert.Equal(t, model.ReasonPathSwitch, r.Reason)
}

func TestEvaluateCeiling(t *testing.T) {
	e := newEvaluator()

	r := e.Evaluate(rows("C-Returns_EndofLine", 200, 70), "CREOL")
	assert.True(t, r.HasRisk)
	assert.Equal(t, model.ReasonTimeExceeded, r.Reason)
	assert.Equal(t, "Already 4h 30m on C-Returns_EndofLine. Max allowed is 4h 30m.", r.Details)

	r = e.Evaluate(rows("C-Returns_EndofLine", 200, 69), "creol")
	assert.False(t, r.HasRisk)
	assert.Equal(t, model.ReasonNone, r.Reason)
	require.NotNil(t, r.RemainingMinutes)
	require.NotNil(t, r.CurrentMinutes)
	assert.InDelta(t, 1, *r.RemainingMinutes, 1e-9)
	assert.InDelta(t, 269, *r.CurrentMinutes, 1e-9)
}

func TestEvaluateWithoutTarget(t *testing.T) {
	e := newEvaluator()

	r := e.Evaluate(rows("Water Spider", 45), "PICK")

	assert.False(t, r.HasRisk)
	assert.Empty(t, r.TargetPath)
	assert.Equal(t, map[string]float64{"Water Spider": 45}, r.PathTimes)

	r = e.Evaluate(nil, "")
	assert.Equal(t, []string{}, r.WorkedPaths)
	assert.Empty(t, r.PathTimes)
}

func TestEvaluateFreshTarget(t *testing.T) {
	e := newEvaluator()

	r := e.Evaluate(rows("Pick", 120), "TMWSP")

	assert.False(t, r.HasRisk)
	assert.Equal(t, "Team_Mech_Wspider", r.TargetPath)
	assert.Nil(t, r.RemainingMinutes)
}

func TestResolveWorkCode(t *testing.T) {
	e := newEvaluator()

	tests := []struct {
		code string
		want string
		ok   bool
	}{
		{"CREOL", "C-Returns_EndofLine", true},
		{"eol", "C-Returns_EndofLine", true},
		{"vret ws", "Vreturns WaterSpider", true},
		{"VRWS_2", "Vreturns WaterSpider", true},
		{"WHD", "WHD Waterspider", true},
		{"TM", "Team_Mech_Wspider", true},
		{"PICK", "", false},
		{" ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := e.ResolveWorkCode(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "4h 30m", FormatMinutes(270))
	assert.Equal(t, "2h", FormatMinutes(120))
	assert.Equal(t, "45m", FormatMinutes(45.9))
	assert.Equal(t, "0m", FormatMinutes(0))
}

func TestStatuses(t *testing.T) {
	e := newEvaluator()

	assert.Equal(t, "VIOLATION", e.PathStatus(270))
	assert.Equal(t, "Near limit", e.PathStatus(210))
	assert.Equal(t, "OK", e.PathStatus(209))

	assert.Equal(t, "VIOLATION (MPV risk)", e.IndirectStatus(6))
	assert.Equal(t, "Near violation", e.IndirectStatus(5))
	assert.Equal(t, "OK", e.IndirectStatus(4.9))
}
