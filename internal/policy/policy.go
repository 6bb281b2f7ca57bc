package policy

import "github.com/zhaobenny/mpvwatch/internal/model"

const (
	// DefaultBaseURL is the time and attendance portal
	DefaultBaseURL = "https://fclm-portal.amazon.com"
	// DefaultWarehouse is used when no warehouse id is configured
	DefaultWarehouse = "IND8"
	// UserAgent identifies the client to the portal
	UserAgent = "IND8Tracker/2.0"

	ShiftStartHour = 18
	ShiftEndHour   = 6
)

// Process is one function rollup report the path summary is built from
type Process struct {
	Name string
	ID   string
}

// PathInfo describes how an activity title is accounted for
type PathInfo struct {
	WorkType string
	Area     string
	Role     string
}

// WorkCode maps a short work code to its canonical restricted path
type WorkCode struct {
	Code string
	Path string
}

// Policy holds the read-only lookup tables shared by the engine.
// Accessors return copies so callers cannot mutate it.
type Policy struct {
	processes     []Process
	restricted    []string
	pathMap       map[string]PathInfo
	shortNames    map[string]string
	workCodes     []WorkCode
	ceiling       float64
	nearLimit     float64
	warningHours  float64
	indirectLimit float64
}

// Default returns the IND8 policy
func Default() Policy {
	return Policy{
		processes: []Process{
			{Name: "C-Returns Support", ID: "1003058"},
			{Name: "C-Returns Processed", ID: "1003026"},
			{Name: "V-Returns", ID: "1003059"},
			{Name: "WHD Grading", ID: "1002979"},
			{Name: "WHD Grading Support", ID: "1003060"},
		},
		restricted: []string{
			"Vreturns WaterSpider",
			"C-Returns_EndofLine",
			"Water Spider",
			"WHD Waterspider",
			"WHD Water Spider",
			"Team_Mech_Wspider",
		},
		pathMap: map[string]PathInfo{
			"C-Returns_EndofLine":  {model.WorkIndirect, "CRET", "Water Spider"},
			"Vreturns WaterSpider": {model.WorkIndirect, "VRET", "Water Spider"},
			"Water Spider":         {model.WorkIndirect, "CRET", "Water Spider"},
			"WHD Waterspider":      {model.WorkIndirect, "CRET", "Water Spider"},
			"WHD Water Spider":     {model.WorkIndirect, "CRET", "Water Spider"},
			"Team_Mech_Wspider":    {model.WorkIndirect, "CRET", "Water Spider"},
			"C-Returns Support":    {model.WorkDirect, "CRET", "N/A"},
			"C-Returns Processed":  {model.WorkDirect, "CRET", "N/A"},
			"V-Returns":            {model.WorkDirect, "VRET", "N/A"},
			"WHD Grading":          {model.WorkDirect, "CRET", "Down Stack"},
			"WHD Grading Support":  {model.WorkDirect, "CRET", "Down Stack"},
		},
		shortNames: map[string]string{
			"C-Returns_EndofLine":  "CREOL",
			"Vreturns WaterSpider": "VRWS",
			"Water Spider":         "CRSDCNTF",
			"WHD Waterspider":      "WHDWTSP",
			"WHD Water Spider":     "WHDWTSP",
			"Team_Mech_Wspider":    "TMWSP",
		},
		workCodes: []WorkCode{
			{Code: "CREOL", Path: "C-Returns_EndofLine"},
			{Code: "EOL", Path: "C-Returns_EndofLine"},
			{Code: "VRWS", Path: "Vreturns WaterSpider"},
			{Code: "VRETWS", Path: "Vreturns WaterSpider"},
			{Code: "CRSDCNTF", Path: "Water Spider"},
			{Code: "WHDWTSP", Path: "WHD Waterspider"},
			{Code: "TMWSP", Path: "Team_Mech_Wspider"},
		},
		ceiling:       270,
		nearLimit:     210,
		warningHours:  5,
		indirectLimit: 6,
	}
}

// Processes returns the rollup processes in query order
func (p Policy) Processes() []Process {
	return append([]Process(nil), p.processes...)
}

// RestrictedPaths returns the restricted path names in declaration order
func (p Policy) RestrictedPaths() []string {
	return append([]string(nil), p.restricted...)
}

// IsRestricted reports whether name is a configured restricted path
func (p Policy) IsRestricted(name string) bool {
	for _, r := range p.restricted {
		if r == name {
			return true
		}
	}
	return false
}

// PathInfo looks up the accounting info for an exact title or path name
func (p Policy) PathInfo(name string) (PathInfo, bool) {
	info, ok := p.pathMap[name]
	return info, ok
}

// ShortName returns the work code shown for a path, or the path itself
func (p Policy) ShortName(path string) string {
	if s, ok := p.shortNames[path]; ok {
		return s
	}
	return path
}

// WorkCodes returns the code to path table in match order
func (p Policy) WorkCodes() []WorkCode {
	return append([]WorkCode(nil), p.workCodes...)
}

// CeilingMinutes is the time allowed on one restricted path per shift
func (p Policy) CeilingMinutes() float64 { return p.ceiling }

// NearLimitMinutes is where a path row turns from OK to near limit
func (p Policy) NearLimitMinutes() float64 { return p.nearLimit }

// WarningHours is the indirect hours warning threshold
func (p Policy) WarningHours() float64 { return p.warningHours }

// IndirectLimitHours is the indirect hours violation threshold
func (p Policy) IndirectLimitHours() float64 { return p.indirectLimit }
