package model

// RiskReason names the rule that produced a risk verdict
type RiskReason int

const (
	ReasonNone RiskReason = iota
	ReasonPathSwitch
	ReasonTimeExceeded
)

func (r RiskReason) String() string {
	switch r {
	case ReasonPathSwitch:
		return "PATH_SWITCH"
	case ReasonTimeExceeded:
		return "TIME_EXCEEDED"
	default:
		return "NONE"
	}
}

// MarshalText lets RiskReason serialize as its name
func (r RiskReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// RiskResult is the MPV verdict for moving an associate onto a work code
type RiskResult struct {
	HasRisk          bool               `json:"has_risk"`
	Reason           RiskReason         `json:"reason"`
	Details          string             `json:"details,omitempty"`
	WorkedPaths      []string           `json:"worked_paths"`
	TargetPath       string             `json:"target_path,omitempty"`
	PathTimes        map[string]float64 `json:"path_times"`
	RemainingMinutes *float64           `json:"remaining_minutes,omitempty"`
	CurrentMinutes   *float64           `json:"current_minutes,omitempty"`
}
