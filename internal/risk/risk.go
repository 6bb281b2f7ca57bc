package risk

import (
	"fmt"
	"strings"

	"github.com/zhaobenny/mpvwatch/internal/classify"
	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

// Level grades time spent against a limit
type Level int

const (
	LevelOK Level = iota
	LevelWarning
	LevelViolation
)

// Evaluator decides whether moving an associate onto a work code is an MPV
type Evaluator struct {
	pol        policy.Policy
	classifier *classify.Classifier
}

// New creates an evaluator
func New(pol policy.Policy, classifier *classify.Classifier) *Evaluator {
	return &Evaluator{pol: pol, classifier: classifier}
}

// ResolveWorkCode maps a free-text work code to its restricted path. Codes
// match exactly or when either is a prefix of the other.
func (e *Evaluator) ResolveWorkCode(code string) (string, bool) {
	upper := strings.ToUpper(strings.NewReplacer(" ", "", "_", "").Replace(code))
	if upper == "" {
		return "", false
	}
	for _, wc := range e.pol.WorkCodes() {
		if upper == wc.Code || strings.HasPrefix(upper, wc.Code) || strings.HasPrefix(wc.Code, upper) {
			return wc.Path, true
		}
	}
	return "", false
}

// Evaluate checks a path switch first, then the time ceiling on the target
func (e *Evaluator) Evaluate(sessions []model.ActivityRow, workCode string) model.RiskResult {
	times, worked := e.classifier.PathTimes(sessions)
	result := model.RiskResult{
		Reason:      model.ReasonNone,
		WorkedPaths: worked,
		PathTimes:   times,
	}
	if result.WorkedPaths == nil {
		result.WorkedPaths = []string{}
	}

	target, ok := e.ResolveWorkCode(workCode)
	if !ok {
		return result
	}
	result.TargetPath = target

	for _, p := range worked {
		if p != target {
			result.HasRisk = true
			result.Reason = model.ReasonPathSwitch
			result.Details = fmt.Sprintf("Already worked %s (%s). Cannot switch to %s.",
				p, FormatMinutes(times[p]), target)
			return result
		}
	}

	ceiling := e.pol.CeilingMinutes()
	current := times[target]
	if current >= ceiling {
		result.HasRisk = true
		result.Reason = model.ReasonTimeExceeded
		result.Details = fmt.Sprintf("Already %s on %s. Max allowed is %s.",
			FormatMinutes(current), target, FormatMinutes(ceiling))
		return result
	}

	if current > 0 {
		remaining := ceiling - current
		result.RemainingMinutes = &remaining
		result.CurrentMinutes = &current
	}
	return result
}

// PathLevel grades minutes on one restricted path against the ceiling
func (e *Evaluator) PathLevel(minutes float64) Level {
	switch {
	case minutes >= e.pol.CeilingMinutes():
		return LevelViolation
	case minutes >= e.pol.NearLimitMinutes():
		return LevelWarning
	default:
		return LevelOK
	}
}

// IndirectLevel grades indirect hours against the daily limits
func (e *Evaluator) IndirectLevel(hours float64) Level {
	switch {
	case hours >= e.pol.IndirectLimitHours():
		return LevelViolation
	case hours >= e.pol.WarningHours():
		return LevelWarning
	default:
		return LevelOK
	}
}

// PathStatus is the status text of a path summary row
func (e *Evaluator) PathStatus(minutes float64) string {
	switch e.PathLevel(minutes) {
	case LevelViolation:
		return "VIOLATION"
	case LevelWarning:
		return "Near limit"
	default:
		return "OK"
	}
}

// IndirectStatus is the status text for indirect hours worked today
func (e *Evaluator) IndirectStatus(hours float64) string {
	switch e.IndirectLevel(hours) {
	case LevelViolation:
		return "VIOLATION (MPV risk)"
	case LevelWarning:
		return "Near violation"
	default:
		return "OK"
	}
}

// FormatMinutes renders whole minutes as "Hh Mm", "Hh" or "Mm"
func FormatMinutes(minutes float64) string {
	total := int(minutes)
	if total < 0 {
		total = 0
	}
	h, m := total/60, total%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
