package model

import "strings"

// RowKind identifies which report granularity a parsed row came from
type RowKind int

const (
	RowOther RowKind = iota
	RowJob
	RowFunction
	RowCorrection
)

// String returns the lowercase name used in JSON output
func (k RowKind) String() string {
	switch k {
	case RowJob:
		return "job"
	case RowFunction:
		return "function"
	case RowCorrection:
		return "correction"
	default:
		return "other"
	}
}

// MarshalText lets RowKind serialize as its name
func (k RowKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Work types of a consolidated entry
const (
	WorkDirect   = "DIRECT"
	WorkIndirect = "INDIRECT"
)

// ActivityRow is one row of the time details report
type ActivityRow struct {
	Title        string  `json:"title"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	DurationText string  `json:"duration"`
	Minutes      float64 `json:"duration_minutes"`
	Kind         RowKind `json:"row_kind"`
}

// Open reports whether the row is an interval that has not ended yet.
// Correction rows carry no interval and are never open.
func (r ActivityRow) Open() bool {
	return r.Kind != RowCorrection && strings.TrimSpace(r.End) == ""
}

// TimeDetails is the parsed time details report for one associate
type TimeDetails struct {
	EmployeeID     string        `json:"employee_id"`
	Sessions       []ActivityRow `json:"sessions"`
	Current        *ActivityRow  `json:"current_activity,omitempty"`
	ClockedIn      bool          `json:"is_clocked_in"`
	HoursOnTask    float64       `json:"hours_on_task"`
	ScheduledHours float64       `json:"total_scheduled_hours"`
}

// AssociateActivity is one associate row of a function rollup table
type AssociateActivity struct {
	BadgeID string  `json:"badge_id"`
	Name    string  `json:"name"`
	Hours   float64 `json:"hours"`
}

// Minutes returns the hours converted to minutes
func (a AssociateActivity) Minutes() float64 {
	return a.Hours * 60
}

// PathSummary holds associates per canonical restricted path plus the
// per-process errors collected while fetching it
type PathSummary struct {
	Paths  map[string][]AssociateActivity `json:"paths"`
	Errors []string                       `json:"errors,omitempty"`
}

// Total returns the number of associates across all paths
func (s PathSummary) Total() int {
	n := 0
	for _, aas := range s.Paths {
		n += len(aas)
	}
	return n
}

// ConsolidatedEntry merges every row of one activity into a display row
type ConsolidatedEntry struct {
	Key        string  `json:"key"`
	Path       string  `json:"path,omitempty"` // canonical restricted path, empty if unclassified
	WorkType   string  `json:"work_type"`
	Area       string  `json:"area"`
	Role       string  `json:"role"`
	Label      string  `json:"label"`
	Minutes    float64 `json:"minutes"`
	FirstStart string  `json:"first_start"`
	LastEnd    string  `json:"last_end"`
	Open       bool    `json:"open"`
}

// ShiftWindow is the night shift boundary used to scope report queries
type ShiftWindow struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
}
