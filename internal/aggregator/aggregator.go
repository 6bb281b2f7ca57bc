package aggregator

import (
	"github.com/zhaobenny/mpvwatch/internal/classify"
	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

const labelWidth = 20

// Summary is the per-associate rollup shown next to consolidated entries
type Summary struct {
	IndirectMinutes float64  `json:"indirect_minutes"`
	Paths           []string `json:"paths"`
	Current         string   `json:"current,omitempty"`
	HoursOnTask     float64  `json:"hours_on_task"`
	ScheduledHours  float64  `json:"scheduled_hours"`
	Sessions        int      `json:"sessions"`
}

// IndirectHours returns the indirect minutes as hours
func (s Summary) IndirectHours() float64 {
	return s.IndirectMinutes / 60
}

// Consolidator merges report rows of the same activity into one entry
type Consolidator struct {
	pol        policy.Policy
	classifier *classify.Classifier
}

// New creates a consolidator
func New(pol policy.Policy, classifier *classify.Classifier) *Consolidator {
	return &Consolidator{pol: pol, classifier: classifier}
}

// Consolidate groups sessions by restricted path, or by exact title when
// unclassified, keeping first-seen order. An entry that saw an open row
// stays open.
func (c *Consolidator) Consolidate(sessions []model.ActivityRow) []model.ConsolidatedEntry {
	grouped := make(map[string]*model.ConsolidatedEntry)
	var order []string

	for _, s := range sessions {
		e := c.Describe(s.Title)
		if agg, ok := grouped[e.Key]; ok {
			agg.Minutes += s.Minutes
			switch {
			case s.Open():
				agg.Open = true
				agg.LastEnd = ""
			case s.Kind == model.RowCorrection:
			case !agg.Open && s.End != "":
				agg.LastEnd = s.End
			}
			continue
		}

		e.Minutes = s.Minutes
		e.FirstStart = s.Start
		if s.Open() {
			e.Open = true
		} else {
			e.LastEnd = s.End
		}
		grouped[e.Key] = &e
		order = append(order, e.Key)
	}

	results := make([]model.ConsolidatedEntry, 0, len(order))
	for _, key := range order {
		results = append(results, *grouped[key])
	}
	return results
}

// Describe classifies a title into the entry it is grouped under, without
// any minutes or times
func (c *Consolidator) Describe(title string) model.ConsolidatedEntry {
	if path, ok := c.classifier.Classify(title); ok {
		e := model.ConsolidatedEntry{
			Key:      path,
			Path:     path,
			WorkType: model.WorkIndirect,
			Area:     "CRET",
			Role:     "Water Spider",
		}
		if info, ok := c.pol.PathInfo(path); ok {
			e.Area, e.Role = info.Area, info.Role
		}
		e.Label = e.Role
		return e
	}

	if info, ok := c.pol.PathInfo(title); ok {
		e := model.ConsolidatedEntry{
			Key:      title,
			WorkType: info.WorkType,
			Area:     info.Area,
			Role:     info.Role,
			Label:    truncate(title),
		}
		if info.WorkType == model.WorkIndirect {
			e.Label = info.Role
		}
		return e
	}

	return model.ConsolidatedEntry{
		Key:      title,
		WorkType: model.WorkDirect,
		Area:     "--",
		Role:     "--",
		Label:    truncate(title),
	}
}

// Summarize totals indirect time and the restricted paths worked
func Summarize(details model.TimeDetails, entries []model.ConsolidatedEntry) Summary {
	s := Summary{
		HoursOnTask:    details.HoursOnTask,
		ScheduledHours: details.ScheduledHours,
		Sessions:       len(details.Sessions),
	}
	if details.Current != nil {
		s.Current = details.Current.Title
	}
	for _, e := range entries {
		if e.WorkType == model.WorkIndirect {
			s.IndirectMinutes += e.Minutes
		}
		if e.Path != "" {
			s.Paths = append(s.Paths, e.Path)
		}
	}
	return s
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > labelWidth {
		return string(r[:labelWidth])
	}
	return s
}
