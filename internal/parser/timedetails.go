package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

const diamond = "♦"

var hoursOnTaskRe = regexp.MustCompile(`Hours on Task:\s*([\d.]+)\s*/\s*([\d.]+)`)

// rowKind maps a row's class attribute to its report granularity.
// Clock rows share the function layout but are kept as sessions.
func rowKind(class string) (kind model.RowKind, functionLayout bool) {
	switch {
	case strings.Contains(class, "job-seg"):
		return model.RowJob, false
	case strings.Contains(class, "function-seg"):
		return model.RowFunction, true
	case strings.Contains(class, "clock-seg"):
		return model.RowOther, true
	default:
		return model.RowOther, false
	}
}

// TimeDetails parses the time details report of one associate. A page
// without the gantt chart table yields an empty result, not an error.
func TimeDetails(html, employeeID string) (model.TimeDetails, error) {
	result := model.TimeDetails{EmployeeID: employeeID}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return result, fmt.Errorf("failed to parse time details: %w", err)
	}

	table := doc.Find(`table[class*="ganttChart"]`).First()
	if table.Length() == 0 {
		return result, nil
	}

	functionTotals := make(map[string]float64)
	var functionOrder []string

	table.Find("tr[class]").Each(func(_ int, row *goquery.Selection) {
		class, _ := row.Attr("class")
		if strings.Contains(class, "totSummary") || row.Find("th").Length() > 0 {
			return
		}
		tds := cells(row)
		if len(tds) < 4 {
			return
		}

		kind, functionLayout := rowKind(class)
		var title, start, end, duration string
		switch {
		case kind == model.RowJob:
			if len(tds) < 5 {
				return
			}
			title, start, end, duration = tds[1], tds[2], tds[3], tds[4]
		case functionLayout:
			title = tds[0]
			if i := strings.LastIndex(title, diamond); i >= 0 {
				title = strings.TrimSpace(title[i+len(diamond):])
			}
			start, end, duration = tds[1], tds[2], tds[3]
		case len(tds) >= 5 && len([]rune(tds[0])) <= 2:
			title, start, end, duration = tds[1], tds[2], tds[3], tds[4]
		default:
			title, start, end, duration = tds[0], tds[1], tds[2], tds[3]
		}

		if title == "" || strings.Contains(title, "OffClock") || strings.Contains(title, "OnClock") {
			return
		}

		minutes := Duration(duration)
		if kind == model.RowFunction {
			if _, ok := functionTotals[title]; !ok {
				functionOrder = append(functionOrder, title)
			}
			functionTotals[title] += minutes
			return
		}

		result.Sessions = append(result.Sessions, model.ActivityRow{
			Title:        title,
			Start:        start,
			End:          end,
			DurationText: duration,
			Minutes:      minutes,
			Kind:         kind,
		})
	})

	for i := range result.Sessions {
		if result.Sessions[i].Open() {
			current := result.Sessions[i]
			result.Current = &current
			result.ClockedIn = true
			break
		}
	}

	result.Sessions = append(result.Sessions, corrections(result.Sessions, functionTotals, functionOrder)...)

	if m := hoursOnTaskRe.FindStringSubmatch(html); m != nil {
		onTask, err1 := strconv.ParseFloat(m[1], 64)
		scheduled, err2 := strconv.ParseFloat(m[2], 64)
		if err1 == nil && err2 == nil {
			result.HoursOnTask = onTask
			result.ScheduledHours = scheduled
		}
	}

	return result, nil
}

// corrections synthesizes one session per title whose function total
// exceeds the sum of its job rows, carrying the difference
func corrections(sessions []model.ActivityRow, functionTotals map[string]float64, order []string) []model.ActivityRow {
	jobTotals := make(map[string]float64)
	for _, s := range sessions {
		if s.Kind == model.RowJob {
			jobTotals[s.Title] += s.Minutes
		}
	}

	var out []model.ActivityRow
	for _, title := range order {
		diff := functionTotals[title] - jobTotals[title]
		if diff <= 0 {
			continue
		}
		out = append(out, model.ActivityRow{
			Title:        title,
			DurationText: FormatDuration(diff),
			Minutes:      diff,
			Kind:         model.RowCorrection,
		})
	}
	return out
}
