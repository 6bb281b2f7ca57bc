package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/zhaobenny/mpvwatch/internal/aggregator"
	"github.com/zhaobenny/mpvwatch/internal/export"
	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/risk"
)

const (
	compactThreshold = 100 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

var (
	okColor        = color.New(color.FgGreen)
	warnColor      = color.New(color.FgYellow)
	violationColor = color.New(color.FgRed, color.Bold)
	dimColor       = color.New(color.FgHiBlack)
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// columnsFromEnv reads the COLUMNS override
func columnsFromEnv() (int, bool) {
	width, err := strconv.Atoi(os.Getenv("COLUMNS"))
	return width, err == nil && width > 0
}

// shouldUseCompact determines if compact mode should be used
func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return getTerminalWidth() < compactThreshold
}

// levelColor picks the status color for a level
func levelColor(l risk.Level) *color.Color {
	switch l {
	case risk.LevelViolation:
		return violationColor
	case risk.LevelWarning:
		return warnColor
	default:
		return okColor
	}
}

// pad left-aligns s in width runes, cutting it if longer
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

// PrintEntries prints consolidated activity for one associate
func PrintEntries(entries []model.ConsolidatedEntry, opts TableOptions) {
	if len(entries) == 0 {
		fmt.Println("No activity found for this shift.")
		return
	}

	compact := shouldUseCompact(opts)

	fmt.Println()
	if compact {
		fmt.Printf("%-20s  %-8s  %8s  %-6s\n", "Activity", "Type", "Time", "End")
		fmt.Println(strings.Repeat("─", 20+2+8+2+8+2+6))
	} else {
		fmt.Printf("%-20s  %-8s  %-6s  %-14s  %8s  %-8s  %-8s\n",
			"Activity", "Type", "Area", "Role", "Time", "Start", "End")
		fmt.Println(strings.Repeat("─", 20+2+8+2+6+2+14+2+8+2+8+2+8))
	}

	for _, e := range entries {
		end := e.LastEnd
		if e.Open {
			end = "open"
		}
		kind := pad(e.WorkType, 8)
		if e.WorkType == model.WorkIndirect {
			kind = warnColor.Sprint(kind)
		}

		if compact {
			fmt.Printf("%s  %s  %8s  %-6s\n", pad(e.Label, 20), kind, risk.FormatMinutes(e.Minutes), end)
			continue
		}
		fmt.Printf("%s  %s  %s  %s  %8s  %-8s  %-8s\n",
			pad(e.Label, 20), kind, pad(e.Area, 6), pad(e.Role, 14),
			risk.FormatMinutes(e.Minutes), e.FirstStart, end)
	}
	fmt.Println()
}

// PrintSummary prints the indirect total and paths worked
func PrintSummary(s aggregator.Summary, ev *risk.Evaluator) {
	hours := s.IndirectHours()
	status := levelColor(ev.IndirectLevel(hours)).Sprint(ev.IndirectStatus(hours))

	fmt.Printf("Indirect time:  %s (%.2fh)  %s\n", risk.FormatMinutes(s.IndirectMinutes), hours, status)
	if len(s.Paths) > 0 {
		fmt.Printf("Paths worked:   %s\n", strings.Join(s.Paths, ", "))
	}
	if s.Current != "" {
		fmt.Printf("Current:        %s\n", s.Current)
	} else {
		fmt.Println(dimColor.Sprint("Current:        not clocked into an activity"))
	}
	if s.HoursOnTask > 0 {
		fmt.Printf("Hours on task:  %.2f / %.2f\n", s.HoursOnTask, s.ScheduledHours)
	}
	fmt.Println()
}

// PrintRisk prints the outcome of a work code check
func PrintRisk(r model.RiskResult) {
	if r.TargetPath == "" {
		fmt.Println("Work code is not a restricted path; no MPV check applies.")
		return
	}
	if r.HasRisk {
		fmt.Printf("%s  %s\n", violationColor.Sprint("MPV RISK ("+r.Reason.String()+")"), r.Details)
		return
	}
	msg := fmt.Sprintf("OK to assign %s.", r.TargetPath)
	if r.RemainingMinutes != nil && r.CurrentMinutes != nil {
		msg += fmt.Sprintf(" %s worked, %s remaining.",
			risk.FormatMinutes(*r.CurrentMinutes), risk.FormatMinutes(*r.RemainingMinutes))
	}
	fmt.Println(okColor.Sprint(msg))
}

// PrintPaths prints associates per restricted path
func PrintPaths(rows []export.PathRow, ev *risk.Evaluator, errs []string, opts TableOptions) {
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, warnColor.Sprint("warning: "+e))
	}
	if len(rows) == 0 {
		fmt.Println("No associates on restricted paths this shift.")
		return
	}

	nameWidth := 24
	if shouldUseCompact(opts) {
		nameWidth = 14
	}

	fmt.Println()
	fmt.Printf("%-9s  %s  %-10s  %6s  %s\n", "Path", pad("Name", nameWidth), "Badge", "Hours", "Status")
	fmt.Println(strings.Repeat("─", 9+2+nameWidth+2+10+2+6+2+10))

	for _, r := range rows {
		level := ev.PathLevel(r.Hours * 60)
		fmt.Printf("%-9s  %s  %-10s  %6.2f  %s\n",
			r.Path, pad(r.Name, nameWidth), r.BadgeID, r.Hours, levelColor(level).Sprint(r.Status))
	}
	fmt.Println()
}

// PrintLocal prints manually clocked indirect time per associate
func PrintLocal(rows []export.LocalRow, ev *risk.Evaluator) {
	if len(rows) == 0 {
		fmt.Println("No associates recorded.")
		return
	}

	fmt.Println()
	fmt.Printf("%s  %-10s  %6s  %s\n", pad("Name", 24), "Badge", "Hours", "Status")
	fmt.Println(strings.Repeat("─", 24+2+10+2+6+2+20))
	for _, r := range rows {
		fmt.Printf("%s  %-10s  %6.2f  %s\n",
			pad(r.Name, 24), r.BadgeID, r.IndirectHours,
			levelColor(ev.IndirectLevel(r.IndirectHours)).Sprint(r.Status))
	}
	fmt.Println()
}

// PrintJSON outputs v as indented JSON
func PrintJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
