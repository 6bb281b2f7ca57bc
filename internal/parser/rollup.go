package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
)

// PathSummary parses one function rollup report and appends associates
// into the map keyed by restricted path. Badges already present under a
// path are skipped, so repeated calls over several processes stay unique.
func PathSummary(html, process string, pol policy.Policy, into map[string][]model.AssociateActivity) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse function rollup: %w", err)
	}

	paths := pol.RestrictedPaths()
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		// Only leaf tables carry associate rows.
		if table.Find("table").Length() > 0 {
			return
		}
		inner, err := table.Html()
		if err != nil {
			return
		}

		var path string
		for _, p := range paths {
			if strings.Contains(inner, p) {
				path = p
				break
			}
		}
		if path == "" {
			return
		}
		if path == "Water Spider" && strings.Contains(process, "WHD") {
			path = "WHD Waterspider"
		}

		seen := make(map[string]bool)
		for _, aa := range into[path] {
			seen[aa.BadgeID] = true
		}

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			tds := cells(row)
			if len(tds) < 5 {
				return
			}
			if tds[0] != "AMZN" && tds[0] != "TEMP" {
				return
			}
			badge := tds[1]
			if !isDigits(badge) || seen[badge] {
				return
			}

			into[path] = append(into[path], model.AssociateActivity{
				BadgeID: badge,
				Name:    tds[2],
				Hours:   rowHours(tds),
			})
			seen[badge] = true
		})
	})
	return nil
}

// rowHours takes the last numeric cell after the name as the total.
// A zero total falls back to summing the per-period cells.
func rowHours(tds []string) float64 {
	var hours float64
	for i := len(tds) - 1; i > 2; i-- {
		if v, ok := number(tds[i]); ok {
			hours = v
			break
		}
	}
	if hours == 0 {
		for i := 4; i < len(tds)-1; i++ {
			if v, ok := number(tds[i]); ok {
				hours += v
			}
		}
	}
	return hours
}

func number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
