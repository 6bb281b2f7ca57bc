// Package export turns path summaries and local sessions into CSV and XLSX
// sheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
	"github.com/zhaobenny/mpvwatch/internal/risk"
	"github.com/zhaobenny/mpvwatch/internal/store"
)

// Table is a header row plus data rows. Numeric lists the column indexes
// stored as numbers in XLSX.
type Table struct {
	Headers []string
	Rows    [][]string
	Numeric []int
}

// PathRow is one associate on one restricted path
type PathRow struct {
	Path    string  `json:"path"`
	Name    string  `json:"name"`
	BadgeID string  `json:"badge_id"`
	Hours   float64 `json:"hours"`
	Status  string  `json:"status"`
}

// LocalRow is one associate's manually clocked indirect time today
type LocalRow struct {
	Name          string   `json:"name"`
	BadgeID       string   `json:"badge_id"`
	IndirectHours float64  `json:"indirect_hours"`
	Roles         []string `json:"roles"`
	Status        string   `json:"status"`
}

// PathRows flattens a summary in restricted-path order, using short names
func PathRows(summary model.PathSummary, pol policy.Policy, ev *risk.Evaluator) []PathRow {
	var rows []PathRow
	for _, path := range pol.RestrictedPaths() {
		for _, a := range summary.Paths[path] {
			rows = append(rows, PathRow{
				Path:    pol.ShortName(path),
				Name:    a.Name,
				BadgeID: a.BadgeID,
				Hours:   a.Hours,
				Status:  ev.PathStatus(a.Minutes()),
			})
		}
	}
	return rows
}

// LocalRows reads every associate's indirect time for now's day
func LocalRows(db *store.DB, ev *risk.Evaluator, now time.Time) ([]LocalRow, error) {
	associates, err := db.Associates()
	if err != nil {
		return nil, fmt.Errorf("failed to list associates: %w", err)
	}

	rows := make([]LocalRow, 0, len(associates))
	for _, a := range associates {
		hours, err := db.IndirectHoursToday(a.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to total hours for %s: %w", a.BadgeID, err)
		}
		roles, err := db.IndirectRolesToday(a.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to list roles for %s: %w", a.BadgeID, err)
		}
		rows = append(rows, LocalRow{
			Name:          a.Name,
			BadgeID:       a.BadgeID,
			IndirectHours: hours,
			Roles:         roles,
			Status:        ev.IndirectStatus(hours),
		})
	}
	return rows, nil
}

// PathTable renders path rows with the portal export headers
func PathTable(rows []PathRow) Table {
	t := Table{Headers: []string{"Path", "Name", "Badge ID", "Hours", "Status"}, Numeric: []int{3}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Path, r.Name, r.BadgeID, fmt.Sprintf("%.2f", r.Hours), r.Status})
	}
	return t
}

// LocalTable renders local rows with the clock-in export headers
func LocalTable(rows []LocalRow) Table {
	t := Table{Headers: []string{"Name", "Badge ID", "Indirect Hours Today", "Indirect Roles", "Status"}, Numeric: []int{2}}
	for _, r := range rows {
		roles := "None"
		if len(r.Roles) > 0 {
			roles = strings.Join(r.Roles, ", ")
		}
		t.Rows = append(t.Rows, []string{r.Name, r.BadgeID, fmt.Sprintf("%.2f", r.IndirectHours), roles, r.Status})
	}
	return t
}

// WriteCSV writes the table as CSV
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteXLSX writes the table as a single-sheet workbook with a bold header
func WriteXLSX(w io.Writer, sheet string, t Table) error {
	numeric := make(map[int]bool, len(t.Numeric))
	for _, i := range t.Numeric {
		numeric[i] = true
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if len(t.Headers) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
			if !numeric[j] {
				continue
			}
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				values[j] = n
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
