package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zhaobenny/mpvwatch/cli/internal/output"
	"github.com/zhaobenny/mpvwatch/internal/export"
	"github.com/zhaobenny/mpvwatch/internal/risk"
	"github.com/zhaobenny/mpvwatch/internal/store"
)

func clockUsage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(os.Stderr, `Usage: mpvwatch clock <command> [options]

Commands:
  start <badge> <activity>   End any open session and start a new one
  stop <badge>               End the open session
  hours <badge>              Show indirect hours recorded today
  export                     Show or export every associate's indirect time today

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  mpvwatch clock start 12345678 "Water Spider" --name "Jane Doe"
  mpvwatch clock stop 12345678
  mpvwatch clock export --csv today.csv
`)
	}
}

// openStore opens and migrates the local session database
func openStore(a *app) *store.DB {
	path, err := a.cfg.Database()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating database: %v\n", err)
		os.Exit(1)
	}
	db, err := store.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		fmt.Fprintf(os.Stderr, "Error migrating database: %v\n", err)
		os.Exit(1)
	}
	return db
}

func runClock(args []string) {
	fs := flag.NewFlagSet("clock", flag.ExitOnError)
	var (
		name     string
		csvPath  string
		xlsxPath string
	)
	fs.StringVar(&name, "name", "", "Associate name (start only; defaults to the badge)")
	fs.StringVar(&csvPath, "csv", "", "Write CSV to this file (export only)")
	fs.StringVar(&xlsxPath, "xlsx", "", "Write an XLSX workbook to this file (export only)")
	fs.Usage = clockUsage(fs)

	positional := parseArgs(fs, args)
	if len(positional) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	a := newApp(false)
	db := openStore(a)
	defer db.Close()

	now := time.Now()
	switch cmd, rest := positional[0], positional[1:]; cmd {
	case "start":
		if len(rest) < 2 {
			fs.Usage()
			os.Exit(1)
		}
		clockStart(a, db, rest[0], strings.Join(rest[1:], " "), name, now)

	case "stop":
		if len(rest) != 1 {
			fs.Usage()
			os.Exit(1)
		}
		clockStop(db, rest[0], now)

	case "hours":
		if len(rest) != 1 {
			fs.Usage()
			os.Exit(1)
		}
		clockHours(a.evaluator, db, rest[0], now)

	case "export":
		rows, err := export.LocalRows(db, a.evaluator, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if csvPath == "" && xlsxPath == "" {
			output.PrintLocal(rows, a.evaluator)
			return
		}
		if err := writeTableFiles(export.LocalTable(rows), "Indirect Hours", csvPath, xlsxPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown clock command: %s\n", cmd)
		fs.Usage()
		os.Exit(1)
	}
}

func clockStart(a *app, db *store.DB, badge, activity, name string, now time.Time) {
	id, err := db.GetOrCreateAssociate(badge, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	e := a.consolidator.Describe(activity)
	if err := db.StartSession(id, e.WorkType, e.Area, e.Role, now); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Started %s (%s, %s) for %s at %s.\n", activity, e.WorkType, e.Role, badge, now.Format("15:04"))

	hours, err := db.IndirectHoursToday(id, now)
	if err == nil && a.evaluator.IndirectLevel(hours) != risk.LevelOK {
		fmt.Printf("Warning: %s already has %.2fh indirect today (%s).\n", badge, hours, a.evaluator.IndirectStatus(hours))
	}
}

func clockStop(db *store.DB, badge string, now time.Time) {
	assoc, err := db.FindAssociate(badge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if assoc == nil {
		fmt.Printf("No sessions recorded for %s.\n", badge)
		return
	}

	ended, err := db.EndActiveSession(assoc.ID, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if !ended {
		fmt.Printf("%s has no open session.\n", badge)
		return
	}
	fmt.Printf("Stopped session for %s at %s.\n", badge, now.Format("15:04"))
}

func clockHours(ev *risk.Evaluator, db *store.DB, badge string, now time.Time) {
	assoc, err := db.FindAssociate(badge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if assoc == nil {
		fmt.Printf("No sessions recorded for %s.\n", badge)
		return
	}

	hours, err := db.IndirectHoursToday(assoc.ID, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	roles, err := db.IndirectRolesToday(assoc.ID, now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	output.PrintLocal([]export.LocalRow{{
		Name:          assoc.Name,
		BadgeID:       assoc.BadgeID,
		IndirectHours: hours,
		Roles:         roles,
		Status:        ev.IndirectStatus(hours),
	}}, ev)
}
