package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/zhaobenny/mpvwatch/cli/internal/config"
	"github.com/zhaobenny/mpvwatch/cli/internal/output"
	"github.com/zhaobenny/mpvwatch/internal/aggregator"
	"github.com/zhaobenny/mpvwatch/internal/export"
	"github.com/zhaobenny/mpvwatch/internal/model"
	"github.com/zhaobenny/mpvwatch/internal/policy"
	"github.com/zhaobenny/mpvwatch/internal/report"
)

const version = "0.3.0"

func usage() {
	fmt.Fprintf(os.Stderr, `mpvwatch - multiple path violation monitor

Usage: mpvwatch <command> [options]

Commands:
  lookup <badge>          Show an associate's activity this shift
  check <badge> <code>    Check whether a work code assignment is an MPV
  paths                   List associates on restricted paths
  test                    Test the portal connection
  cookie                  Manage the session cookie
  config                  Configure portal and storage settings
  clock                   Manually clocked sessions (start, stop, hours, export)
  watch                   Background path monitor
  mcp                     Serve tools over stdio

Run 'mpvwatch <command> --help' for command options.

Examples:
  mpvwatch cookie --grab
  mpvwatch lookup 12345678
  mpvwatch check 12345678 CREOL
  mpvwatch paths --xlsx paths.xlsx
  mpvwatch watch install
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "lookup":
		runLookup(ctx, args)
	case "check":
		runCheck(ctx, args)
	case "paths":
		runPaths(ctx, args)
	case "test":
		runTest(ctx, args)
	case "cookie":
		runCookie(ctx, args)
	case "config":
		runConfig(args)
	case "clock":
		runClock(args)
	case "watch":
		runWatch(ctx, args)
	case "mcp":
		runMCP(ctx, args)
	case "version", "--version", "-v":
		fmt.Printf("mpvwatch version %s\n", version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

// exitOnFetchError explains a failed fetch and exits
func exitOnFetchError(err error) {
	switch {
	case errors.Is(err, model.ErrAuthExpired):
		fmt.Fprintln(os.Stderr, "Error: session expired and no fresh cookie was found. Log in to the portal in your browser, then run 'mpvwatch cookie --grab'.")
	case errors.Is(err, model.ErrNetwork):
		fmt.Fprintf(os.Stderr, "Error: could not reach the portal: %v\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Cancelled.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func runLookup(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	var (
		code    string
		jsonOut bool
		compact bool
		verbose bool
	)
	fs.StringVar(&code, "code", "", "Also check a proposed work code")
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&compact, "compact", false, "Force compact table output")
	fs.BoolVar(&compact, "c", false, "Force compact table output")
	fs.BoolVar(&verbose, "verbose", false, "Log credential and request details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mpvwatch lookup <badge> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	positional := parseArgs(fs, args)
	if len(positional) != 1 {
		fs.Usage()
		os.Exit(1)
	}
	badge := positional[0]

	a := newApp(verbose)
	a.requireCookie(ctx)

	res, err := inBackground(ctx, func(ctx context.Context) (report.TimeDetailsResult, error) {
		return a.client.FetchTimeDetails(ctx, badge)
	})
	a.keepRefreshed(res.Refreshed)
	if err != nil {
		exitOnFetchError(err)
	}

	entries := a.consolidator.Consolidate(res.Details.Sessions)
	summary := aggregator.Summarize(res.Details, entries)

	var verdict *model.RiskResult
	if code != "" {
		r := a.evaluator.Evaluate(res.Details.Sessions, code)
		verdict = &r
	}

	if jsonOut {
		output.PrintJSON(struct {
			BadgeID string                    `json:"badge_id"`
			Summary aggregator.Summary        `json:"summary"`
			Entries []model.ConsolidatedEntry `json:"entries"`
			Risk    *model.RiskResult         `json:"risk,omitempty"`
		}{badge, summary, entries, verdict})
		return
	}

	shift := a.client.Shift()
	fmt.Printf("Badge %s, shift %s %02d:00 to %s %02d:00\n", badge,
		shift.StartDate, shift.StartHour, shift.EndDate, shift.EndHour)
	output.PrintEntries(entries, output.TableOptions{ForceCompact: compact})
	output.PrintSummary(summary, a.evaluator)
	if verdict != nil {
		output.PrintRisk(*verdict)
	}
}

func runCheck(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var (
		jsonOut bool
		verbose bool
	)
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&verbose, "verbose", false, "Log credential and request details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mpvwatch check <badge> <work-code> [options]\n\nWork codes:")
		for _, wc := range defaultWorkCodes() {
			fmt.Fprintf(os.Stderr, " %s", wc)
		}
		fmt.Fprintf(os.Stderr, "\n\nOptions:\n")
		fs.PrintDefaults()
	}

	positional := parseArgs(fs, args)
	if len(positional) != 2 {
		fs.Usage()
		os.Exit(1)
	}
	badge, code := positional[0], positional[1]

	a := newApp(verbose)
	if _, ok := a.evaluator.ResolveWorkCode(code); !ok {
		fmt.Fprintf(os.Stderr, "Warning: %q is not a restricted-path work code; nothing to check.\n", code)
	}
	a.requireCookie(ctx)

	res, err := inBackground(ctx, func(ctx context.Context) (report.TimeDetailsResult, error) {
		return a.client.FetchTimeDetails(ctx, badge)
	})
	a.keepRefreshed(res.Refreshed)
	if err != nil {
		exitOnFetchError(err)
	}

	verdict := a.evaluator.Evaluate(res.Details.Sessions, code)
	if jsonOut {
		output.PrintJSON(verdict)
	} else {
		output.PrintRisk(verdict)
	}
	if verdict.HasRisk {
		os.Exit(2)
	}
}

func defaultWorkCodes() []string {
	var codes []string
	for _, wc := range policy.Default().WorkCodes() {
		codes = append(codes, wc.Code)
	}
	return codes
}

func runPaths(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("paths", flag.ExitOnError)
	var (
		jsonOut  bool
		xlsxPath string
		csvPath  string
		compact  bool
		verbose  bool
	)
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.StringVar(&xlsxPath, "xlsx", "", "Also write an XLSX workbook to this file")
	fs.StringVar(&csvPath, "csv", "", "Also write CSV to this file")
	fs.BoolVar(&compact, "compact", false, "Force compact table output")
	fs.BoolVar(&compact, "c", false, "Force compact table output")
	fs.BoolVar(&verbose, "verbose", false, "Log credential and request details")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mpvwatch paths [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	parseArgs(fs, args)

	a := newApp(verbose)
	a.requireCookie(ctx)

	res, err := inBackground(ctx, a.client.FetchPathSummary)
	a.keepRefreshed(res.Refreshed)
	if err != nil {
		exitOnFetchError(err)
	}

	rows := export.PathRows(res.PathSummary, a.pol, a.evaluator)
	if err := writeTableFiles(export.PathTable(rows), "MPV Paths", csvPath, xlsxPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		output.PrintJSON(struct {
			Rows   []export.PathRow `json:"rows"`
			Errors []string         `json:"errors,omitempty"`
		}{rows, res.Errors})
		return
	}
	output.PrintPaths(rows, a.evaluator, res.Errors, output.TableOptions{ForceCompact: compact})
	fmt.Printf("%d associate(s) on restricted paths.\n", len(rows))
}

// writeTableFiles writes t to whichever of csvPath and xlsxPath are set
func writeTableFiles(t export.Table, sheet, csvPath, xlsxPath string) error {
	write := func(path string, fn func(f *os.File) error) error {
		if path == "" {
			return nil
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", filepath.Clean(path))
		return nil
	}

	if err := write(csvPath, func(f *os.File) error { return export.WriteCSV(f, t) }); err != nil {
		return err
	}
	return write(xlsxPath, func(f *os.File) error { return export.WriteXLSX(f, sheet, t) })
}

func runTest(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "Log credential and request details")
	fs.Parse(args)

	a := newApp(verbose)
	if !a.client.Connected() {
		fmt.Println("No cookie configured; trying your browsers first.")
		a.requireCookie(ctx)
	}

	res, _ := inBackground(ctx, func(ctx context.Context) (report.ConnectionResult, error) {
		return a.client.TestConnection(ctx), nil
	})
	a.keepRefreshed(res.Refreshed)
	fmt.Println(res.Message)
	if !res.OK {
		os.Exit(1)
	}
}

func runCookie(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("cookie", flag.ExitOnError)
	var (
		grab    bool
		set     string
		forget  bool
		show    bool
		verbose bool
	)
	fs.BoolVar(&grab, "grab", false, "Read the cookie from an installed browser")
	fs.StringVar(&set, "set", "", "Save a cookie string copied from the browser")
	fs.BoolVar(&forget, "clear", false, "Forget the saved cookie")
	fs.BoolVar(&show, "show", false, "Show the saved cookie status")
	fs.BoolVar(&verbose, "verbose", false, "Log each browser tried")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mpvwatch cookie [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  mpvwatch cookie --grab
  mpvwatch cookie --set "session-id=...; ..."
  mpvwatch cookie --show
`)
	}
	fs.Parse(args)

	a := newApp(verbose)

	switch {
	case grab:
		fmt.Printf("Trying: %s\n", strings.Join(a.creds.Sources(), ", "))
		res := a.creds.Acquire(ctx)
		if err := res.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := a.saveCookie(res.Cookie, res.Source); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cookie read from %s and saved.\n", res.Source)
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "  skipped: %s\n", e)
		}

	case set != "":
		if err := a.saveCookie(set, "manual"); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cookie saved.")

	case forget:
		if err := a.saveCookie("", ""); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Cookie cleared.")

	case show:
		if !a.client.Connected() {
			fmt.Println("Not connected. Run 'mpvwatch cookie --grab'.")
			return
		}
		c := a.client.Credential()
		if len(c) > 24 {
			c = c[:12] + "..." + c[len(c)-8:]
		}
		fmt.Printf("Connected (source: %s)\nCookie: %s\n", a.cfg.CookieSource, c)

	default:
		fs.Usage()
	}
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var (
		baseURL      string
		warehouse    string
		devtools     string
		dbPath       string
		interval     string
		cloudSync    string
		linuxKeyring string
		notify       string
		show         bool
	)
	fs.StringVar(&baseURL, "base-url", "", "Portal base URL")
	fs.StringVar(&warehouse, "warehouse", "", "Warehouse id")
	fs.StringVar(&devtools, "devtools-url", "", "DevTools URL of a running browser to read cookies from (\"none\" to clear)")
	fs.StringVar(&dbPath, "db", "", "Local session database path")
	fs.StringVar(&interval, "interval", "", "Watch interval (e.g. 15m)")
	fs.StringVar(&cloudSync, "cloud-sync", "", "Keep the session database in OneDrive (true/false)")
	fs.StringVar(&linuxKeyring, "linux-keyring", "", "Read Chrome cookies via the Secret Service on linux (true/false)")
	fs.StringVar(&notify, "notify", "", "Desktop notifications from watch (true/false)")
	fs.BoolVar(&show, "show", false, "Show current configuration")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mpvwatch config [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  mpvwatch config --warehouse IND8
  mpvwatch config --cloud-sync true --notify true
  mpvwatch config --show
`)
	}
	fs.Parse(args)

	a := newApp(false)
	cfg := a.cfg

	if show {
		db, _ := cfg.Database()
		fmt.Printf("Base URL:      %s\n", cfg.BaseURL)
		fmt.Printf("Warehouse:     %s\n", cfg.WarehouseID)
		fmt.Printf("Connected:     %t\n", a.client.Connected())
		fmt.Printf("Database:      %s\n", db)
		fmt.Printf("Cloud sync:    %t\n", cfg.CloudSync)
		fmt.Printf("Browsers:      %s\n", strings.Join(a.creds.Sources(), ", "))
		fmt.Printf("Watch every:   %s\n", cfg.Interval())
		fmt.Printf("Notify:        %t\n", cfg.Notify)
		return
	}

	changed := false
	setString := func(dst *string, v string) {
		if v == "" {
			return
		}
		if v == "none" {
			v = ""
		}
		*dst = v
		changed = true
	}
	setBool := func(dst *bool, v string) {
		if v == "" {
			return
		}
		*dst = v == "true" || v == "1" || v == "yes"
		changed = true
	}

	setString(&cfg.BaseURL, baseURL)
	setString(&cfg.WarehouseID, warehouse)
	setString(&cfg.DevToolsURL, devtools)
	setString(&cfg.DBPath, dbPath)
	setString(&cfg.WatchInterval, interval)
	setBool(&cfg.CloudSync, cloudSync)
	setBool(&cfg.LinuxKeyring, linuxKeyring)
	setBool(&cfg.Notify, notify)

	if !changed {
		fs.Usage()
		return
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration saved.")
}
