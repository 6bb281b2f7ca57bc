package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/zhaobenny/mpvwatch/cli/internal/config"
	"github.com/zhaobenny/mpvwatch/internal/aggregator"
	"github.com/zhaobenny/mpvwatch/internal/classify"
	"github.com/zhaobenny/mpvwatch/internal/credential"
	"github.com/zhaobenny/mpvwatch/internal/policy"
	"github.com/zhaobenny/mpvwatch/internal/report"
	"github.com/zhaobenny/mpvwatch/internal/risk"
)

// app bundles the engine built from the saved configuration
type app struct {
	cfg          *config.Config
	pol          policy.Policy
	consolidator *aggregator.Consolidator
	evaluator    *risk.Evaluator
	creds        *credential.Store
	client       *report.Client
	logger       *slog.Logger

	saveMu sync.Mutex
}

// newApp loads the config and wires every component. It exits on a
// config error, like the other command entry points.
func newApp(verbose bool) *app {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	pol := policy.Default()
	classifier := classify.New(pol)
	creds := credential.New(credential.Options{
		DevToolsURL:  cfg.DevToolsURL,
		LinuxKeyring: cfg.LinuxKeyring,
		Logger:       logger,
	})

	return &app{
		cfg:          cfg,
		pol:          pol,
		consolidator: aggregator.New(pol, classifier),
		evaluator:    risk.New(pol, classifier),
		creds:        creds,
		client: report.New(report.Config{
			BaseURL:     cfg.BaseURL,
			WarehouseID: cfg.WarehouseID,
			Cookie:      cfg.Cookie,
		}, creds, pol, report.WithLogger(logger)),
		logger: logger,
	}
}

// saveCookie persists a cookie and where it came from
func (a *app) saveCookie(cookie, source string) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()
	a.cfg.Cookie = credential.Sanitize(cookie)
	a.cfg.CookieSource = source
	return config.Save(a.cfg)
}

// keepRefreshed persists a cookie the client renewed during a fetch.
// Failure is reported but never fails the command.
func (a *app) keepRefreshed(cookie string) {
	if cookie == "" {
		return
	}
	if err := a.saveCookie(cookie, "auto-refresh"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save refreshed cookie: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Session cookie was refreshed from your browser and saved.")
}

// requireCookie exits when no cookie is configured and none can be read
// from a browser
func (a *app) requireCookie(ctx context.Context) {
	if a.client.Connected() {
		return
	}
	res := a.creds.Acquire(ctx)
	if err := res.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: not connected. Run 'mpvwatch cookie --grab' or 'mpvwatch cookie --set <cookie>'.\n%v\n", err)
		os.Exit(1)
	}
	a.client.SetCredential(res.Cookie)
	if err := a.saveCookie(res.Cookie, res.Source); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save cookie: %v\n", err)
	}
}

// inBackground runs fn on its own goroutine and hands the result back to
// the caller, which stays the only goroutine touching config and output
func inBackground[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// parseArgs parses flags that may appear before or after positional args
func parseArgs(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		fs.Parse(args)
		args = fs.Args()
		if len(args) == 0 {
			return positional
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
