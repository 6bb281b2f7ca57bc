package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kardianos/service"

	"github.com/zhaobenny/mpvwatch/cli/internal/config"
	"github.com/zhaobenny/mpvwatch/cli/internal/mcp"
	"github.com/zhaobenny/mpvwatch/cli/internal/notify"
	"github.com/zhaobenny/mpvwatch/internal/export"
)

// watchService implements service.Interface for background path checks
type watchService struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	logger   service.Logger
}

func (s *watchService) Start(svc service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

func (s *watchService) Stop(svc service.Service) error {
	s.cancel()
	<-s.done
	return nil
}

func (s *watchService) run(ctx context.Context) {
	defer close(s.done)

	a := newApp(false)
	if !a.client.Connected() {
		s.errorf("Not connected. Run 'mpvwatch cookie --grab' first.")
		return
	}

	interval := s.interval
	if interval == 0 {
		interval = a.cfg.Interval()
	}

	s.check(ctx, a)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.check(ctx, a)
		case <-ctx.Done():
			return
		}
	}
}

// check runs one path summary cycle
func (s *watchService) check(ctx context.Context, a *app) {
	runID := uuid.NewString()

	res, err := a.client.FetchPathSummary(ctx)
	if res.Refreshed != "" {
		if err := a.saveCookie(res.Refreshed, "auto-refresh"); err != nil {
			s.errorf("[%s] failed to save refreshed cookie: %v", runID, err)
		} else {
			s.infof("[%s] session cookie refreshed", runID)
		}
	}
	if err != nil {
		s.errorf("[%s] path check failed: %v", runID, err)
		return
	}
	for _, e := range res.Errors {
		s.warningf("[%s] %s", runID, e)
	}

	rows := export.PathRows(res.PathSummary, a.pol, a.evaluator)
	s.infof("[%s] %d associate(s) on restricted paths", runID, len(rows))

	msg, ok := notify.Violations(rows)
	if !ok {
		return
	}
	s.warningf("[%s] %s: %s", runID, msg.Summary, msg.Body)
	if a.cfg.Notify {
		if err := notify.Send(ctx, msg); err != nil {
			s.warningf("[%s] notification failed: %v", runID, err)
		}
	}
}

func (s *watchService) infof(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, args...)
	}
}

func (s *watchService) warningf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warningf(format, args...)
	}
}

func (s *watchService) errorf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
	}
}

func runWatch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	var interval time.Duration
	fs.DurationVar(&interval, "interval", 0, "Check interval (defaults to watch_interval from config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: mpvwatch watch [command] [options]

Commands:
  (none)      Check once
  install     Install as a background service
  start       Start the background service
  stop        Stop the background service
  uninstall   Remove the background service
  status      Show service status

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  mpvwatch watch                       Check once
  mpvwatch watch install --interval 10m
  mpvwatch watch status
`)
	}

	// Check for service commands before parsing flags
	var svcCommand string
	if len(args) > 0 {
		switch args[0] {
		case "install", "start", "stop", "uninstall", "status", "run":
			svcCommand = args[0]
			args = args[1:]
		}
	}

	fs.Parse(args)

	svcArgs := []string{"watch", "run"}
	if interval > 0 {
		svcArgs = append(svcArgs, fmt.Sprintf("--interval=%s", interval))
	}
	svcConfig := &service.Config{
		Name:        "mpvwatch",
		DisplayName: "mpvwatch Path Monitor",
		Description: "Periodically checks restricted-path time and alerts on violations",
		Arguments:   svcArgs,
	}

	svc := &watchService{interval: interval}
	s, err := service.New(svc, svcConfig)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	switch svcCommand {
	case "install":
		cfg, err := config.Load()
		if err != nil || cfg.Cookie == "" {
			fmt.Fprintf(os.Stderr, "Error: Not connected. Run 'mpvwatch cookie --grab' first.\n")
			os.Exit(1)
		}
		if err := s.Install(); err != nil {
			log.Fatalf("Failed to install service: %v", err)
		}
		if err := s.Start(); err != nil {
			log.Fatalf("Service installed but failed to start: %v", err)
		}
		fmt.Printf("Service installed and started.\n")
		if interval == 0 {
			interval = cfg.Interval()
		}
		fmt.Printf("Check interval: %s\n", interval)
		return

	case "start":
		if err := s.Start(); err != nil {
			log.Fatalf("Failed to start service: %v", err)
		}
		fmt.Println("Service started.")
		return

	case "stop":
		if err := s.Stop(); err != nil {
			log.Fatalf("Failed to stop service: %v", err)
		}
		fmt.Println("Service stopped.")
		return

	case "uninstall":
		s.Stop() // ignore error
		if err := s.Uninstall(); err != nil {
			log.Fatalf("Failed to uninstall service: %v", err)
		}
		fmt.Println("Service uninstalled.")
		return

	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Printf("Service status: not installed or error (%v)\n", err)
			return
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service status: running")
		case service.StatusStopped:
			fmt.Println("Service status: stopped")
		default:
			fmt.Println("Service status: unknown")
		}
		return

	case "": // No service command - check once in the foreground
		runPaths(ctx, nil)
		return

	default:
		// Running as service (internal command)
		logger, err := s.Logger(nil)
		if err == nil {
			svc.logger = logger
		}
		if err := s.Run(); err != nil && logger != nil {
			logger.Error(err)
		}
	}
}

func runMCP(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	var verbose bool
	fs.BoolVar(&verbose, "verbose", false, "Log credential and request details to stderr")
	fs.Parse(args)

	a := newApp(verbose)
	srv := mcp.NewServer("mpvwatch", version, mcp.Deps{
		Fetcher:      a.client,
		Policy:       a.pol,
		Consolidator: a.consolidator,
		Evaluator:    a.evaluator,
		Persist: func(cookie string) error {
			return a.saveCookie(cookie, "auto-refresh")
		},
		Logger: a.logger,
	})

	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
