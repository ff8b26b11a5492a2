package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/burrow-sh/burrow/internal/app"
	"github.com/burrow-sh/burrow/internal/config"
	"github.com/burrow-sh/burrow/internal/event"
	"github.com/burrow-sh/burrow/internal/logging"
	"github.com/burrow-sh/burrow/internal/metacache"
	"github.com/burrow-sh/burrow/internal/scan"
	"github.com/burrow-sh/burrow/internal/task"
	"github.com/burrow-sh/burrow/internal/watch"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	dir := flag.Arg(0)
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "burrow: %v\n", err)
			os.Exit(1)
		}
	}
	dir = metacache.Canonical(dir)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		fmt.Fprintf(os.Stderr, "burrow: not a directory: %s\n", dir)
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "burrow: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.Log.File, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "burrow: cannot open log: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := run(dir, cfg); err != nil {
		logging.L().Error("fatal", zap.Error(err))
		fmt.Fprintf(os.Stderr, "burrow: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string, cfg config.Config) error {
	cache := metacache.New(cfg.CacheSettings())
	stopSweeper := cache.StartSweeper(cfg.CacheSettings().TTI)
	defer stopSweeper()

	scanner := scan.NewScanner(cache, scan.WithEnrichWorkers(cfg.UI.EnrichWorkers))
	reg := task.NewRegistry()
	mux := event.NewMux()
	st := app.NewState(dir)

	opts := []app.DispatcherOption{
		app.WithLogger(logging.L()),
		app.WithNotifyTTL(cfg.NotifyTTL()),
		app.WithShowHidden(cfg.UI.ShowHidden),
	}
	watcher, err := watch.New(func([]string) {
		mux.Enqueue(event.Action{Kind: event.ActionRefresh})
	}, cfg.Debounce())
	if err != nil {
		logging.L().Warn("file watching disabled", zap.Error(err))
	} else {
		defer watcher.Close()
		opts = append(opts, app.WithWatcher(watcher))
	}

	disp := app.NewDispatcher(st, mux, reg, scanner, cache, opts...)
	monitor := event.NewMonitor(cfg.SlowThreshold(), logging.L())

	// Snapshots flow to the renderer over a replace-on-full channel, so a
	// slow terminal never stalls the dispatch loop.
	snaps := make(chan app.Snapshot, 1)
	redraw := func(s app.Snapshot) {
		for {
			select {
			case snaps <- s:
				return
			default:
				select {
				case <-snaps:
				default:
				}
			}
		}
	}

	loop := app.NewLoop(st, mux, reg, disp, monitor, redraw, cfg.Tick())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(newModel(mux), tea.WithAltScreen())

	loopDone := make(chan error, 1)
	go func() {
		err := loop.Run(ctx)
		loopDone <- err
		p.Send(coreStoppedMsg{err: err})
	}()
	go func() {
		for s := range snaps {
			p.Send(snapshotMsg(s))
		}
	}()

	if _, err := p.Run(); err != nil {
		return err
	}
	cancel()
	if err := <-loopDone; err != nil && err != context.Canceled {
		return err
	}
	return nil
}
