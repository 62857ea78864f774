package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/amaumene/deleterr/internal/api"
	"github.com/amaumene/deleterr/internal/api/handlers"
	"github.com/amaumene/deleterr/internal/metrics"
	"github.com/amaumene/deleterr/internal/scheduler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the missing item search job",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Run one missing item search and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reports, err := a.searchController().RunAll(ctx)
			for _, r := range reports {
				line := fmt.Sprintf("%s: missing=%d searched=%d failed=%d blocklisted=%d", r.Catalog, r.Missing, r.Searched, r.Failed, r.Blocklisted)
				if r.Skipped {
					line += " skipped: " + r.SkipReason
				}
				if r.Cancelled {
					line += " (cancelled)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return err
		},
	}
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test the connection to every configured service",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			checks := a.checks()
			names := make([]string, 0, len(checks))
			for name := range checks {
				names = append(names, name)
			}
			sort.Strings(names)

			failed := 0
			for _, name := range names {
				status := "ok"
				if !checks[name](contextOrBackground(cmd)) {
					status = "unreachable"
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d service(s) unreachable", failed)
			}
			return nil
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger
	logger.WithField("version", version).Info("Starting Deleterr")

	// Tracing
	shutdownTracing := metrics.SetupTracing(logger)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Controllers
	events := a.eventController()
	search := a.searchController()
	logger.Info("Controllers initialized")

	// Scheduler
	var sched *scheduler.Scheduler
	if a.cfg.SearchEnabled {
		sched = scheduler.NewScheduler(search, a.ready, a.db, scheduler.Options{
			Interval:     a.cfg.SearchInterval,
			RunOnStartup: a.cfg.SearchRunOnStartup,
			Retention:    a.cfg.HistoryRetention,
		}, logger)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		logger.Info("Missing item search disabled")
	}

	// HTTP server
	deps := api.Dependencies{
		DB:       a.db,
		Events:   events,
		Checks:   a.checks(),
		Catalogs: []string{a.sonarr.Name(), a.radarr.Name()},
		Gatherer: a.registry,
		Version:  version,
	}
	var runner handlers.SearchRunner = search
	if a.cfg.SearchEnabled {
		deps.Search = runner
	}
	server := api.NewServer(ctx, a.cfg, deps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if sched != nil {
			sched.Stop()
		}
		return nil
	})

	logger.Info("Deleterr is running")
	err = g.Wait()
	logger.Info("Deleterr stopped")
	return err
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
