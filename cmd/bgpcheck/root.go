package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/bgpcheck/internal/config"
	"github.com/hamed0406/bgpcheck/internal/httpapi"
	"github.com/hamed0406/bgpcheck/internal/logging"
	"github.com/hamed0406/bgpcheck/internal/notify"
	"github.com/hamed0406/bgpcheck/internal/repo/memory"
	"github.com/hamed0406/bgpcheck/internal/route"
	"github.com/hamed0406/bgpcheck/internal/supervisor"
	"github.com/hamed0406/bgpcheck/internal/worker"
)

const defaultConfig = "/etc/bgpcheck/bgpcheck.yaml"

type globalFlags struct {
	file      string
	verbosity int
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "bgpcheck",
		Short:         "Health checks that announce or withdraw BGP routes through ExaBGP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.fromEnv(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), g)
		},
	}
	root.PersistentFlags().StringVarP(&g.file, "file", "f", defaultConfig, "configuration file (YAML or JSON); env BGPCHECK_CONFIG")
	root.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", "log verbosity on stderr, repeat for more; env BGPCHECK_VERBOSITY")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the health checks (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), g)
		},
	})
	root.AddCommand(newTestCmd(g))
	return root
}

// fromEnv fills in flags the user did not set on the command line.
func (g *globalFlags) fromEnv(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if v := os.Getenv("BGPCHECK_CONFIG"); v != "" && !flags.Changed("file") {
		g.file = v
	}
	if v := os.Getenv("BGPCHECK_VERBOSITY"); v != "" && !flags.Changed("verbose") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BGPCHECK_VERBOSITY: %w", err)
		}
		g.verbosity = n
	}
	return nil
}

func runDaemon(ctx context.Context, g *globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	boot, err := logging.New(logging.Options{Verbosity: g.verbosity})
	if err != nil {
		return err
	}

	src, err := config.Open(g.file, boot)
	if err != nil {
		boot.Error("config_invalid", zap.String("file", g.file), zap.Error(err))
		return err
	}
	settings := src.Settings()

	logger, err := logging.New(logging.Options{Verbosity: g.verbosity, Targets: settings.Logging})
	if err != nil {
		boot.Error("logging_setup_failed", zap.Error(err))
		return err
	}
	defer func() { _ = logger.Sync() }()

	store := memory.New()
	dispatcher := notify.NewDispatcher(logger)
	sup, err := supervisor.New(supervisor.Options{
		Logger: logger,
		Source: src,
		Start: supervisor.WorkerStarter(worker.Options{
			Logger:   logger,
			Out:      route.Stdout,
			Notifier: dispatcher,
			Status:   store,
		}),
		Notifier: dispatcher,
		Status:   store,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sup.Start(ctx); err != nil {
		logger.Error("startup_failed", zap.Error(err))
		return err
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return sup.Run(gctx) })
	grp.Go(func() error {
		return httpapi.NewServer(logger, store, settings.Status).ListenAndServe(gctx)
	})
	err = grp.Wait()
	logger.Info("bgpcheck_exit", zap.Error(err))
	return err
}
