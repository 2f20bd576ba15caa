package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/flateze/flateze/internal/buildinfo"
	"github.com/flateze/flateze/internal/flatlock"
	"github.com/flateze/flateze/internal/metrics"
	"github.com/flateze/flateze/internal/scheduler"
	"github.com/flateze/flateze/internal/server"
)

func newServeCommand(configPath *string) *cobra.Command {
	var noSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled ingestion and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, root, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metrics.Register()
			a, err := newApp(ctx, cfg, root)
			if err != nil {
				return err
			}
			defer a.Close()
			a.log.Infow("flateze starting", "version", buildinfo.String(), "addr", cfg.Server.Addr)

			g, gctx := errgroup.WithContext(ctx)
			if !noSchedule {
				sched := scheduler.New(cfg.Ingest.Schedule, func(ctx context.Context) {
					for _, res := range a.runner.RunAll(ctx) {
						if res.Err == nil {
							a.log.Infow("flat ingested", "flat_id", res.FlatID,
								"created", res.Report.Created, "duplicates", res.Report.Duplicates)
						} else if !errors.Is(res.Err, flatlock.ErrLocked) {
							a.log.Warnw("flat ingest ended with error", "flat_id", res.FlatID, "error", res.Err)
						}
					}
				}, a.log)
				if err := sched.Start(gctx); err != nil {
					return err
				}
				g.Go(func() error {
					<-gctx.Done()
					<-sched.Stop().Done()
					return nil
				})
			}

			srv := server.New(cfg.Server, a.runner, a.extractor, a.log)
			g.Go(func() error { return srv.Run(gctx) })
			err = g.Wait()
			a.log.Infow("shutting down")
			return err
		},
	}

	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve the API without scheduled ingestion")

	return cmd
}
