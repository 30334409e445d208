package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"langarr/internal/daemon"
	"langarr/internal/logging"
	"langarr/internal/scheduler"
	"langarr/internal/server"
	"langarr/internal/worker"
)

func newDaemonCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the langarr daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*configFlag, true)
			if err != nil {
				return err
			}
			defer cleanup()

			logging.CleanupOldLogs(a.logger, a.cfg.General.LogRetentionDays, logging.RetentionTarget{
				Dir:     a.cfg.LogDir(),
				Pattern: "*.log",
				Exclude: []string{"langarr.log"},
			})

			pool := worker.New(worker.DefaultWorkers, worker.DefaultQueueSize, a.logger)
			sched := scheduler.New(a.cfg, a.syncer, pool, a.logger)
			httpSrv := server.New(a.cfg, a.store, a.hub, a.syncer, pool, version, a.logger)

			d, err := daemon.New(a.cfg, a.logger)
			if err != nil {
				return err
			}
			d.Register("worker-pool", pool)
			d.Register("scheduler", sched)
			d.Register("http-server", httpSrv)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := d.Start(ctx); err != nil {
				return err
			}
			a.logger.Info("langarr running",
				logging.String("config", a.cfgPath),
				logging.String("listen", a.cfg.Server.Listen),
				logging.String("version", version),
			)

			<-ctx.Done()
			a.logger.Info("shutdown signal received")
			d.Stop()
			return nil
		},
	}
}
