package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"langarr/internal/arr"
	"langarr/internal/syncer"
)

func newRunCommand(configFlag *string) *cobra.Command {
	var serviceFlag string
	var instanceFlag string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass and exit",
		Long: `Run reconciles every enabled instance once (or a single instance with
--service and --instance) and exits. Run history is recorded the same way
scheduled daemon syncs are.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			service := strings.ToLower(strings.TrimSpace(serviceFlag))
			instance := strings.TrimSpace(instanceFlag)
			switch service {
			case "", arr.ServiceRadarr, arr.ServiceSonarr, syncer.ServiceOverseerr:
			default:
				return fmt.Errorf("unknown service %q (want radarr, sonarr, or overseerr)", serviceFlag)
			}
			if (service == "") != (instance == "") {
				return fmt.Errorf("--service and --instance must be used together")
			}

			a, cleanup, err := newApp(*configFlag, true)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := syncer.Options{DryRun: dryRun}
			if service != "" {
				return a.syncer.SyncOne(ctx, service, instance, opts)
			}
			return a.syncer.SyncAll(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&serviceFlag, "service", "", "Limit the pass to one service (radarr, sonarr, overseerr)")
	cmd.Flags().StringVar(&instanceFlag, "instance", "", "Limit the pass to one instance by name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and log changes without touching the remote")
	return cmd
}
