package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"langarr/internal/config"
	"langarr/internal/server"
)

func newStatusCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show instance sync state from a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			status, err := fetchStatus(cfg.Server.Listen)
			if err != nil {
				return fmt.Errorf("daemon not reachable at %s: %w", cfg.Server.Listen, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "langarr %s, up %s", status.Version, status.Uptime)
			if status.DryRun {
				fmt.Fprint(out, " (dry run)")
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderStatusTable(status.Instances))
			return nil
		},
	}
}

func fetchStatus(listen string) (*server.StatusResponse, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + listen + "/api/v1/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var status server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

func renderStatusTable(instances []server.InstanceStatus) string {
	rows := make([][]string, 0, len(instances))
	for _, inst := range instances {
		enabled := "yes"
		if !inst.Enabled {
			enabled = "no"
		}
		lastSync := "never"
		if inst.LastSyncAt != nil {
			lastSync = inst.LastSyncAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			inst.Service,
			inst.Instance,
			enabled,
			lastSync,
			inst.LastItemTitle,
			inst.LastItemProfile,
		})
	}
	return renderTable(
		[]string{"Service", "Instance", "Enabled", "Last Sync", "Last Item", "Profile"},
		rows,
	)
}
