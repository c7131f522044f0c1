package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/store"
)

// GatewayStatus holds the inspection result for the gateway's
// dependencies.
type GatewayStatus struct {
	Addr          string `json:"addr"`
	Database      string `json:"database"`
	DatabaseError string `json:"database_error,omitempty"`
	SessionMaxAge string `json:"session_max_age"`
	BcryptCost    int    `json:"bcrypt_cost"`
	DevSecret     bool   `json:"dev_secret"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway configuration and database reachability",
		Long:  `Show the effective configuration and whether the user database is reachable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	// Register flags
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	appCfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	status := GatewayStatus{
		Addr:          appCfg.Addr,
		SessionMaxAge: appCfg.SessionMaxAge.String(),
		BcryptCost:    appCfg.BcryptCost,
		DevSecret:     appCfg.UsingDevSecret(),
	}
	status.Database, status.DatabaseError = probeDatabase(cmd.Context(), appCfg.DatabaseURL)

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// probeDatabase pings the database and reports "reachable",
// "unreachable", or "not configured".
func probeDatabase(ctx context.Context, databaseURL string) (string, string) {
	if databaseURL == "" {
		return "not configured", ""
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	userStore, err := store.New(ctx, databaseURL)
	if err != nil {
		return "unreachable", err.Error()
	}
	defer userStore.Close()

	if err := userStore.Ping(ctx); err != nil {
		return "unreachable", err.Error()
	}
	return "reachable", ""
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status GatewayStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "ADDR\t%s\n", status.Addr)
	_, _ = fmt.Fprintf(w, "DATABASE\t%s\n", status.Database)
	if status.DatabaseError != "" {
		_, _ = fmt.Fprintf(w, "DATABASE ERROR\t%s\n", status.DatabaseError)
	}
	_, _ = fmt.Fprintf(w, "SESSION MAX AGE\t%s\n", status.SessionMaxAge)
	_, _ = fmt.Fprintf(w, "BCRYPT COST\t%d\n", status.BcryptCost)
	if status.DevSecret {
		_, _ = fmt.Fprintln(w, "SESSION SECRET\tbuilt-in default (set SESSION_SECRET)")
	}

	_ = w.Flush()
	return string(buf)
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status GatewayStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
