package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-agecam/pkg/config"
	"github.com/teslashibe/go-agecam/pkg/ledger"
)

var (
	runsLimit int
	runsDB    string
	runsReset bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs from the run ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := runsDB
		if url == "" {
			cfg := config.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			cfg.LoadEnv()
			url = cfg.DatabaseURL
		}
		if url == "" {
			return errors.New("no database configured: pass --db or set AGECAM_DATABASE_URL")
		}

		ctx := cmd.Context()
		l, err := ledger.Open(ctx, url)
		if err != nil {
			return err
		}
		// The command context may be canceled already (Ctrl+C).
		defer l.Close(context.Background())

		if runsReset {
			if err := l.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Run ledger cleared.")
			return nil
		}

		runs, err := l.Recent(ctx, runsLimit)
		if err != nil {
			return err
		}
		printRuns(cmd, runs)
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
	runsCmd.Flags().StringVar(&runsDB, "db", "", "PostgreSQL URL (default from config / AGECAM_DATABASE_URL)")
	runsCmd.Flags().BoolVar(&runsReset, "reset", false, "drop the runs table")
	rootCmd.AddCommand(runsCmd)
}

func printRuns(cmd *cobra.Command, runs []ledger.Run) {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tELAPSED\tFRAMES\tFPS\tSOURCE\tSTOP\tERROR")
	fmt.Fprintln(w, "--\t-------\t-------\t------\t---\t------\t----\t-----")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.1fs\t%d\t%.2f\t%s\t%s\t%s\n",
			shortID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04"), r.Elapsed.Seconds(),
			r.Frames, r.FPS, r.Source, r.StopReason, r.Error)
	}
	w.Flush()
}

// shortID trims a UUID to its first block for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
