package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/airwire/airwire/internal/config"
	"github.com/airwire/airwire/internal/output"
	"github.com/airwire/airwire/internal/store"
)

// ---------------------------------------------------------------------------
// historyCmd
// ---------------------------------------------------------------------------

func historyCmd() *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded transmit bursts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.BurstList(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing bursts: %w", err)
			}
			fmt.Print(output.NewFormatter(format).Format(recs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records")

	cmd.AddCommand(historySessionsCmd())

	return cmd
}

func historySessionsCmd() *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recorded receive sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.ReceiveSessionList(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing receive sessions: %w", err)
			}
			fmt.Print(output.NewFormatter(format).Format(recs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records")

	return cmd
}

// openStore opens the history database for the read-side commands. Retention
// pruning is left to the running node.
func openStore() (*store.SQLiteStore, error) {
	dir := dataDir()
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if !cfg.Store.Enabled {
		return nil, fmt.Errorf("the history store is disabled in the config")
	}
	st, err := store.NewSQLiteStore(cfg.StorePath(dir), 0)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	return st, nil
}
