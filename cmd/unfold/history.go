package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ning0612/unfold/internal/report"
	"github.com/Ning0612/unfold/internal/state"
)

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}

			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			history, err := state.NewManager(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer history.Close()

			records, err := history.History(limit)
			if err != nil {
				return err
			}
			report.History(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	return cmd
}
