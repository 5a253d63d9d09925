package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vchiuchiolo/district-stats/internal/snapshot"
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the most recent snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := outDir
		if dir == "" {
			dir = "."
		}

		snap, err := snapshot.NewStore(dir).Latest()
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(latestCmd)
}
