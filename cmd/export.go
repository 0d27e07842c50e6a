package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [manifest] [index.db]",
	Short: "Load a manifest and write a SQLite index of the catalog",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		out := cfg.IndexPath
		if len(args) == 2 {
			out = args[1]
		}

		cat, err := loadCatalog(cmd.Context(), args[0], cfg)
		if err != nil {
			return err
		}
		if err := cat.ExportIndex(out); err != nil {
			return fmt.Errorf("export index: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote index to %s\n", out)
		return nil
	},
}
