package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentic-research/assetcat/api"
	"github.com/agentic-research/assetcat/internal/manifest"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [manifest.json] [manifest.db]",
	Short: "Convert a JSON manifest into the SQLite manifest layout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return convertManifest(args[0], args[1])
	},
}

func convertManifest(src, dst string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	var m api.Manifest
	if err := json.Unmarshal(content, &m); err != nil {
		return fmt.Errorf("failed to parse json %s: %w", src, err)
	}
	if err := manifest.WriteSQLite(dst, &m); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
