package cmd

import (
	"fmt"
	"io"

	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/spf13/cobra"
)

var listBundles bool

func init() {
	loadCmd.Flags().BoolVarP(&listBundles, "list", "l", false, "List bundles and their superbundles")
}

var loadCmd = &cobra.Command{
	Use:   "load [manifest]",
	Short: "Load a manifest into a catalog and print a summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		cat, err := loadCatalog(cmd.Context(), args[0], cfg)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), cat, listBundles)
		return nil
	},
}

func printSummary(w io.Writer, cat *catalog.Catalog, list bool) {
	s := cat.Stats()
	_, _ = fmt.Fprintf(w, "superbundles: %d\nbundles:      %d\nebx:          %d\nres:          %d\nchunks:       %d\n",
		s.SuperBundles, s.Bundles, s.Ebx, s.Res, s.Chunks)
	if !list {
		return
	}
	sbs := cat.SuperBundles()
	for id, b := range cat.Bundles() {
		sb := "?"
		if b.SuperBundleID >= 0 && b.SuperBundleID < len(sbs) {
			sb = sbs[b.SuperBundleID].Name
		}
		_, _ = fmt.Fprintf(w, "%5d  %-40s  %s\n", id, b.Name, sb)
	}
}
