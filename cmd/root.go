package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/assetcat/internal/catalog"
	"github.com/agentic-research/assetcat/internal/ident"
	"github.com/agentic-research/assetcat/internal/manifest"
	"github.com/spf13/cobra"
)

var (
	configPath string
	workers    int
	selector   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to assetcat.hcl")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "Concurrent bundle extractors (default from config or GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVar(&selector, "bundles", "", "JSONPath selecting bundle descriptions in a JSON manifest")

	rootCmd.AddCommand(loadCmd, exportCmd, convertCmd)
}

var rootCmd = &cobra.Command{
	Use:           "assetcat",
	Short:         "assetcat: an overlay catalog for read-only game asset archives",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// resolveConfig merges the config file with flags that were set explicitly.
func resolveConfig(cmd *cobra.Command) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("bundles") {
		cfg.BundleSelector = selector
	}
	return cfg, nil
}

// openProvider picks a provider from the manifest's extension.
func openProvider(path string, cfg *Config) (manifest.Provider, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		p := manifest.NewJSONProvider(path)
		p.BundleSelector = cfg.BundleSelector
		p.ChunkSelector = cfg.ChunkSelector
		return p, nil
	case ".db", ".sqlite":
		return manifest.NewSQLiteProvider(path), nil
	default:
		return nil, fmt.Errorf("unsupported manifest %s: want .json or .db", path)
	}
}

// loadCatalog builds a fresh catalog from the manifest at path.
func loadCatalog(ctx context.Context, path string, cfg *Config) (*catalog.Catalog, error) {
	p, err := openProvider(path, cfg)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(ident.Default)
	l := manifest.NewLoader(p)
	l.Workers = cfg.Workers
	if err := l.Load(ctx, cat); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cat, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
