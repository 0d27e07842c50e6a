package cmd

import (
	"fmt"
	"runtime"

	"github.com/agentic-research/assetcat/internal/manifest"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the optional assetcat.hcl file. Command-line flags override it.
//
//	workers         = 8
//	bundle_selector = "$.bundles[*]"
//	chunk_selector  = "$.chunks[*]"
//	index_path      = "catalog.db"
type Config struct {
	Workers        int    `hcl:"workers,optional"`
	BundleSelector string `hcl:"bundle_selector,optional"`
	ChunkSelector  string `hcl:"chunk_selector,optional"`
	IndexPath      string `hcl:"index_path,optional"`
}

// LoadConfig reads path, or returns the defaults when path is empty.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := hclsimple.DecodeFile(path, nil, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("load config %s: workers must be >= 0, got %d", path, cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.BundleSelector == "" {
		cfg.BundleSelector = manifest.DefaultBundleSelector
	}
	if cfg.ChunkSelector == "" {
		cfg.ChunkSelector = manifest.DefaultChunkSelector
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = "catalog.db"
	}
	return cfg, nil
}
