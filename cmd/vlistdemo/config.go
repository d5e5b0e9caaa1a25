package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// demoConfig is the on-disk configuration for the vlistdemo program,
// parsed with BurntSushi/toml the way the teacher's resource-type registry
// once loaded its static config from TOML before that registry was dropped
// as Kubernetes-specific (see DESIGN.md).
type demoConfig struct {
	ItemCount  int     `toml:"item_count"`
	RowHeight  float64 `toml:"row_height"`
	Overscan   int     `toml:"overscan"`
	HardLimit  float64 `toml:"hard_limit"`
	IDPrefix   string  `toml:"id_prefix"`
	Selectable bool    `toml:"selectable"`
}

func defaultDemoConfig() demoConfig {
	return demoConfig{
		ItemCount:  1_000_000,
		RowHeight:  1,
		Overscan:   5,
		IDPrefix:   "vlistdemo",
		Selectable: true,
	}
}

func loadDemoConfig(path string) (demoConfig, error) {
	cfg := defaultDemoConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}
