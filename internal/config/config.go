// Package config loads sources.toml and the CASS_* environment variables
// via koanf, layering file config under environment overrides — the
// exact stack HexmosTech-LiveReview/internal/config/config.go uses for
// its own TOML-plus-env layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// SourceConfig describes one configured origin in sources.toml.
type SourceConfig struct {
	SourceID    string            `koanf:"source_id"`
	Kind        string            `koanf:"kind"` // "local" | "remote"
	HostLabel   string            `koanf:"host_label"`
	Roots       []string          `koanf:"roots"`
	PathRewrite []PathRewriteRule `koanf:"path_rewrite"`
}

// PathRewriteRule mirrors model.PathRewrite in the TOML surface.
type PathRewriteRule struct {
	FromPrefix string   `koanf:"from_prefix"`
	ToPrefix   string   `koanf:"to_prefix"`
	Agents     []string `koanf:"agents"`
}

// Config is cass's fully-resolved runtime configuration: read-only
// sources.toml content plus the documented CASS_* environment defaults.
type Config struct {
	DataDir           string         `koanf:"data_dir"`
	CacheShardCap     int            `koanf:"cache_shard_cap"`
	CacheTotalCap     int            `koanf:"cache_total_cap"`
	CacheByteCap      int64          `koanf:"cache_byte_cap"`
	WarmDebounceMS    int            `koanf:"warm_debounce_ms"`
	SemanticEmbedder  string         `koanf:"semantic_embedder"`
	Sources           []SourceConfig `koanf:"sources"`
}

// defaults holds the documented CASS_* defaults, loaded before file and
// env layers so both can override it.
func defaults() map[string]interface{} {
	dataDir := filepath.Join(defaultDataRoot(), "cass")
	return map[string]interface{}{
		"data_dir":          dataDir,
		"cache_shard_cap":   256,
		"cache_total_cap":   2048,
		"cache_byte_cap":    10 * 1024 * 1024,
		"warm_debounce_ms":  120,
		"semantic_embedder": "hash",
	}
}

func defaultDataRoot() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// Load reads sources.toml (if present at path) and layers CASS_*
// environment variables on top, per §6/§7's documented defaults.
func Load(sourcesTOMLPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if sourcesTOMLPath != "" {
		if _, err := os.Stat(sourcesTOMLPath); err == nil {
			if err := k.Load(file.Provider(sourcesTOMLPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", sourcesTOMLPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("CASS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "CASS_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("load CASS_* env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
