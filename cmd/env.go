package cmd

import (
	"path/filepath"

	"github.com/cass-search/cass/internal/fts"
	"github.com/cass-search/cass/internal/model"
	"github.com/cass-search/cass/internal/orchestrator"
	"github.com/cass-search/cass/internal/store"
	"github.com/cass-search/cass/internal/vector"
)

// storePath and ftsDir are the conventional per-component
// locations under a data dir, per §6.
func storePath(dataDir string) string { return filepath.Join(dataDir, "agent_search.db") }
func ftsDir(dataDir string) string    { return filepath.Join(dataDir, "index") }

// openStore opens the durable relational store at the resolved data dir.
func openStore() (*store.Store, error) {
	return store.Open(storePath(cfg.DataDir))
}

// openFTS opens the FTS index at the resolved data dir.
func openFTS() (*fts.Index, error) {
	return fts.Open(ftsDir(cfg.DataDir))
}

// openVector opens the vector index for the configured embedder.
func openVector() (*vector.Store, vector.Embedder, error) {
	embedder := buildEmbedder(cfg.SemanticEmbedder)
	path := orchestrator.VectorIndexPath(cfg.DataDir, embedder.Name(), embedder.Dimension())
	vs, err := vector.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return vs, embedder, nil
}

// buildEmbedder resolves the CASS_SEMANTIC_EMBEDDER config value to a
// concrete vector.Embedder, defaulting to the dependency-free hash
// embedder when unset or unrecognized.
func buildEmbedder(name string) vector.Embedder {
	switch name {
	case "minilm":
		return vector.NewMiniLMEmbedder(384)
	default:
		return vector.NewHashEmbedder(256)
	}
}

// localProvenance is the provenance every locally-scanned connector run
// stamps on its output, absent an explicitly configured remote source.
func localProvenance() model.Provenance {
	return model.Provenance{SourceID: "local", OriginKind: model.OriginLocal, OriginHost: ""}
}

// pathRewrites flattens every configured source's rewrite rules into the
// single ordered list model.ApplyPathRewrites expects.
func pathRewrites() []model.PathRewrite {
	var rules []model.PathRewrite
	for _, src := range cfg.Sources {
		for _, r := range src.PathRewrite {
			rules = append(rules, model.PathRewrite{
				FromPrefix: r.FromPrefix,
				ToPrefix:   r.ToPrefix,
				Agents:     r.Agents,
			})
		}
	}
	return rules
}
