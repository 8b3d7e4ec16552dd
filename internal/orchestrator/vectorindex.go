package orchestrator

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/cass-search/cass/internal/vector"
)

// VectorIndexPath returns the conventional .cvvi path for a data dir and
// embedder, per §6's `vector_index/index-<embedder>-<dim>.cvvi` layout.
func VectorIndexPath(dataDir, embedderName string, dimension int) string {
	return filepath.Join(dataDir, "vector_index", fmt.Sprintf("index-%s-%d.cvvi", embedderName, dimension))
}

// vectorAccumulator embeds message content as it's persisted and rebuilds
// the vector index once the run completes, merging with whatever
// generation was already on disk so an incremental run doesn't discard
// vectors for messages it didn't re-scan.
type vectorAccumulator struct {
	store    *vector.Store
	embedder vector.Embedder
	path     string
	seen     map[[32]byte]bool
	fresh    []vector.Entry
}

func newVectorAccumulator(path string, embedder vector.Embedder) (*vectorAccumulator, error) {
	store, err := vector.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	seen := make(map[[32]byte]bool, store.Count())
	for _, e := range store.Entries() {
		seen[e.ContentHash] = true
	}
	return &vectorAccumulator{store: store, embedder: embedder, path: path, seen: seen}, nil
}

// add embeds content and queues it for the next flush, skipping content
// hashes already present in the loaded generation.
func (v *vectorAccumulator) add(contentHashHex string, sourceID uint64, agentEnum uint8, timestamp int64, content string) error {
	var hash [32]byte
	decoded, err := hex.DecodeString(contentHashHex)
	if err != nil || len(decoded) != 32 {
		return fmt.Errorf("decode content hash %q: %w", contentHashHex, err)
	}
	copy(hash[:], decoded)
	if v.seen[hash] {
		return nil
	}
	v.seen[hash] = true

	vec, err := v.embedder.Embed(content)
	if err != nil {
		return fmt.Errorf("embed message: %w", err)
	}
	v.fresh = append(v.fresh, vector.Entry{
		ContentHash: hash,
		SourceID:    sourceID,
		AgentEnum:   agentEnum,
		Timestamp:   timestamp,
		Vector:      vec,
	})
	return nil
}

// flush merges the run's fresh entries with the prior generation and
// rebuilds the on-disk index. A no-op when nothing new was embedded.
func (v *vectorAccumulator) flush() error {
	if len(v.fresh) == 0 {
		return nil
	}
	quant := v.store.Quantization()
	if v.store.Dimension() == 0 {
		quant = vector.QuantFP32
	}
	merged := append(v.store.Entries(), v.fresh...)
	return v.store.Rebuild(quant, v.embedder.Dimension(), merged)
}
