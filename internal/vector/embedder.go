package vector

import (
	"errors"
	"hash/fnv"
	"math"
	"strings"
)

// ErrUnsupportedEmbedder is returned by every call to the minilm stub;
// deploying a runtime collaborator is out of scope for cass
// itself (see §1 Non-goals on the embedding-model runtime).
var ErrUnsupportedEmbedder = errors.New("unsupported_embedder")

// HashEmbedder is a deterministic, dependency-free bag-of-hashed-tokens
// embedder: stable across runs and machines, used by default and in
// tests since it needs no ML runtime collaborator. Interface grounded on
// kxddry-rag-text-search/internal/domain.Embedder.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns a HashEmbedder producing L2-normalized vectors
// of the given dimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Name() string   { return "hash" }
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed hashes each lowercased whitespace token into a bucket, accumulates
// a signed count per bucket via the hash's high bit, and L2-normalizes the
// result so Store's plain dot product equals cosine similarity.
func (e *HashEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dim))
		sign := float32(1)
		if sum&0x8000_0000 != 0 {
			sign = -1
		}
		vec[bucket] += sign
	}
	normalize(vec)
	return vec, nil
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}

// MiniLMEmbedder defines the interface boundary for delegating to an
// external embedding-model runtime collaborator. cass does not implement
// or bundle that runtime and has no setting for an endpoint; every call
// returns ErrUnsupportedEmbedder, per §1's stated non-goal.
type MiniLMEmbedder struct {
	dim int
}

func NewMiniLMEmbedder(dim int) *MiniLMEmbedder { return &MiniLMEmbedder{dim: dim} }

func (e *MiniLMEmbedder) Name() string      { return "minilm" }
func (e *MiniLMEmbedder) Dimension() int    { return e.dim }
func (e *MiniLMEmbedder) Embed(string) ([]float32, error) {
	return nil, ErrUnsupportedEmbedder
}
