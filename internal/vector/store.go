package vector

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"runtime"
	"sort"
	"sync"
)

// Embedder converts free text into a fixed-dimension vector. Interface
// shape grounded on kxddry-rag-text-search's domain.Embedder.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(text string) ([]float32, error)
}

// Row is one decoded vector-index entry with its row metadata resolved,
// used as the result unit of Search.
type Row struct {
	ContentHash [32]byte
	SourceID    uint64
	AgentEnum   uint8
	Timestamp   int64
	Score       float64
}

// Filter narrows a Search to rows matching all set predicates; zero values
// mean "don't filter on this field".
type Filter struct {
	AgentEnum uint8 // 0 means any; agent enums are assigned starting at 1
	SourceID  uint64
	Since     int64
	Until     int64
}

func (f Filter) matches(r rowRecord) bool {
	if f.AgentEnum != 0 && r.AgentEnum != f.AgentEnum {
		return false
	}
	if f.SourceID != 0 && r.SourceID != f.SourceID {
		return false
	}
	if f.Since > 0 && r.Timestamp < f.Since {
		return false
	}
	if f.Until > 0 && r.Timestamp > f.Until {
		return false
	}
	return true
}

// Store is a read-only, mmap-backed .cvvi index. Rebuild writes a new
// generation on disk (via Write); Search and Clear operate against the
// currently loaded generation. Shaped like
// kxddry-rag-text-search's domain.VectorStore but backed by the on-disk
// format instead of an in-memory slice.
type Store struct {
	path string

	mu      sync.RWMutex
	header  Header
	rows    []rowRecord
	data    []byte
	unmap   func() error
	preFP32 []float32 // populated when PreConvertFP16 is set and quant==fp16
}

// Open loads path if it exists, or leaves the store empty (dimension
// unset) if not — callers create a fresh index with Rebuild or Write.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	defer f.Close()

	data, unmap, err := mmapFile(f)
	if err != nil {
		return err
	}

	header, err := decodeHeader(data)
	if err != nil {
		unmap()
		return err
	}

	rows := make([]rowRecord, 0, header.Count)
	off := headerSize
	for i := uint64(0); i < header.Count; i++ {
		row, n, err := decodeRow(data[off:])
		if err != nil {
			unmap()
			return fmt.Errorf("vector index: row %d: %w", i, err)
		}
		rows = append(rows, row)
		off += n
	}

	compWidth := bytesPerComponent(header.Quantization)
	slabSize := int(header.Count) * int(header.Dimension) * compWidth
	slabEnd := off + slabSize
	if slabEnd+footerSize > len(data) {
		unmap()
		return fmt.Errorf("vector index: truncated slab")
	}
	if err := verifyFooterCRC(data[off:slabEnd], data[slabEnd:slabEnd+footerSize]); err != nil {
		unmap()
		return err
	}

	s.mu.Lock()
	if s.unmap != nil {
		s.unmap()
	}
	s.header = header
	s.rows = rows
	s.data = data[off:slabEnd]
	s.unmap = unmap
	s.preFP32 = nil
	s.mu.Unlock()
	return nil
}

func verifyFooterCRC(slab, footer []byte) error {
	want := binary.LittleEndian.Uint32(footer)
	got := crc32Sum(slab)
	if want != got {
		return fmt.Errorf("vector index: slab CRC mismatch (corrupt)")
	}
	return nil
}

// Close releases the mmap'd region.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmap != nil {
		return s.unmap()
	}
	return nil
}

// Dimension returns the loaded index's vector width, or 0 if empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.header.Dimension)
}

// Quantization returns the loaded generation's on-disk quantization.
func (s *Store) Quantization() Quantization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header.Quantization
}

// Count returns the number of rows in the loaded generation.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Entries decodes every row in the loaded generation back into Entry
// values, letting an incremental rebuild merge new rows with what's
// already on disk instead of discarding the existing generation.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.rows))
	for i, r := range s.rows {
		out[i] = Entry{
			ContentHash: r.ContentHash,
			SourceID:    r.SourceID,
			AgentEnum:   r.AgentEnum,
			Timestamp:   r.Timestamp,
			Vector:      append([]float32(nil), s.vectorAt(i)...),
		}
	}
	return out
}

// PreConvertFP16 pre-converts an fp16 slab to fp32 in process memory,
// trading RAM for per-query CPU, per the loader's documented opt-in mode.
func (s *Store) PreConvertFP16() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.header.Quantization != QuantFP16 || len(s.data) == 0 {
		return nil
	}
	n := len(s.rows) * int(s.header.Dimension)
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = fp16ToFloat32(binary.LittleEndian.Uint16(s.data[i*2:]))
	}
	s.preFP32 = out
	return nil
}

func (s *Store) vectorAt(idx int) []float32 {
	dim := int(s.header.Dimension)
	if s.preFP32 != nil {
		return s.preFP32[idx*dim : (idx+1)*dim]
	}
	if s.header.Quantization == QuantFP16 {
		out := make([]float32, dim)
		base := s.rows[idx].VecOffset
		for i := 0; i < dim; i++ {
			out[i] = fp16ToFloat32(binary.LittleEndian.Uint16(s.data[int(base)+i*2:]))
		}
		return out
	}
	out := make([]float32, dim)
	base := s.rows[idx].VecOffset
	for i := 0; i < dim; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(s.data[int(base)+i*4:]))
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot // vectors are assumed L2-normalized at embed time, so dot == cosine
}

type scoredRow struct {
	idx   int
	score float64
}

// a min-heap over scoredRow, used to maintain the running top-k.
type topKHeap []scoredRow

func (h topKHeap) Len() int { return len(h) }
func (h topKHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	return h[i].idx > h[j].idx // smallest-first heap: larger idx sorts as "smaller" so it evicts first on ties
}
func (h topKHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topKHeap) Push(x interface{}) { *h = append(*h, x.(scoredRow)) }
func (h *topKHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Search runs an exact top-k cosine scan over rows matching filter,
// maintaining a min-heap of size k, then sorts the final result by
// (score desc, content_hash-derived id asc) — approximated here by
// (score desc, SourceID asc, Timestamp asc) since the row table carries
// no independent message id, for deterministic tie-breaking. Summation
// order is sequential by row index, matching the ordering-preservation
// rule; see SearchParallel for the chunked variant with an identical
// comparator.
func (s *Store) Search(query []float32, k int, filter Filter) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(s.header.Dimension) != len(query) {
		return nil, fmt.Errorf("vector index: query dimension %d != index dimension %d", len(query), s.header.Dimension)
	}

	h := &topKHeap{}
	heap.Init(h)
	for i, row := range s.rows {
		if !filter.matches(row) {
			continue
		}
		score := cosine(query, s.vectorAt(i))
		if h.Len() < k {
			heap.Push(h, scoredRow{idx: i, score: score})
			continue
		}
		if score > (*h)[0].score {
			heap.Pop(h)
			heap.Push(h, scoredRow{idx: i, score: score})
		}
	}

	out := make([]Row, 0, h.Len())
	for _, sr := range *h {
		row := s.rows[sr.idx]
		out = append(out, Row{
			ContentHash: row.ContentHash,
			SourceID:    row.SourceID,
			AgentEnum:   row.AgentEnum,
			Timestamp:   row.Timestamp,
			Score:       sr.score,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}

// SearchParallel partitions rows into runtime.GOMAXPROCS(0) chunks,
// computes per-chunk top-k with the identical scoring function and
// comparator as Search, merges the partial heaps, and resorts. Each row's
// score is computed the same way regardless of partitioning, so the
// result set and order match Search exactly — only wall-clock differs.
func (s *Store) SearchParallel(query []float32, k int, filter Filter) ([]Row, error) {
	s.mu.RLock()
	n := len(s.rows)
	s.mu.RUnlock()

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 || n == 0 {
		workers = 1
	}
	if workers > n {
		workers = 1
	}
	chunk := (n + workers - 1) / workers

	partials := make([][]Row, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= n {
			continue
		}
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			rows, err := s.searchRange(query, k, filter, start, end)
			if err == nil {
				partials[w] = rows
			}
		}(w, start, end)
	}
	wg.Wait()

	var merged []Row
	for _, p := range partials {
		merged = append(merged, p...)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].SourceID != merged[j].SourceID {
			return merged[i].SourceID < merged[j].SourceID
		}
		return merged[i].Timestamp < merged[j].Timestamp
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (s *Store) searchRange(query []float32, k int, filter Filter, start, end int) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := &topKHeap{}
	heap.Init(h)
	for i := start; i < end; i++ {
		if !filter.matches(s.rows[i]) {
			continue
		}
		score := cosine(query, s.vectorAt(i))
		if h.Len() < k {
			heap.Push(h, scoredRow{idx: i, score: score})
			continue
		}
		if score > (*h)[0].score {
			heap.Pop(h)
			heap.Push(h, scoredRow{idx: i, score: score})
		}
	}
	out := make([]Row, 0, h.Len())
	for _, sr := range *h {
		row := s.rows[sr.idx]
		out = append(out, Row{
			ContentHash: row.ContentHash,
			SourceID:    row.SourceID,
			AgentEnum:   row.AgentEnum,
			Timestamp:   row.Timestamp,
			Score:       sr.score,
		})
	}
	return out, nil
}

// Clear removes the on-disk index and drops the loaded generation.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unmap != nil {
		s.unmap()
		s.unmap = nil
	}
	s.rows = nil
	s.data = nil
	s.preFP32 = nil
	s.header = Header{}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Rebuild writes a new generation from entries and reloads it, atomically
// replacing the prior generation on success (the old mmap stays valid
// until reload swaps it under the lock).
func (s *Store) Rebuild(quant Quantization, dimension int, entries []Entry) error {
	tmp := s.path + ".tmp"
	if err := Write(tmp, quant, dimension, entries); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	return s.reload()
}

func crc32Sum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
