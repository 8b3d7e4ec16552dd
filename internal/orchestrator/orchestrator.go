// Package orchestrator drives the connector framework (B), the durable
// store (C), the FTS index (D), and the vector index (E) through full,
// incremental, and watch ingestion modes, per §4.F.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cass-search/cass/internal/connector"
	"github.com/cass-search/cass/internal/fts"
	"github.com/cass-search/cass/internal/logging"
	"github.com/cass-search/cass/internal/model"
	"github.com/cass-search/cass/internal/output"
	"github.com/cass-search/cass/internal/store"
	"github.com/cass-search/cass/internal/vector"
)

// Mode selects the orchestrator's ingestion strategy.
type Mode int

const (
	ModeFull Mode = iota
	ModeIncremental
	ModeWatch
)

// Result summarizes one orchestrator run, surfaced to the CLI's `index`
// subcommand output.
type Result struct {
	Progress      Snapshot
	Warnings      []connector.Warning
	PartialResult bool
}

// Orchestrator wires the registry, store, and FTS index together and
// drives one ingestion run at a time.
type Orchestrator struct {
	DataDir      string
	Registry     connector.Registry
	Store        *store.Store
	FTS          *fts.Index
	Embedder     vector.Embedder // nil disables vector indexing for this run
	Provenance   model.Provenance
	PathRewrites []model.PathRewrite

	// ScanRootsOverride, when non-empty, replaces every connector's
	// detected scan roots with this exact list — the `index --watch-once
	// <paths>` path, which re-indexes only the named files/dirs instead of
	// every connector's full detected footprint.
	ScanRootsOverride []string

	Progress Progress

	vecAcc *vectorAccumulator
}

// Run executes one ingestion pass in the given mode.
func (o *Orchestrator) Run(ctx context.Context, mode Mode) (*Result, error) {
	lock, err := AcquireLock(o.DataDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	if mode == ModeFull {
		if err := o.Store.TruncateAll(ctx); err != nil {
			return nil, output.Wrap(output.KindDataCorrupt, "truncate durable store", "run `cass doctor --fix --force-rebuild`", err)
		}
	}

	if o.Embedder != nil {
		path := VectorIndexPath(o.DataDir, o.Embedder.Name(), o.Embedder.Dimension())
		acc, err := newVectorAccumulator(path, o.Embedder)
		if err != nil {
			return nil, fmt.Errorf("open vector index: %w", err)
		}
		if mode == ModeFull {
			acc.seen = make(map[[32]byte]bool) // full rebuild: don't carry forward a stale generation's rows
			if err := acc.store.Clear(); err != nil {
				return nil, fmt.Errorf("clear vector index: %w", err)
			}
		}
		o.vecAcc = acc
	}

	state, err := loadWatchState(o.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load watch state: %w", err)
	}

	result := &Result{}
	var warnMu sync.Mutex
	warn := func(w connector.Warning) {
		warnMu.Lock()
		result.Warnings = append(result.Warnings, w)
		warnMu.Unlock()
		logging.LogWarn("connector warning", "kind", w.Kind, "path", w.Path)
	}

	type job struct {
		conn connector.Connector
		since int64
	}

	var jobs []job
	for _, conn := range o.Registry {
		since := int64(0)
		if mode == ModeIncremental || mode == ModeWatch {
			since = state.SinceTimestamp(o.Provenance.SourceID, conn.Slug())
		}
		jobs = append(jobs, job{conn: conn, since: since})
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	jobCh := make(chan job)
	convCh := make(chan connector.ScannedConversation, workers*4) // bounded, applies scan-writer backpressure

	var scanWG sync.WaitGroup
	scanWG.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer scanWG.Done()
			for j := range jobCh {
				o.scanOne(ctx, j.conn, j.since, convCh, warn)
			}
		}()
	}

	go func() {
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-ctx.Done():
			}
		}
		close(jobCh)
		scanWG.Wait()
		close(convCh)
	}()

	runStart := time.Now().UnixMilli()
	if err := o.writeLoop(ctx, convCh); err != nil {
		result.PartialResult = true
		result.Progress = o.Progress.Snapshot()
		return result, output.Wrap(output.KindPartial, "ingest batch failed", "re-run `cass index` to resume", err)
	}

	if o.vecAcc != nil {
		if err := o.vecAcc.flush(); err != nil {
			logging.LogWarn("vector index rebuild failed", "error", err)
		}
	}

	for _, conn := range o.Registry {
		state.SetSinceTimestamp(o.Provenance.SourceID, conn.Slug(), runStart)
	}
	if err := state.save(o.DataDir); err != nil {
		logging.LogWarn("failed to persist watch state", "error", err)
	}

	result.Progress = o.Progress.Snapshot()
	return result, nil
}

func (o *Orchestrator) scanOne(ctx context.Context, conn connector.Connector, since int64, out chan<- connector.ScannedConversation, warn func(connector.Warning)) {
	scanRoots := o.ScanRootsOverride
	if len(scanRoots) == 0 {
		detection, err := conn.Detect()
		if err != nil || !detection.Present {
			return
		}
		scanRoots = detection.ScanRoots
	}
	sc := connector.ScanContext{
		Context:      ctx,
		ScanRoots:    scanRoots,
		SinceMillis:  since,
		Provenance:   o.Provenance,
		PathRewrites: o.PathRewrites,
	}
	for conv := range conn.Scan(sc, warn) {
		o.Progress.AddDiscovered(1)
		select {
		case out <- conv:
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop is the single writer into the store and FTS index, serializing
// all ingest through one goroutine per §5's concurrency model.
func (o *Orchestrator) writeLoop(ctx context.Context, in <-chan connector.ScannedConversation) error {
	sourceRowID, err := o.Store.EnsureSource(ctx, o.Provenance.SourceID, o.Provenance.OriginKind, o.Provenance.OriginHost)
	if err != nil {
		return fmt.Errorf("ensure source: %w", err)
	}

	for conv := range in {
		agentRowID, err := o.Store.EnsureAgent(ctx, conv.Conversation.Agent)
		if err != nil {
			return fmt.Errorf("ensure agent: %w", err)
		}
		workspaceID := int64(0)
		if conv.Conversation.SourcePath != "" {
			workspaceID, err = o.Store.EnsureWorkspace(ctx, filepath.Dir(conv.Conversation.SourcePath), "")
			if err != nil {
				return fmt.Errorf("ensure workspace: %w", err)
			}
		}
		conv.Conversation.WorkspaceID = workspaceID

		convID, err := o.Store.UpsertConversation(ctx, sourceRowID, conv.Conversation)
		if err != nil {
			return fmt.Errorf("upsert conversation: %w", err)
		}

		inserted, err := o.Store.InsertMessagesBatch(ctx, convID, conv.Messages)
		if err != nil {
			return fmt.Errorf("insert messages: %w", err)
		}
		o.Progress.AddPersisted(inserted)

		if err := o.indexMessages(ctx, conv); err != nil {
			return fmt.Errorf("index messages: %w", err)
		}
		o.embedMessages(conv, sourceRowID, agentRowID)
		o.Progress.AddIndexed(len(conv.Messages))
	}
	return nil
}

// embedMessages queues each message's embedding for the run's vector
// index flush. Embedding failures are logged and skipped rather than
// aborting the batch — a missing vector row degrades semantic recall for
// that message, it doesn't corrupt anything.
func (o *Orchestrator) embedMessages(conv connector.ScannedConversation, sourceRowID, agentRowID int64) {
	if o.vecAcc == nil {
		return
	}
	agentEnum := uint8(agentRowID)
	sourceID := uint64(sourceRowID)
	for _, m := range conv.Messages {
		if err := o.vecAcc.add(m.ContentHash, sourceID, agentEnum, m.CreatedAt, m.Content); err != nil {
			logging.LogWarn("embed message failed", "error", err, "source_path", conv.Conversation.SourcePath, "msg_idx", m.Idx)
		}
	}
}

func (o *Orchestrator) indexMessages(ctx context.Context, conv connector.ScannedConversation) error {
	if o.FTS == nil {
		return nil
	}
	workspace := ""
	if conv.Conversation.SourcePath != "" {
		workspace = filepath.Dir(conv.Conversation.SourcePath)
	}
	docs := make([]fts.Document, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		docs = append(docs, fts.Document{
			Agent:       conv.Conversation.Agent,
			Workspace:   workspace,
			SourceID:    o.Provenance.SourceID,
			OriginKind:  string(o.Provenance.OriginKind),
			OriginHost:  o.Provenance.OriginHost,
			SourcePath:  conv.Conversation.SourcePath,
			MsgIdx:      m.Idx,
			CreatedAt:   m.CreatedAt,
			Title:       conv.Conversation.Title,
			Content:     m.Content,
			ContentHash: m.ContentHash,
		})
	}
	return o.FTS.IndexBatch(ctx, docs)
}
