package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cass-search/cass/internal/connector"
	"github.com/cass-search/cass/internal/orchestrator"
	"github.com/cass-search/cass/internal/output"
	"github.com/spf13/cobra"
)

const idempotencyTTL = 24 * time.Hour

// idempotencyCachePath returns the conventional cache file for a key,
// per §6's "idempotency key caches the last result for 24h" rule.
func idempotencyCachePath(dataDir, key string) string {
	return filepath.Join(dataDir, "idempotency", key+".json")
}

// loadCachedIndexResult returns a cached run's payload if one exists for
// key and is younger than idempotencyTTL.
func loadCachedIndexResult(dataDir, key string) (map[string]interface{}, bool) {
	path := idempotencyCachePath(dataDir, key)
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > idempotencyTTL {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

func saveIdempotentResult(dataDir, key string, payload map[string]interface{}) {
	path := idempotencyCachePath(dataDir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}

var (
	indexFull         bool
	indexWatch        bool
	indexWatchOnce    []string
	indexForceRebuild bool
	indexIdempotency  string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan every detected connector and update the durable store and indices",
	RunE:  runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexIdempotency != "" {
		if cached, ok := loadCachedIndexResult(cfg.DataDir, indexIdempotency); ok {
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cached)
			}
			fmt.Println("cached result for idempotency key", indexIdempotency)
			return nil
		}
	}

	st, err := openStore()
	if err != nil {
		return output.IndexMissing(err)
	}
	defer st.Close()

	fts, err := openFTS()
	if err != nil {
		return output.DataCorrupt("open fts index", err)
	}
	defer fts.Close()

	embedder := buildEmbedder(cfg.SemanticEmbedder)

	orch := &orchestrator.Orchestrator{
		DataDir:           cfg.DataDir,
		Registry:          connector.Default(),
		Store:             st,
		FTS:               fts,
		Embedder:          embedder,
		Provenance:        localProvenance(),
		PathRewrites:      pathRewrites(),
		ScanRootsOverride: indexWatchOnce,
	}

	mode := orchestrator.ModeIncremental
	if indexFull || indexForceRebuild {
		mode = orchestrator.ModeFull
	}
	if len(indexWatchOnce) > 0 {
		mode = orchestrator.ModeIncremental
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if indexWatch {
		watcher, err := orchestrator.NewWatcher(orch)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if _, err := orch.Run(ctx, orchestrator.ModeFull); err != nil {
			return err
		}
		return watcher.Start(ctx)
	}

	start := time.Now()
	result, err := orch.Run(ctx, mode)
	if err != nil && result == nil {
		return err
	}
	elapsed := time.Since(start).Milliseconds()

	if indexIdempotency != "" && err == nil {
		saveIdempotentResult(cfg.DataDir, indexIdempotency, indexResultPayload(result, elapsed, nil))
	}

	if jsonOutput {
		return writeIndexJSON(result, elapsed, err)
	}
	printIndexHuman(result, elapsed, err)
	return err
}

func indexResultPayload(result *orchestrator.Result, elapsedMS int64, runErr error) map[string]interface{} {
	payload := map[string]interface{}{
		"discovered": 0,
		"persisted":  0,
		"indexed":    0,
		"elapsed_ms": elapsedMS,
	}
	if result != nil {
		payload["discovered"] = result.Progress.Discovered
		payload["persisted"] = result.Progress.Persisted
		payload["indexed"] = result.Progress.Indexed
		payload["warnings"] = len(result.Warnings)
		payload["partial"] = result.PartialResult
	}
	if runErr != nil {
		if e, ok := runErr.(*output.Error); ok {
			payload["error"] = e.ToEnvelope()
		} else {
			payload["error"] = runErr.Error()
		}
	}
	return payload
}

func writeIndexJSON(result *orchestrator.Result, elapsedMS int64, runErr error) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(indexResultPayload(result, elapsedMS, runErr))
}

func printIndexHuman(result *orchestrator.Result, elapsedMS int64, runErr error) {
	if result != nil {
		fmt.Printf("discovered %d, persisted %d, indexed %d in %dms\n",
			result.Progress.Discovered, result.Progress.Persisted, result.Progress.Indexed, elapsedMS)
		if len(result.Warnings) > 0 {
			fmt.Printf("%d warning(s):\n", len(result.Warnings))
			for _, w := range result.Warnings {
				fmt.Printf("  %s\n", w.Error())
			}
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "index failed: %v\n", runErr)
	}
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "truncate the durable store and re-scan every connector from scratch")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "run indefinitely, re-indexing touched files as they change")
	indexCmd.Flags().StringSliceVar(&indexWatchOnce, "watch-once", nil, "re-index only the given paths, then exit")
	indexCmd.Flags().BoolVar(&indexForceRebuild, "force-rebuild", false, "same as --full: truncate the durable store and re-scan every connector")
	indexCmd.Flags().StringVar(&indexIdempotency, "idempotency-key", "", "cache this run's result for 24h under the given key")
}
