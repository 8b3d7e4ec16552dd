package cmd

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cass-search/cass/internal/fts"
	"github.com/cass-search/cass/internal/orchestrator"
	"github.com/cass-search/cass/internal/output"
	"github.com/cass-search/cass/internal/store"
	"github.com/cass-search/cass/internal/vector"
	"github.com/spf13/cobra"
)

var (
	doctorFix          bool
	doctorForceRebuild bool
)

type doctorIssue struct {
	Component string `json:"component"`
	Detail    string `json:"detail"`
	Fixed     bool   `json:"fixed"`
}

type doctorReport struct {
	Issues    []doctorIssue `json:"issues"`
	ElapsedMS int64         `json:"elapsed_ms"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose and optionally repair the durable store and derived indices",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()
	report := doctorReport{}

	st, err := openStore()
	if err != nil {
		return output.IndexMissing(err)
	}
	defer st.Close()

	if doctorForceRebuild {
		if !doctorFix {
			report.Issues = append(report.Issues, doctorIssue{
				Component: "indices",
				Detail:    "derived indices are stale or missing; pass --fix to rebuild from the durable store",
			})
		} else {
			if err := rebuildDerivedIndices(ctx, st); err != nil {
				return fmt.Errorf("rebuild derived indices: %w", err)
			}
			report.Issues = append(report.Issues, doctorIssue{Component: "indices", Detail: "rebuilt from durable store", Fixed: true})
		}
	}

	idx, err := openFTS()
	if err != nil {
		report.Issues = append(report.Issues, doctorIssue{Component: "fts_index", Detail: err.Error()})
	} else {
		idx.Close()
	}

	vs, _, err := openVector()
	if err != nil {
		report.Issues = append(report.Issues, doctorIssue{Component: "vector_index", Detail: err.Error()})
	} else {
		vs.Close()
	}

	report.ElapsedMS = time.Since(start).Milliseconds()

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	if len(report.Issues) == 0 {
		fmt.Println("no issues found")
	}
	for _, issue := range report.Issues {
		status := "unfixed"
		if issue.Fixed {
			status = "fixed"
		}
		fmt.Printf("[%s] %s (%s)\n", issue.Component, issue.Detail, status)
	}
	return nil
}

// rebuildDerivedIndices discards the fts and vector indices and replays
// every conversation currently in the durable store through them, the
// doctor-grade recovery path for a corrupted or out-of-sync derived index
// that doesn't require re-scanning any connector.
func rebuildDerivedIndices(ctx context.Context, st *store.Store) error {
	ftsPath := ftsDir(cfg.DataDir)
	if err := os.RemoveAll(ftsPath); err != nil {
		return fmt.Errorf("clear fts index: %w", err)
	}
	idx, err := fts.Open(ftsPath)
	if err != nil {
		return fmt.Errorf("recreate fts index: %w", err)
	}
	defer idx.Close()

	embedder := buildEmbedder(cfg.SemanticEmbedder)
	vecPath := orchestrator.VectorIndexPath(cfg.DataDir, embedder.Name(), embedder.Dimension())
	if err := os.RemoveAll(vecPath); err != nil {
		return fmt.Errorf("clear vector index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(vecPath), 0o755); err != nil {
		return fmt.Errorf("create vector index dir: %w", err)
	}

	agentRowIDs := make(map[string]int64)
	sourceRowIDs := make(map[string]int64)

	var entries []vector.Entry
	for conv, err := range st.IterConversations(ctx, store.ConversationFilter{}) {
		if err != nil {
			return err
		}
		messages, err := st.GetMessages(ctx, conv.ID)
		if err != nil {
			return err
		}
		workspace := ""
		if conv.SourcePath != "" {
			workspace = filepath.Dir(conv.SourcePath)
		}

		agentRowID, ok := agentRowIDs[conv.Agent]
		if !ok {
			agentRowID, err = st.EnsureAgent(ctx, conv.Agent)
			if err != nil {
				return fmt.Errorf("resolve agent %q: %w", conv.Agent, err)
			}
			agentRowIDs[conv.Agent] = agentRowID
		}
		sourceRowID, ok := sourceRowIDs[conv.Provenance.SourceID]
		if !ok {
			sourceRowID, err = st.EnsureSource(ctx, conv.Provenance.SourceID, conv.Provenance.OriginKind, conv.Provenance.OriginHost)
			if err != nil {
				return fmt.Errorf("resolve source %q: %w", conv.Provenance.SourceID, err)
			}
			sourceRowIDs[conv.Provenance.SourceID] = sourceRowID
		}

		docs := make([]fts.Document, 0, len(messages))
		for _, m := range messages {
			docs = append(docs, fts.Document{
				Agent:       conv.Agent,
				Workspace:   workspace,
				SourceID:    conv.Provenance.SourceID,
				OriginKind:  string(conv.Provenance.OriginKind),
				OriginHost:  conv.Provenance.OriginHost,
				SourcePath:  conv.SourcePath,
				MsgIdx:      m.Idx,
				CreatedAt:   m.CreatedAt,
				Title:       conv.Title,
				Content:     m.Content,
				ContentHash: m.ContentHash,
			})

			decoded, err := hex.DecodeString(m.ContentHash)
			if err != nil || len(decoded) != 32 {
				continue
			}
			vec, err := embedder.Embed(m.Content)
			if err != nil {
				continue
			}
			var hash [32]byte
			copy(hash[:], decoded)
			entries = append(entries, vector.Entry{
				ContentHash: hash,
				SourceID:    uint64(sourceRowID),
				AgentEnum:   uint8(agentRowID),
				Timestamp:   m.CreatedAt,
				Vector:      vec,
			})
		}
		if err := idx.IndexBatch(ctx, docs); err != nil {
			return fmt.Errorf("reindex conversation %d: %w", conv.ID, err)
		}
	}

	if len(entries) > 0 {
		if err := vector.Write(vecPath, vector.QuantFP32, embedder.Dimension(), entries); err != nil {
			return fmt.Errorf("rebuild vector index: %w", err)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "apply repairs instead of only reporting them")
	doctorCmd.Flags().BoolVar(&doctorForceRebuild, "force-rebuild", false, "rebuild the fts and vector indices from the durable store")
}
