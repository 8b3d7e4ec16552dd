package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cass-search/cass/internal/export"
	"github.com/cass-search/cass/internal/output"
	"github.com/cass-search/cass/internal/store"
	"github.com/spf13/cobra"
)

var (
	exportFormat     string
	exportSourcePath string
	exportOutputFile string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a stored conversation in a portable format",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportSourcePath == "" {
		return output.New(output.KindUsage, "--source-path is required", "pass the source_path of a conversation shown by `cass search`")
	}

	exporter, err := export.NewExporter(exportFormat)
	if err != nil {
		return output.New(output.KindUsage, err.Error(), "supported formats: jsonl, md, yaml, json")
	}

	st, err := openStore()
	if err != nil {
		return output.IndexMissing(err)
	}
	defer st.Close()

	ctx := context.Background()
	record, err := loadExportRecord(ctx, st, exportSourcePath)
	if err != nil {
		return err
	}

	w := os.Stdout
	if exportOutputFile != "" {
		f, err := os.Create(exportOutputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return exporter.Export(record, w)
}

// loadExportRecord finds the conversation whose source_path matches path
// and loads its ordered messages. The store offers no conversation lookup
// by source path, so this walks every stored conversation once.
func loadExportRecord(ctx context.Context, st *store.Store, path string) (export.Record, error) {
	for conv, err := range st.IterConversations(ctx, store.ConversationFilter{}) {
		if err != nil {
			return export.Record{}, fmt.Errorf("iterate conversations: %w", err)
		}
		if conv.SourcePath != path {
			continue
		}
		messages, err := st.GetMessages(ctx, conv.ID)
		if err != nil {
			return export.Record{}, fmt.Errorf("load messages for conversation %d: %w", conv.ID, err)
		}
		return export.Record{Conversation: conv, Messages: messages}, nil
	}
	return export.Record{}, output.New(output.KindUsage, fmt.Sprintf("no conversation found with source_path %q", path), "")
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "export format: jsonl, md, yaml, json")
	exportCmd.Flags().StringVar(&exportSourcePath, "source-path", "", "source_path of the conversation to export")
	exportCmd.Flags().StringVarP(&exportOutputFile, "output", "o", "", "write to this file instead of stdout")
}
