package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cass-search/cass/internal/config"
	"github.com/cass-search/cass/internal/logging"
	"github.com/cass-search/cass/internal/output"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	dataDirFlag string
	jsonOutput  bool
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cass",
	Short: "Search across every coding agent's session history",
	Long: `cass indexes Cursor, Claude Code, Codex, Aider, and other coding
agents' local session logs into one searchable store, and serves lexical,
semantic, and hybrid search over them from the command line.

Quick Start:
  cass index --full        # build the index from scratch
  cass search "todo list"  # search across every indexed agent
  cass health               # check store and index status`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.SetVerbose(verbose)
		loaded, err := config.Load(sourcesTOMLPath())
		if err != nil {
			return err
		}
		if dataDirFlag != "" {
			loaded.DataDir = dataDirFlag
		}
		cfg = loaded
		return nil
	},
}

// sourcesTOMLPath resolves the conventional sources.toml location under
// the data dir a caller asked for (or the default, if --data-dir wasn't
// given), so config.Load can layer file config beneath CASS_* env vars.
func sourcesTOMLPath() string {
	dir := dataDirFlag
	if dir == "" {
		def, err := config.Load("")
		if err != nil {
			return ""
		}
		dir = def.DataDir
	}
	return filepath.Join(dir, "sources.toml")
}

// Execute adds all child commands to the root command and sets flags
// appropriately, exiting with the code the §7 taxonomy assigns to the
// error's kind rather than a blanket 1.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var outErr *output.Error
	if errors.As(err, &outErr) {
		os.Exit(outErr.Kind.ExitCode())
	}
	os.Exit(output.KindUnknown.ExitCode())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Override the data directory (default: $XDG_DATA_HOME/cass)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON instead of human-readable text")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
