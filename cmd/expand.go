package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cass-search/cass/internal/output"
	"github.com/spf13/cobra"
)

var (
	expandLine   int
	expandRadius int
)

type expandResult struct {
	SourcePath string   `json:"source_path"`
	LineNumber int      `json:"line_number"`
	StartLine  int      `json:"start_line"`
	Lines      []string `json:"lines"`
}

var expandCmd = &cobra.Command{
	Use:   "expand <path>",
	Short: "Read a context window of lines around a line in a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	path := args[0]
	if expandLine <= 0 {
		return output.New(output.KindUsage, "-n is required and must be a positive line number", "")
	}
	radius := expandRadius
	if radius < 0 {
		radius = 0
	}

	lines, startLine, err := readLineRange(path, expandLine, radius)
	if err != nil {
		return fmt.Errorf("read %s around line %d: %w", path, expandLine, err)
	}

	result := expandResult{SourcePath: path, LineNumber: expandLine, StartLine: startLine, Lines: lines}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	for i, line := range lines {
		marker := "  "
		if startLine+i == expandLine {
			marker = "> "
		}
		fmt.Printf("%s%6d  %s\n", marker, startLine+i, line)
	}
	return nil
}

// readLineRange returns the lines [n-radius, n+radius] (clamped to the
// file's bounds) along with the line number the first returned line is.
func readLineRange(path string, n, radius int) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	lo := n - radius
	if lo < 1 {
		lo = 1
	}
	hi := n + radius

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var out []string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo < lo {
			continue
		}
		if lineNo > hi {
			break
		}
		out = append(out, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return nil, 0, fmt.Errorf("no lines found in range")
	}
	return out, lo, nil
}

func init() {
	rootCmd.AddCommand(expandCmd)
	expandCmd.Flags().IntVarP(&expandLine, "line", "n", 0, "center line number")
	expandCmd.Flags().IntVarP(&expandRadius, "context", "C", 3, "number of lines of context on each side")
}
