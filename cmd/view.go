package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cass-search/cass/internal/output"
	"github.com/spf13/cobra"
)

var viewLine int

type viewResult struct {
	SourcePath string `json:"source_path"`
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
}

var viewCmd = &cobra.Command{
	Use:   "view <path>",
	Short: "Read a source file at a given line for follow-up display",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func runView(cmd *cobra.Command, args []string) error {
	path := args[0]
	if viewLine <= 0 {
		return output.New(output.KindUsage, "-n is required and must be a positive line number", "")
	}

	text, err := readLine(path, viewLine)
	if err != nil {
		return fmt.Errorf("read %s:%d: %w", path, viewLine, err)
	}

	result := viewResult{SourcePath: path, LineNumber: viewLine, Text: text}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Println(text)
	return nil
}

// readLine returns the 1-indexed line n of the file at path, or an error
// if the file is shorter than n lines.
func readLine(path string, n int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == n {
			return scanner.Text(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("file has only %d lines", lineNo)
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().IntVarP(&viewLine, "line", "n", 0, "line number to read")
}
