package connector

import (
	"bufio"
	"os"
)

// forEachJSONLine opens path and calls fn with each non-blank line's raw
// bytes, in file order. Reader errors abort iteration; fn returning false
// stops early without error.
func forEachJSONLine(path string, fn func(lineNo int, line []byte) (cont bool)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		if !fn(lineNo, cp) {
			break
		}
	}
	return scanner.Err()
}

// walkFilesWithExt lists files under root (recursively) whose name has the
// given extension, e.g. ".jsonl".
func walkFilesWithExt(root, ext string) ([]string, error) {
	var out []string
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		full := root + string(os.PathSeparator) + e.Name()
		if e.IsDir() {
			sub, err := walkFilesWithExt(full, ext)
			if err != nil {
				continue
			}
			out = append(out, sub...)
			continue
		}
		if len(e.Name()) > len(ext) && e.Name()[len(e.Name())-len(ext):] == ext {
			out = append(out, full)
		}
	}
	return out, nil
}
