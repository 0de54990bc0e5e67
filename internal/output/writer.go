package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/morallab/dilemma/internal/experiment"
)

// Writer persists one JSON document per run into a directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed and returns a Writer.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: creating %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the directory results are written into.
func (w *Writer) Dir() string { return w.dir }

// SafeName sanitizes a model identifier for use in a file name.
func SafeName(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

// FileName builds the per-run file name:
// {experiment}_{YYYYMMDD-HHMMSS}_{modelA}[_vs_{modelB}]_{id}.json
// The id suffix keeps runs finishing within the same second from
// colliding; a rename over an earlier document would lose that run.
func FileName(res *experiment.Result) string {
	parts := make([]string, 0, len(res.Models))
	for _, m := range res.Models {
		parts = append(parts, SafeName(m.Model))
	}
	id := res.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s_%s.json",
		res.Experiment,
		res.Timestamp.Format("20060102-150405"),
		strings.Join(parts, "_vs_"),
		id)
}

// WriteResult writes the result document via a temp-file rename so an
// interrupt never leaves a half-written document on disk.
func (w *Writer) WriteResult(res *experiment.Result) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("output: marshaling result: %w", err)
	}

	path := filepath.Join(w.dir, FileName(res))
	tmp, err := os.CreateTemp(w.dir, ".result-*.tmp")
	if err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("output: %w", err)
	}
	return path, nil
}

// ReadResults decodes every result document in dir. Files that are not
// result documents are skipped.
func ReadResults(dir string) ([]*experiment.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("output: reading %s: %w", dir, err)
	}

	var out []*experiment.Result
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("output: reading %s: %w", entry.Name(), err)
		}
		var res experiment.Result
		if err := json.Unmarshal(data, &res); err != nil {
			continue
		}
		if res.Experiment == "" {
			continue
		}
		out = append(out, &res)
	}
	return out, nil
}
