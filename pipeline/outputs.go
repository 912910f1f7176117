// Package pipeline exposes run results to the calling CI pipeline.
package pipeline

import (
	"fmt"
	"os"
)

// FileOutputs appends name=value lines to an output file, the convention
// GitHub Actions uses for step outputs. Values must not contain newlines;
// the deployment IDs written through it never do.
type FileOutputs struct {
	path string
}

// NewFileOutputs creates an output sink writing to path.
func NewFileOutputs(path string) *FileOutputs {
	return &FileOutputs{path: path}
}

// Set appends one name=value line.
func (f *FileOutputs) Set(name, value string) error {
	out, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file %s: %w", f.path, err)
	}
	defer out.Close()

	if _, err := fmt.Fprintf(out, "%s=%s\n", name, value); err != nil {
		return fmt.Errorf("write output %s: %w", name, err)
	}
	return out.Close()
}
