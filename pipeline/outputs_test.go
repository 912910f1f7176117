package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileOutputsCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	outputs := NewFileOutputs(path)

	if err := outputs.Set("deployment_id", "d-ABC123"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := outputs.Set("bucket", "deploy-bucket"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	want := "deployment_id=d-ABC123\nbucket=deploy-bucket\n"
	if string(data) != want {
		t.Errorf("output file = %q, want %q", data, want)
	}
}

func TestFileOutputsPreservesExistingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output")
	if err := os.WriteFile(path, []byte("earlier=1\n"), 0o644); err != nil {
		t.Fatalf("seed output file: %v", err)
	}

	if err := NewFileOutputs(path).Set("deployment_id", "d-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	want := "earlier=1\ndeployment_id=d-1\n"
	if string(data) != want {
		t.Errorf("output file = %q, want %q", data, want)
	}
}

func TestFileOutputsUnwritablePath(t *testing.T) {
	outputs := NewFileOutputs(filepath.Join(t.TempDir(), "missing-dir", "output"))
	if err := outputs.Set("deployment_id", "d-1"); err == nil {
		t.Fatal("Set succeeded with an unwritable path")
	}
}
