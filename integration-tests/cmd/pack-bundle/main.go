package main

import (
	"archive/zip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/imranansari/codedeploy-task/deploy"
)

// Builds a deployment archive from a local directory and lists what went
// into it, without touching AWS. Useful for checking what a workspace
// deployment would actually ship.
func main() {
	var (
		dir = flag.String("dir", ".", "Directory to package")
		out = flag.String("out", "", "Archive path (default: temp file)")
	)
	flag.Parse()

	archivePath := *out
	if archivePath == "" {
		archivePath = filepath.Join(os.TempDir(), fmt.Sprintf("pack-bundle.v%d.zip", time.Now().UnixMilli()))
	}

	start := time.Now()
	if err := deploy.CreateArchive(*dir, archivePath); err != nil {
		log.Fatalf("Failed to create archive: %v", err)
	}
	log.Printf("✓ Created %s in %s", archivePath, time.Since(start).Round(time.Millisecond))

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	defer r.Close()

	var total uint64
	for _, f := range r.File {
		log.Printf("  %10d  %s", f.UncompressedSize64, f.Name)
		total += f.UncompressedSize64
	}
	log.Printf("✓ %d entries, %d bytes uncompressed", len(r.File), total)

	if info, err := os.Stat(archivePath); err == nil {
		log.Printf("✓ Archive size on disk: %d bytes", info.Size())
	}
}
