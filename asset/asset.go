// Package asset implements the asset-writer collaborator (spec.md §4.5):
// opens named files inside a namespaced asset directory, creating
// subdirectories on demand, and owns their closure until the Writer
// itself is closed.
//
// Grounded on libredex's ApkManager: a target path that does not exist or
// is not a directory is fatal (exit(EXIT_FAILURE) there, os.Exit(1)
// here); write permission is not checked up front. Every opened
// file is tracked by the manager so Close releases them all at once,
// the Go analogue of ApkManager's per-file shared_ptr<FILE*> ownership.
package asset

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Writer opens files under a fixed asset directory and owns their
// lifetime.
type Writer struct {
	apkDir string
	opened []*os.File
}

// NewWriter returns a Writer rooted at apkDir.
func NewWriter(apkDir string) *Writer {
	return &Writer{apkDir: apkDir}
}

// checkDirectory exits the process if dir does not exist or is not a
// directory, matching ApkManager's check_directory. It does not check
// write permission; a non-writable directory surfaces later as an error
// from NewAssetFile.
func checkDirectory(dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Printf("error: not a writable directory: %s", dir)
		os.Exit(1)
	}
}

// HasAssetDir reports whether the standard secondary-dex assets
// directory exists under the apk directory.
func (w *Writer) HasAssetDir() bool {
	checkDirectory(w.apkDir)
	assetsDir := filepath.Join(w.apkDir, "assets", "secondary-program-dex-jars")
	info, err := os.Stat(assetsDir)
	return err == nil && info.IsDir()
}

// NewAssetFile opens filename under relPath (relative to the apk
// directory) for writing, creating relPath if createIfMissing is set.
// The returned file is owned by the Writer and closed by Close.
func (w *Writer) NewAssetFile(filename, relPath string, createIfMissing bool) (*os.File, error) {
	checkDirectory(w.apkDir)

	dir := filepath.Join(w.apkDir, relPath)
	if createIfMissing {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("asset: creating %s: %w", dir, err)
		}
	} else {
		checkDirectory(dir)
	}

	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return nil, fmt.Errorf("asset: creating new asset file: %w", err)
	}
	w.opened = append(w.opened, f)
	return f, nil
}

// Close closes every file this Writer has opened, in open order. It
// collects and returns the first error encountered but attempts to close
// every file regardless.
func (w *Writer) Close() error {
	var firstErr error
	for _, f := range w.opened {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.opened = nil
	return firstErr
}
