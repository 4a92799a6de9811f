package tagimport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tagreturn/tagreturn-server/internal/watcher"
)

// Manifest extensions picked up from the import directory.
var manifestExtensions = []string{".csv", ".json", ".yaml", ".yml"}

// DirImporter imports manifests dropped into a directory. A processed
// manifest is renamed to *.done, or *.failed when it cannot be parsed.
type DirImporter struct {
	importer *Importer
	dir      string
	logger   *slog.Logger
	watcher  *watcher.Watcher

	// OnImport, when set, is called after each successful import.
	OnImport func(path string, res Result)
}

// NewDirImporter creates the directory and a watcher over it.
func NewDirImporter(importer *Importer, dir string, logger *slog.Logger) (*DirImporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create import directory: %w", err)
	}
	w, err := watcher.New(logger, watcher.Options{Extensions: manifestExtensions})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(dir); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return &DirImporter{importer: importer, dir: dir, logger: logger, watcher: w}, nil
}

// Run imports manifests already present, then those that arrive, until
// ctx is done.
func (d *DirImporter) Run(ctx context.Context) {
	go d.watcher.Start(ctx)

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		d.logger.Warn("Failed to list import directory", "dir", d.dir, "error", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := FormatFor(e.Name()); err == nil {
			d.ImportPath(ctx, filepath.Join(d.dir, e.Name()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.watcher.Events():
			if ev.Type == watcher.EventSettled {
				d.ImportPath(ctx, ev.Path)
			}
		case err := <-d.watcher.Errors():
			d.logger.Warn("Import directory watcher error", "error", err)
		}
	}
}

// ImportPath imports one manifest and renames it.
func (d *DirImporter) ImportPath(ctx context.Context, path string) {
	res, err := d.importer.ImportFile(ctx, path)
	if err != nil {
		d.logger.Error("Failed to import tag manifest", "path", path, "error", err)
		d.rename(path, ".failed")
		return
	}
	d.rename(path, ".done")
	if d.OnImport != nil {
		d.OnImport(path, res)
	}
}

func (d *DirImporter) rename(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		d.logger.Warn("Failed to rename manifest", "path", path, "error", err)
	}
}

// Stop releases the watcher.
func (d *DirImporter) Stop() error {
	return d.watcher.Stop()
}
