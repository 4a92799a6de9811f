package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/tagimport"
)

// ExpirySweepJob runs the subscription expiry sweep periodically.
type ExpirySweepJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *ExpirySweepJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideExpirySweepJob provides the periodic expiry sweep.
func ProvideExpirySweepJob(i do.Injector) (*ExpirySweepJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sweep := do.MustInvoke[*service.SweepService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	if !cfg.Sweep.Enabled {
		log.Info("Expiry sweep disabled")
		return &ExpirySweepJob{cancel: cancel}, nil
	}

	run := func() {
		res, err := sweep.Run(ctx)
		if err != nil {
			log.Warn("Expiry sweep failed", "error", err)
			return
		}
		if res.Demoted > 0 {
			log.Info("Expiry sweep completed", "scanned", res.Scanned, "demoted", res.Demoted)
		}
	}

	go func() {
		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()

		// Initial sweep on startup
		run()

		for {
			select {
			case <-ticker.C:
				run()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Expiry sweep job started", "interval", cfg.Sweep.Interval)

	return &ExpirySweepJob{cancel: cancel}, nil
}

// TagImportWatcherHandle wraps the import directory watcher with shutdown
// capability. Both fields are nil when no import directory is configured.
type TagImportWatcherHandle struct {
	*tagimport.DirImporter
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *TagImportWatcherHandle) Shutdown() error {
	if h.DirImporter == nil {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideTagImportWatcher watches the configured directory for tag manifests.
func ProvideTagImportWatcher(i do.Injector) (*TagImportWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	importer := do.MustInvoke[*tagimport.Importer](i)
	tags := do.MustInvoke[*service.TagService](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Tags.ImportDir == "" {
		return &TagImportWatcherHandle{}, nil
	}

	dir, err := tagimport.NewDirImporter(importer, cfg.Tags.ImportDir, log.Logger)
	if err != nil {
		return nil, err
	}
	dir.OnImport = tags.Announce

	ctx, cancel := context.WithCancel(context.Background())
	go dir.Run(ctx)

	log.Info("Tag import watcher started", "dir", cfg.Tags.ImportDir)

	return &TagImportWatcherHandle{DirImporter: dir, cancel: cancel}, nil
}
