package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/keylock"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
	"github.com/tagreturn/tagreturn-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the configured store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the store selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.DatabasePath()

	var (
		db  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err = sqlite.Open(path, log.Logger)
	default:
		db, err = store.New(path, log.Logger)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "driver", cfg.Store.Driver, "path", path)

	return &StoreHandle{Store: db}, nil
}

// ProvideKeyLocker provides the per-document lock table shared by every
// writer that touches both the item and user collections.
func ProvideKeyLocker(i do.Injector) (*keylock.Locker, error) {
	return keylock.New(), nil
}
