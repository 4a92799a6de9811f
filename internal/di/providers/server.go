package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/tagreturn/tagreturn-server/internal/api"
	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/media/images"
	"github.com/tagreturn/tagreturn-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	imageStorage := do.MustInvoke[*images.Storage](i)
	webhookHandle := do.MustInvoke[*WebhookServiceHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Auth:     do.MustInvoke[*service.AuthService](i),
		Users:    do.MustInvoke[*service.UserService](i),
		Registry: do.MustInvoke[*service.RegistryService](i),
		Tags:     do.MustInvoke[*service.TagService](i),
		Webhooks: webhookHandle.WebhookService,
		Sweep:    do.MustInvoke[*service.SweepService](i),
		Search:   indexHandle.SearchIndex,
	}

	apiServer := api.NewServer(
		storeHandle.Store,
		services,
		imageStorage,
		sseHandle.Manager,
		api.Options{CORSOrigins: cfg.Server.CORSOrigins},
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, api: apiServer}, nil
}
