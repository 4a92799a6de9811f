// Package di provides dependency injection configuration for the TagReturn server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/tagreturn/tagreturn-server/internal/auth"
	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/di/providers"
	"github.com/tagreturn/tagreturn-server/internal/keylock"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/media/images"
	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/tagimport"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	registerProviders(injector)
	return injector
}

// NewContainerWithConfig creates a container around an already loaded
// configuration. Used by the CLI, which parses its own flags.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	registerProviders(injector)
	return injector
}

func registerProviders(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideKeyLocker)

	// Storage layer
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideImageProcessor)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Outbound
	do.Provide(injector, providers.ProvideMailer)
	do.Provide(injector, providers.ProvidePaystackClient)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvidePasswordHasher)

	// Business services
	do.Provide(injector, providers.ProvideReconciler)
	do.Provide(injector, providers.ProvideRegistryService)
	do.Provide(injector, providers.ProvideTagImporter)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideSweepService)
	do.Provide(injector, providers.ProvideWebhookService)

	// Workers
	do.Provide(injector, providers.ProvideExpirySweepJob)
	do.Provide(injector, providers.ProvideTagImportWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*keylock.Locker](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*images.Processor](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.MailerHandle](injector)
	_ = do.MustInvoke[*providers.PaystackClientHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[auth.PasswordHasher](injector)

	// Business services
	_ = do.MustInvoke[*service.Reconciler](injector)
	_ = do.MustInvoke[*service.RegistryService](injector)
	_ = do.MustInvoke[*tagimport.Importer](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.UserService](injector)
	_ = do.MustInvoke[*service.SweepService](injector)
	_ = do.MustInvoke[*providers.WebhookServiceHandle](injector)

	// Workers
	_ = do.MustInvoke[*providers.ExpirySweepJob](injector)
	_ = do.MustInvoke[*providers.TagImportWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
