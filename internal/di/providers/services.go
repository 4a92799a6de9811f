package providers

import (
	"github.com/samber/do/v2"

	"github.com/tagreturn/tagreturn-server/internal/auth"
	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/keylock"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/media/images"
	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/tagimport"
)

// ProvideReconciler provides the status reconciler that keeps an item and
// its owner's embedded copy in step.
func ProvideReconciler(i do.Injector) (*service.Reconciler, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	locks := do.MustInvoke[*keylock.Locker](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReconciler(storeHandle.Store, locks, log.Logger), nil
}

// ProvideRegistryService provides the item registry service.
func ProvideRegistryService(i do.Injector) (*service.RegistryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reconciler := do.MustInvoke[*service.Reconciler](i)
	processor := do.MustInvoke[*images.Processor](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	mailer := do.MustInvoke[*MailerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRegistryService(
		storeHandle.Store,
		reconciler,
		processor,
		indexHandle.SearchIndex,
		sseHandle.Manager,
		mailer.Dispatcher,
		log.Logger,
	), nil
}

// ProvideTagImporter provides the manifest importer shared by the API, the
// directory watcher and the CLI.
func ProvideTagImporter(i do.Injector) (*tagimport.Importer, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return tagimport.NewImporter(storeHandle.Store, log.Logger), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	importer := do.MustInvoke[*tagimport.Importer](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, importer, sseHandle.Manager, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	hasher := do.MustInvoke[auth.PasswordHasher](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	mailer := do.MustInvoke[*MailerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, hasher, tokens, mailer.Dispatcher, service.AuthOptions{
		AdminEmails:        cfg.Auth.AdminEmails,
		PublicURL:          cfg.Server.PublicURL,
		ResetTokenDuration: cfg.Auth.ResetTokenDuration,
	}, log.Logger), nil
}

// ProvideUserService provides the user profile service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	return service.NewUserService(storeHandle.Store), nil
}

// ProvideSweepService provides the subscription expiry sweep.
func ProvideSweepService(i do.Injector) (*service.SweepService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	reconciler := do.MustInvoke[*service.Reconciler](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSweepService(storeHandle.Store, reconciler, sseHandle.Manager, log.Logger), nil
}

// WebhookServiceHandle wraps the webhook service so in-flight deliveries
// finish before shutdown.
type WebhookServiceHandle struct {
	*service.WebhookService
}

// Shutdown implements do.Shutdownable.
func (h *WebhookServiceHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideWebhookService provides the payment webhook processor.
func ProvideWebhookService(i do.Injector) (*WebhookServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	reconciler := do.MustInvoke[*service.Reconciler](i)
	client := do.MustInvoke[*PaystackClientHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	mailer := do.MustInvoke[*MailerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Paystack.SecretKey == "" {
		log.Warn("Paystack secret key not configured, webhooks will be rejected")
	}

	svc := service.NewWebhookService(
		cfg.Paystack.SecretKey,
		reconciler,
		client.Client,
		sseHandle.Manager,
		mailer.Dispatcher,
		log.Logger,
	)
	return &WebhookServiceHandle{WebhookService: svc}, nil
}
