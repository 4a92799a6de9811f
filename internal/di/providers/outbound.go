package providers

import (
	"github.com/samber/do/v2"

	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/mail"
	"github.com/tagreturn/tagreturn-server/internal/paystack"
)

// MailerHandle wraps the mail dispatcher so pending sends finish on shutdown.
type MailerHandle struct {
	*mail.Dispatcher
}

// Shutdown implements do.Shutdownable.
func (h *MailerHandle) Shutdown() error {
	h.Wait()
	return nil
}

// ProvideMailer provides the outbound mail dispatcher. Without an SMTP host
// messages are written to the log.
func ProvideMailer(i do.Injector) (*MailerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}

	var sender mail.Sender
	if cfg.Mail.Host == "" {
		log.Warn("SMTP host not configured, mail will be logged")
		sender = mail.NewLogSender(log.Logger)
	} else {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		log.Info("SMTP mail configured", "host", cfg.Mail.Host, "port", cfg.Mail.Port)
	}

	return &MailerHandle{Dispatcher: mail.NewDispatcher(renderer, sender, log.Logger)}, nil
}

// PaystackClientHandle wraps the Paystack client with shutdown capability.
type PaystackClientHandle struct {
	*paystack.Client
}

// Shutdown implements do.Shutdownable.
func (h *PaystackClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvidePaystackClient provides the Paystack API client.
func ProvidePaystackClient(i do.Injector) (*PaystackClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := paystack.New(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.RequestsPerSecond, log.Logger)
	return &PaystackClientHandle{Client: client}, nil
}
