// Package service implements the registry's business operations on top of
// the store: item registration, status and subscription reconciliation,
// payment webhooks, the expiry sweep and accounts.
package service

import (
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/validation"
)

// validate is a shared validator instance for request validation.
var validate = validation.New()

// Emitter publishes real-time events. *sse.Manager implements it.
type Emitter interface {
	Emit(event sse.Event)
}

// Mailer queues templated email. *mail.Dispatcher implements it.
type Mailer interface {
	SendAsync(name, to string, data any)
}

// NoopEmitter discards events. Used by the CLI, which has no listeners.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(sse.Event) {}
