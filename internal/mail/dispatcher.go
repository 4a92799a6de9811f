package mail

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sendTimeout = 30 * time.Second

// Dispatcher sends email in the background. Failures are logged and
// never reach the caller.
type Dispatcher struct {
	renderer *Renderer
	sender   Sender
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(renderer *Renderer, sender Sender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{renderer: renderer, sender: sender, logger: logger}
}

// SendAsync renders the named template and delivers it on a new goroutine.
// An empty recipient is ignored.
func (d *Dispatcher) SendAsync(name, to string, data any) {
	if to == "" {
		return
	}

	msg, err := d.renderer.Render(name, to, data)
	if err != nil {
		d.logger.Error("Failed to render email", "template", name, "error", err)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := d.sender.Send(ctx, msg); err != nil {
			d.logger.Warn("Failed to send email",
				"template", name,
				"to", to,
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight sends finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
