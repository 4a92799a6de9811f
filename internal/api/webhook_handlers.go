package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerWebhookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:  "paystackWebhook",
		Method:       http.MethodPost,
		Path:         "/api/v1/webhooks/paystack",
		Summary:      "Paystack webhook",
		Description:  "Receives signed payment events. The signature is checked against the raw body before anything is parsed; processing continues after the response is sent.",
		Tags:         []string{"Webhooks"},
		MaxBodyBytes: MaxWebhookSize,
		Middlewares:  huma.Middlewares{withClientIP},
	}, s.handlePaystackWebhook)
}

// PaystackWebhookInput carries the unparsed callback.
type PaystackWebhookInput struct {
	Signature string `header:"X-Paystack-Signature" doc:"HMAC-SHA512 of the body keyed with the secret key"`
	RawBody   []byte
}

// WebhookAck acknowledges receipt.
type WebhookAck struct {
	Received bool `json:"received"`
}

// WebhookOutput wraps the acknowledgement for Huma.
type WebhookOutput struct {
	Body WebhookAck
}

// clientIPKey carries the caller's address from middleware to handler.
type clientIPKey struct{}

func withClientIP(ctx huma.Context, next func(huma.Context)) {
	ip := clientIP(ctx.Header("X-Forwarded-For"), ctx.Header("X-Real-IP"), ctx.RemoteAddr())
	next(huma.WithValue(ctx, clientIPKey{}, ip))
}

// handlePaystackWebhook never throttles signed deliveries: the provider
// retries refused ones and a 429 during a renewal burst only adds load.
// Unsigned deliveries draw from the per-IP webhook budget.
func (s *Server) handlePaystackWebhook(ctx context.Context, input *PaystackWebhookInput) (*WebhookOutput, error) {
	if !s.services.Webhooks.Verify(input.RawBody, input.Signature) {
		ip, _ := ctx.Value(clientIPKey{}).(string)
		if !s.webhookRateLimiter.Allow(ip) {
			s.logger.Warn("Rate limit exceeded", "ip", ip, "path", "/api/v1/webhooks/paystack")
			return nil, huma.Error429TooManyRequests("Too many requests. Please try again later.")
		}
	}
	if err := s.services.Webhooks.HandlePaymentWebhook(ctx, input.RawBody, input.Signature); err != nil {
		return nil, handleError(err)
	}
	return &WebhookOutput{Body: WebhookAck{Received: true}}, nil
}
