// Package paystack is a minimal client for the Paystack REST API.
package paystack

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tagreturn/tagreturn-server/internal/ratelimit"
)

const (
	defaultTimeout = 15 * time.Second
	defaultBurst   = 3

	// All calls share one bucket; Paystack limits per secret key.
	limiterKey = "api"
)

// Client is a rate-limited Paystack API client.
type Client struct {
	http      *resty.Client
	limiter   *ratelimit.KeyedRateLimiter
	logger    *slog.Logger
	secretKey string
}

// New creates a client for baseURL authenticating with secretKey.
func New(baseURL, secretKey string, rps float64, logger *slog.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(secretKey).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "TagReturn/1.0").
		SetTimeout(defaultTimeout).
		SetLogger(restyLogger{logger: logger})

	return &Client{
		http:      c,
		limiter:   ratelimit.New(rps, defaultBurst),
		logger:    logger,
		secretKey: secretKey,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Subscription is a customer subscription as listed by the customer endpoint.
type Subscription struct {
	SubscriptionCode string `json:"subscription_code"`
	Status           string `json:"status"`
	NextPaymentDate  string `json:"next_payment_date"`
	Plan             struct {
		Name     string `json:"name"`
		PlanCode string `json:"plan_code"`
	} `json:"plan"`
}

// Customer is the customer resource.
type Customer struct {
	Email         string         `json:"email"`
	CustomerCode  string         `json:"customer_code"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// GetCustomer fetches a customer by email or customer code.
func (c *Client) GetCustomer(ctx context.Context, emailOrCode string) (*Customer, error) {
	cust, err := get[Customer](ctx, c, "/customer/"+url.PathEscape(emailOrCode))
	if err != nil {
		return nil, &Error{Op: "getCustomer", Key: emailOrCode, Err: err}
	}
	return cust, nil
}

// GetSubscriptionCodeByEmail returns the code of the customer's first
// active subscription, or ErrNotFound.
func (c *Client) GetSubscriptionCodeByEmail(ctx context.Context, email string) (string, error) {
	cust, err := c.GetCustomer(ctx, email)
	if err != nil {
		return "", err
	}
	for _, sub := range cust.Subscriptions {
		if sub.Status == "active" && sub.SubscriptionCode != "" {
			return sub.SubscriptionCode, nil
		}
	}
	return "", &Error{Op: "getSubscriptionCode", Key: email, Err: ErrNotFound}
}

// apiError is the body Paystack sends with 4xx and 5xx responses.
type apiError struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// get fetches path and unwraps the response envelope. Resty decodes the
// success body into the envelope and the failure body into apiError.
func get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	if c.secretKey == "" {
		return nil, ErrNoSecretKey
	}
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	c.logger.Debug("paystack request", "path", path)

	var (
		result envelope[T]
		failed apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&result).
		SetError(&failed).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	switch code := resp.StatusCode(); {
	case resp.IsSuccess():
	case code == http.StatusNotFound:
		return nil, ErrNotFound
	case code == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case code == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case code >= 500:
		return nil, ErrServer
	case failed.Message != "":
		return nil, fmt.Errorf("unexpected status %d: %s", code, failed.Message)
	default:
		return nil, fmt.Errorf("unexpected status %d", code)
	}

	if !result.Status {
		return nil, fmt.Errorf("request failed: %s", result.Message)
	}
	return &result.Data, nil
}

// restyLogger routes resty's own diagnostics to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error("paystack client", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn("paystack client", "detail", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug("paystack client", "detail", fmt.Sprintf(format, v...))
}
