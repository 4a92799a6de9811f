package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/tagreturn/tagreturn-server/internal/auth"
	"github.com/tagreturn/tagreturn-server/internal/keylock"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/mail"
	"github.com/tagreturn/tagreturn-server/internal/media/images"
	"github.com/tagreturn/tagreturn-server/internal/search"
	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/sse"
	"github.com/tagreturn/tagreturn-server/internal/store"
	"github.com/tagreturn/tagreturn-server/internal/tagimport"
)

const (
	testWebhookSecret = "sk_test_api"
	testAdminEmail    = "admin@example.com"
	testPassword      = "correct horse battery"
)

// testEnvelope is the success envelope with typed data.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

type stubLookup struct{}

func (stubLookup) GetSubscriptionCodeByEmail(context.Context, string) (string, error) {
	return "SUB_test", nil
}

type testServer struct {
	*Server
	api      humatest.TestAPI
	store    store.Store
	webhooks *service.WebhookService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()

	st, err := store.New(filepath.Join(t.TempDir(), "db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir(), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	blobs, err := images.NewStorage(t.TempDir())
	require.NoError(t, err)

	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	renderer, err := mail.NewRenderer()
	require.NoError(t, err)
	mailer := mail.NewDispatcher(renderer, mail.NewLogSender(log), log)
	t.Cleanup(mailer.Wait)

	sseManager := sse.NewManager(log)
	reconciler := service.NewReconciler(st, keylock.New(), log)
	hasher := auth.NewArgon2Hasher(auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	webhooks := service.NewWebhookService(testWebhookSecret, reconciler, stubLookup{}, sseManager, mailer, log)
	t.Cleanup(webhooks.Wait)

	services := &Services{
		Auth: service.NewAuthService(st, hasher, tokens, mailer, service.AuthOptions{
			AdminEmails: []string{testAdminEmail},
			PublicURL:   "https://tagreturn.test",
		}, log),
		Users:    service.NewUserService(st),
		Registry: service.NewRegistryService(st, reconciler, images.NewProcessor(blobs, log), idx, sseManager, mailer, log),
		Tags:     service.NewTagService(st, tagimport.NewImporter(st, log), sseManager, log),
		Webhooks: webhooks,
		Sweep:    service.NewSweepService(st, reconciler, sseManager, log),
		Search:   idx,
	}

	srv := NewServer(st, services, blobs, sseManager, Options{
		AuthRequestsPerMinute:    1000,
		WebhookRequestsPerMinute: 1000,
	}, log)
	t.Cleanup(srv.Close)

	return &testServer{
		Server:   srv,
		api:      humatest.Wrap(t, srv.api),
		store:    st,
		webhooks: webhooks,
	}
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

// signupAndSignin creates an account and returns its access token.
func (ts *testServer) signupAndSignin(t *testing.T, email string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/signup", map[string]any{
		"full_name":     "Test User",
		"email_address": email,
		"password":      testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = ts.api.Post("/api/v1/auth/signin", map[string]any{
		"email_address": email,
		"password":      testPassword,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[service.AuthResponse](t, resp.Body.Bytes())
	require.NotEmpty(t, env.Data.AccessToken)
	return env.Data.AccessToken
}
