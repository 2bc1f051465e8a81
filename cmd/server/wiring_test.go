package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketdesk-backoffice/internal/config"
	"ticketdesk-backoffice/internal/notify"
	"ticketdesk-backoffice/internal/security"
)

const testYAML = `
server: {port: 8080}
database: {url: "memory://"}
email: {provider: sendgrid, from_address: noreply@tickets.example.com}
site: {public_base_url: "https://tickets.example.com"}
jwt: {secret: 0123456789abcdef0123456789abcdef}
rate_limit: {submissions: 2, trusted_proxies: ["10.0.0.0/8"]}
`

type stubProvider struct{}

func (stubProvider) Name() string     { return "stub" }
func (stubProvider) Configured() bool { return true }
func (stubProvider) Send(ctx context.Context, msg notify.Message) (string, error) {
	return "stub-1", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(testYAML))
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, st stores) *app {
	t.Helper()
	reg := prometheus.NewRegistry()
	a, err := buildApp(cfg, st, stubProvider{}, reg, reg)
	require.NoError(t, err)
	return a
}

func adminToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	tokens := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Hour)
	tok, _, err := tokens.GenerateAccessToken("ops@tickets.example.com", "ops@tickets.example.com", []string{config.RoleAdmin})
	require.NoError(t, err)
	return tok
}

func TestBuildApp_MemoryStore(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg, memoryStores())

	submit := func(remote, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/registrations", strings.NewReader(`{"email":"fan@example.com","full_name":"Pat Fan"}`))
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		return rec.Code
	}

	// Behind the configured proxy the forwarded client is limited, whatever it prepends.
	assert.Equal(t, http.StatusCreated, submit("10.0.0.2:1000", "1.1.1.1, 203.0.113.7"))
	assert.Equal(t, http.StatusCreated, submit("10.0.0.2:1000", "2.2.2.2, 203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, submit("10.0.0.2:1000", "3.3.3.3, 203.0.113.7"))

	all, err := a.stores.registrations.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/registrations", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg))
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBuildApp_PostgresStore(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := testConfig(t)
	st := postgresStores(db)
	require.NotNil(t, st.ping)
	a := newTestApp(t, cfg, st)

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectQuery("SELECT .+ FROM registrations WHERE id").
		WithArgs("11111111-1111-1111-1111-111111111111").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	req := httptest.NewRequest(http.MethodGet, "/api/admin/registrations/11111111-1111-1111-1111-111111111111", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, cfg))
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildApp_RejectsInvalidTrustedProxy(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.TrustedProxies = []string{"proxy.internal"}

	reg := prometheus.NewRegistry()
	_, err := buildApp(cfg, memoryStores(), stubProvider{}, reg, reg)
	assert.Error(t, err)
}
