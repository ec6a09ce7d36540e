package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/server"
)

func loadConfig(t *testing.T, body string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	c, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	return c
}

func loginAndRefresh(t *testing.T, h http.Handler) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, server.RouteSessionAuth,
		strings.NewReader(`{"login":"admin","password":"Sup3rSecret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, server.RouteSessionTokens, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildSQLite(t *testing.T) {
	c := loadConfig(t, fmt.Sprintf(`
signing_key = "wiring-test"
ledger_backend = "sqlite"
user_store = "sqlite"
database_dsn = "file:wiring_%s?mode=memory&cache=shared"
bootstrap_login = "admin"
bootstrap_password = "Sup3rSecret"
`, t.Name()))

	a, err := build(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.sweeper)

	loginAndRefresh(t, a.server)
}

func TestBuildRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	c := loadConfig(t, fmt.Sprintf(`
signing_key = "wiring-test"
ledger_backend = "redis"
redis_addr = "%s"
bootstrap_login = "admin"
bootstrap_password = "Sup3rSecret"
`, mr.Addr()))

	a, err := build(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.Nil(t, a.sweeper)

	loginAndRefresh(t, a.server)
	require.NotEmpty(t, mr.Keys())
}

func TestBuildRejectsMixedSQLBackends(t *testing.T) {
	c := loadConfig(t, fmt.Sprintf(`
signing_key = "wiring-test"
ledger_backend = "sqlite"
user_store = "postgres"
database_dsn = "file:wiring_%s?mode=memory&cache=shared"
`, t.Name()))

	_, err := build(context.Background(), c)
	require.ErrorContains(t, err, "same SQL backend")
}

func TestNewSignerFallsBackInDev(t *testing.T) {
	signer, err := newSigner(loadConfig(t, `env = "DEV"`+"\n"))
	require.NoError(t, err)
	require.NotNil(t, signer)

	_, err = newSigner(loadConfig(t, `
env = "PROD"
signing_key_file = "/does/not/exist.pem"
`))
	require.Error(t, err)
}
