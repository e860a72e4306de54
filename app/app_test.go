package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/config"
	"backoffice/data/query"
	"backoffice/data/store"
	"backoffice/logging"
	"backoffice/messaging/transport/memory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("JWT_SECRET", "app-test-secret")
	t.Setenv("AUDIT_TRANSPORT", config.TransportSync)
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAppEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())
	assert.Equal(t, StatePending, a.State())

	h := a.Handler()
	rec := call(t, h, http.MethodPost, "/auth/register", "", map[string]any{"email": "e2e@example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var auth struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	rec = call(t, h, http.MethodPost, "/notes", auth.AccessToken, map[string]any{"title": "t", "content": "c"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/logs?entityType=Note", auth.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "CREATE", entries[0]["action"])

	rec = call(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "192.0.2.1", entries[0]["ipAddress"])
}

func TestHealthReportsStoppedTransport(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close(context.Background())

	require.NoError(t, a.transport.Close())
	rec := call(t, a.Handler(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = "127.0.0.1:0"
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.State() == StateRunning }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateStopped, a.State())
	assert.Error(t, a.Run(context.Background()))
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	cases := []config.StoreConfig{
		{Driver: config.DriverMemory},
		{Driver: config.DriverSQLite, SQLitePath: filepath.Join(dir, "bo.db")},
		{Driver: config.DriverBolt, BoltPath: filepath.Join(dir, "bo.bolt")},
	}
	for _, sc := range cases {
		t.Run(sc.Driver, func(t *testing.T) {
			ctx := context.Background()
			b, err := openBackend(ctx, sc)
			require.NoError(t, err)
			defer b.Close(ctx)

			coll, err := b.open(ctx, CollNotes)
			require.NoError(t, err)
			doc, err := coll.Insert(ctx, store.Document{"title": "x", "createdAt": time.Now().UTC()})
			require.NoError(t, err)
			n, err := coll.Count(ctx, query.ByID(doc["id"].(string)))
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			assert.NoError(t, b.Ping(ctx))
		})
	}

	_, err := openBackend(context.Background(), config.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestOpenTransport(t *testing.T) {
	tr, err := openTransport(config.AuditConfig{Transport: config.TransportMemory, QueueSize: 4, Workers: 1}, logging.NewNoopLogger())
	require.NoError(t, err)
	assert.IsType(t, &memory.Transport{}, tr)

	_, err = openTransport(config.AuditConfig{Transport: "kafka"}, logging.NewNoopLogger())
	assert.Error(t, err)
}
