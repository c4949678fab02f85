package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := DefaultServerConfig(":9999")
	srv := NewServer(cfg, http.NotFoundHandler())

	require.Equal(t, ":9999", srv.Addr)
	require.Equal(t, 15*time.Second, srv.ReadTimeout)
	require.Equal(t, 60*time.Second, srv.WriteTimeout)
	require.Equal(t, 120*time.Second, srv.IdleTimeout)
}

func TestAccessLogRecordsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := AccessLog(zap.New(core), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/movements", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.All()
	require.Len(t, entries, 1, "probe requests log below info")
	require.Equal(t, int64(http.StatusTeapot), entries[0].ContextMap()["status"])
	require.Equal(t, "/v1/movements", entries[0].ContextMap()["path"])
}
