package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush(t *testing.T) {
	var (
		method, path string
		body         []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncRow("inserted")

	require.NoError(t, Push(context.Background(), srv.URL, IngestJob, "run-1", reg))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/bloodbuddy_ingest/run_id/run-1", path)
	assert.Contains(t, string(body), "bloodbuddy_ingest_rows_total")
}

func TestPush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	New(reg).IncRow("inserted")

	err := Push(context.Background(), srv.URL, IngestJob, "", reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics: push to")
}
