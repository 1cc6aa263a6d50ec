package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bloodbuddy/donor-cli/internal/config"
	"github.com/bloodbuddy/donor-cli/internal/geo"
	"github.com/bloodbuddy/donor-cli/internal/ingest"
)

// testConfig returns a config backed by a temporary SQLite database with
// geocoding disabled.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "donors.db"),
		},
		Geocode:  config.GeocodeConfig{Disabled: true},
		Fallback: geo.Amravati,
		Ingest:   config.IngestConfig{Columns: ingest.DefaultColumns(), DownloadTimeoutSecs: 5},
		Server:   config.ServerConfig{Port: 8000},
	}
}

func writeDonorCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "donors.csv")
	content := "Student Full Name,Mobile Number,Permanent Address,Blood Group\n" + strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// nominatimStub answers every search with one candidate in Amravati.
func nominatimStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"20.9374","lon":"77.7796","display_name":"Amravati, Maharashtra, India"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func configForStub(baseURL string) config.GeocodeConfig {
	return config.GeocodeConfig{
		BaseURL:     baseURL,
		UserAgent:   "bloodbuddy-test",
		Qualifier:   "Maharashtra, India",
		TimeoutSecs: 5,
		RatePerSec:  100,
	}
}
