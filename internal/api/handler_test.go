package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbuddy/donor-cli/internal/metrics"
	"github.com/bloodbuddy/donor-cli/internal/model"
	"github.com/bloodbuddy/donor-cli/internal/nearby"
	"github.com/bloodbuddy/donor-cli/internal/store"
)

func newTestRouter(t *testing.T, donors ...model.Donor) (http.Handler, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemory()
	for _, d := range donors {
		_, err := st.InsertDonor(context.Background(), d)
		require.NoError(t, err)
	}
	reg := prometheus.NewRegistry()
	h := NewHandler(st, nearby.NewEngine(st, metrics.New(reg)))
	return NewRouter(h, RouterOptions{Gatherer: reg}), st
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var (
	asha = model.Donor{Name: "Asha Patil", Contact: "9876543210", BloodGroup: model.GroupPtr(model.BloodGroupONeg), City: "Amravati", Latitude: 20.94, Longitude: 77.75}
	ravi = model.Donor{Name: "Ravi Deshmukh", Contact: "9123456780", BloodGroup: model.GroupPtr(model.BloodGroupAPos), City: "Amravati", Latitude: 21.00, Longitude: 77.75}
)

func TestRoot(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := serve(h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Welcome to Blood Buddy API")
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)

	rr := serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAddDonor(t *testing.T) {
	h, st := newTestRouter(t)
	body := `{"name":"Asha Patil","contact":"9876543210","blood_group":"O-","city":"Amravati","latitude":20.94,"longitude":77.75}`

	rr := serve(h, http.MethodPost, "/donors/add", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Donor added successfully", resp["message"])
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, 1, st.Len())

	rr = serve(h, http.MethodPost, "/donors/add", body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, 1, st.Len())
}

func TestAddDonor_MalformedJSON(t *testing.T) {
	h, st := newTestRouter(t)

	rr := serve(h, http.MethodPost, "/donors/add", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, st.Len())
}

func TestNearby(t *testing.T) {
	h, _ := newTestRouter(t, ravi, asha)

	rr := serve(h, http.MethodGet, "/donors/nearby?lat=20.93&lon=77.75&limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Count  int `json:"count"`
		Donors []struct {
			Name       string  `json:"name"`
			BloodGroup string  `json:"blood_group"`
			DistanceKM float64 `json:"distance_km"`
		} `json:"donors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Asha Patil", resp.Donors[0].Name)
	assert.InDelta(t, 1.11, resp.Donors[0].DistanceKM, 0.01)
}

func TestNearby_BloodGroupFilter(t *testing.T) {
	h, _ := newTestRouter(t, ravi, asha)

	rr := serve(h, http.MethodGet, "/donors/nearby?lat=20.93&lon=77.75&blood_group=A%2B", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Ravi Deshmukh")
	assert.NotContains(t, rr.Body.String(), "Asha Patil")
}

func TestNearby_UnescapedPlus(t *testing.T) {
	h, _ := newTestRouter(t, ravi, asha)

	rr := serve(h, http.MethodGet, "/donors/nearby?lat=20.93&lon=77.75&blood_group=A+", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Ravi Deshmukh")
	assert.NotContains(t, rr.Body.String(), "Asha Patil")
}

func TestNearby_ZeroLimit(t *testing.T) {
	h, _ := newTestRouter(t, ravi, asha)

	rr := serve(h, http.MethodGet, "/donors/nearby?lat=20.93&lon=77.75&limit=0", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"donors":[]}`, rr.Body.String())
}

func TestNearby_BadParams(t *testing.T) {
	h, _ := newTestRouter(t, asha)

	for _, target := range []string{
		"/donors/nearby",
		"/donors/nearby?lat=abc&lon=77.75",
		"/donors/nearby?lat=20.93",
		"/donors/nearby?lat=20.93&lon=77.75&limit=ten",
		"/donors/nearby?lat=20.93&lon=77.75&limit=-1",
	} {
		rr := serve(h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestNearby_NoDonors(t *testing.T) {
	h, _ := newTestRouter(t, asha)

	rr := serve(h, http.MethodGet, "/donors/nearby?lat=20.93&lon=77.75&blood_group=AB-", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"detail":"No donors found"}`, rr.Body.String())
}

func TestMap(t *testing.T) {
	h, _ := newTestRouter(t, asha)

	rr := serve(h, http.MethodGet, "/donors/map?lat=20.93&lon=77.75", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/geo+json", rr.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, []float64{77.75, 20.94}, fc.Features[0].Geometry.Coordinates)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, asha)
	serve(h, http.MethodGet, "/donors/nearby?lat=20.93&lon=77.75", "")

	rr := serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bloodbuddy_nearby_queries_total")
}

func TestRouter_CORSCredentials(t *testing.T) {
	h := NewHandler(store.NewMemory(), nearby.NewEngine(store.NewMemory(), nil))

	tests := []struct {
		name        string
		origins     []string
		credentials string
	}{
		{"wildcard default", nil, ""},
		{"explicit wildcard", []string{"*"}, ""},
		{"named origin", []string{"http://localhost:3000"}, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			rr := httptest.NewRecorder()
			NewRouter(h, RouterOptions{CORSOrigins: tt.origins}).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.credentials, rr.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}
