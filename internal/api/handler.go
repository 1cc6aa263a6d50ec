// Package api exposes the donor registry over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloodbuddy/donor-cli/internal/model"
	"github.com/bloodbuddy/donor-cli/internal/nearby"
	"github.com/bloodbuddy/donor-cli/internal/store"
)

// Finder answers proximity queries. *nearby.Engine implements it.
type Finder interface {
	Nearby(ctx context.Context, q nearby.Query) (*nearby.Result, error)
}

// Handler wires donor endpoints to the store and the query engine.
type Handler struct {
	store  store.Store
	finder Finder
}

// NewHandler creates a Handler.
func NewHandler(st store.Store, finder Finder) *Handler {
	return &Handler{store: st, finder: finder}
}

// Register mounts donor endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Get("/health", h.HandleHealth)
	r.Route("/donors", func(r chi.Router) {
		r.Post("/add", h.HandleAdd)
		r.Get("/nearby", h.HandleNearby)
		r.Get("/map", h.HandleMap)
	})
}

// HandleRoot handles GET /.
func (h *Handler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Blood Buddy API"})
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAdd handles POST /donors/add. The donor is stored as sent.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var d model.Donor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.store.InsertDonor(r.Context(), d)
	switch {
	case errors.Is(err, store.ErrDuplicateContact):
		writeDetail(w, http.StatusConflict, "Donor with this contact already exists")
		return
	case err != nil:
		zap.L().Error("api: insert donor failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Donor added successfully",
		"id":      id,
	})
}

// HandleNearby handles GET /donors/nearby.
func (h *Handler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleMap handles GET /donors/map. It takes the same parameters as
// /donors/nearby and answers with a GeoJSON FeatureCollection.
func (h *Handler) HandleMap(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runQuery(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(res.GeoJSON())
}

func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request) (*nearby.Result, bool) {
	q, err := parseQuery(r)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	res, err := h.finder.Nearby(r.Context(), q)
	switch {
	case errors.Is(err, nearby.ErrNoDonors):
		writeDetail(w, http.StatusNotFound, "No donors found")
		return nil, false
	case err != nil:
		zap.L().Error("api: nearby query failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return res, true
}

func parseQuery(r *http.Request) (nearby.Query, error) {
	v := r.URL.Query()
	lat, err := strconv.ParseFloat(v.Get("lat"), 64)
	if err != nil {
		return nearby.Query{}, eris.New("lat is required and must be a number")
	}
	lon, err := strconv.ParseFloat(v.Get("lon"), 64)
	if err != nil {
		return nearby.Query{}, eris.New("lon is required and must be a number")
	}
	q := nearby.Query{Latitude: lat, Longitude: lon, BloodGroup: bloodGroupParam(v.Get("blood_group"))}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nearby.Query{}, eris.New("limit must be an integer")
		}
		if n < 0 {
			return nearby.Query{}, eris.New("limit must not be negative")
		}
		q.Limit = nearby.LimitPtr(n)
	}
	return q, nil
}

// bloodGroupParam restores a '+' that arrived unescaped and was decoded as a space.
func bloodGroupParam(raw string) string {
	g := strings.TrimLeft(raw, " ")
	if strings.HasSuffix(g, " ") {
		g = strings.TrimRight(g, " ") + "+"
	}
	return g
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
