package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"riskwatch/monitor/internal/analytics"
)

const defaultArticleLimit = 100
const maxArticleLimit = 1000

// Handler exposes the analytics engine's views to the external dashboard.
// All endpoints are read-only; the sector query parameter applies the common
// filter rule ("All" or absent means no filtering).
type Handler struct {
	engine  *analytics.Engine
	sectors []string
}

// NewHandler creates a handler over the given engine. sectors is the
// configured tracked-sector set used by the sector status view.
func NewHandler(engine *analytics.Engine, sectors []string) *Handler {
	return &Handler{engine: engine, sectors: sectors}
}

// Indicators serves the national stability/critical/volume numbers.
func (h *Handler) Indicators(w http.ResponseWriter, r *http.Request) {
	ind, err := h.engine.Indicators(r.Context(), sectorParam(r))
	h.respond(w, r, ind, err)
}

// Insights serves the top risk and opportunity articles.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.engine.TopInsights(r.Context(), sectorParam(r))
	h.respond(w, r, insights, err)
}

// SectorStatus serves the per-sector average risk scores.
func (h *Handler) SectorStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.engine.SectorStatus(r.Context(), h.sectors)
	h.respond(w, r, status, err)
}

// Upcoming serves articles flagged as future/scheduled events.
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	upcoming, err := h.engine.UpcomingEvents(r.Context(), sectorParam(r))
	h.respond(w, r, upcoming, err)
}

// Themes serves the detected topic clusters. An empty array is a valid
// result: clustering is best-effort and needs enough matching articles.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.engine.EmergingThemes(r.Context(), sectorParam(r))
	if themes == nil {
		themes = []analytics.Theme{}
	}
	h.respond(w, r, themes, err)
}

// Forecast serves the hourly risk trend plus its projection. The body is
// JSON null when there is not enough timestamped data to fit a trend.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.engine.Forecast(r.Context(), sectorParam(r))
	h.respond(w, r, forecast, err)
}

// MapPoints serves the geolocated articles.
func (h *Handler) MapPoints(w http.ResponseWriter, r *http.Request) {
	points, err := h.engine.MapPoints(r.Context(), sectorParam(r))
	h.respond(w, r, points, err)
}

// Articles serves the filtered feed, newest first.
func (h *Handler) Articles(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	limit := defaultArticleLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > maxArticleLimit {
			log.Warn().Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", maxArticleLimit), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	articles, err := h.engine.Articles(r.Context(), sectorParam(r), limit)
	h.respond(w, r, articles, err)
}

func sectorParam(r *http.Request) string {
	return r.URL.Query().Get("sector")
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	log := hlog.FromRequest(r)

	if err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Analytics query failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write(jsonBytes); writeErr != nil {
		log.Error().Err(writeErr).Msg("Error writing JSON response body to client")
	}
}
