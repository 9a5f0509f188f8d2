package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ourfish-bknd/internal/aggregate"
	"ourfish-bknd/internal/charts"
	"ourfish-bknd/internal/export"
	"ourfish-bknd/internal/geo"
	mdlwr "ourfish-bknd/internal/middleware"
	"ourfish-bknd/internal/services"
	"ourfish-bknd/internal/spatial"
)

type DashboardHandler struct {
	service *services.DashboardService
	logr    *zap.Logger
}

func NewDashboardHandler(svc *services.DashboardService, logr *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: svc, logr: logr}
}

type selectionReq struct {
	Level       string  `json:"level"`
	Trigger     string  `json:"trigger"`
	AllSelected bool    `json:"all_selected"`
	Selected    []int64 `json:"selected"`
}

type applyReq struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// isInputError reports whether err was caused by a bad request rather than
// by the server.
func isInputError(err error) bool {
	for _, target := range []error{
		aggregate.ErrInvalidRange,
		aggregate.ErrOutOfBounds,
		aggregate.ErrUnknownArea,
		geo.ErrUnknownLevel,
		geo.ErrUnknownTrigger,
		geo.ErrUnknownNode,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetState returns the four selection triples and the active filter.
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.service.State(mdlwr.SessionKey(r.Context())))
}

// UpdateSelection applies one edit to a selection level.
// POST /api/v1/dashboard/selection
func (h *DashboardHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	level, err := geo.ParseLevel(req.Level)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trigger, err := geo.ParseTrigger(req.Trigger)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.service.Select(mdlwr.SessionKey(r.Context()), geo.Event{
		Level:       level,
		Trigger:     trigger,
		AllSelected: req.AllSelected,
		Selected:    req.Selected,
	})
	if err != nil {
		if isInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logr.Error("failed to update selection", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update selection")
		return
	}
	writeData(w, state)
}

// Apply recomputes every table for the current selection and date range.
// POST /api/v1/dashboard/apply
func (h *DashboardHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	start, err := time.Parse(aggregate.DateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse(aggregate.DateLayout, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}

	res, err := h.service.Apply(mdlwr.SessionKey(r.Context()), start, end)
	if err != nil {
		if isInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logr.Error("failed to apply filter", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to apply filter")
		return
	}
	writeData(w, res)
}

// GetTables returns the last computed result.
func (h *DashboardHandler) GetTables(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.service.Result(mdlwr.SessionKey(r.Context())))
}

// GetTable returns one table of the last result in column/row form.
// GET /api/v1/dashboard/tables/{name}
func (h *DashboardHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := h.service.Table(mdlwr.SessionKey(r.Context()), name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown table "+strconv.Quote(name))
		return
	}
	writeData(w, t)
}

// GetMap returns the map layer. focus_lat and focus_lon center the view on
// one point.
func (h *DashboardHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var focus *spatial.Point
	if q.Get("focus_lat") != "" || q.Get("focus_lon") != "" {
		lat, errLat := strconv.ParseFloat(q.Get("focus_lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("focus_lon"), 64)
		if errLat != nil || errLon != nil {
			writeError(w, http.StatusBadRequest, "focus_lat and focus_lon must both be numbers")
			return
		}
		focus = &spatial.Point{Lat: lat, Lon: lon}
	}

	m, err := h.service.MapData(mdlwr.SessionKey(r.Context()), focus)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, m)
}

// GetChart renders one chart as PNG.
// GET /api/v1/dashboard/charts/{name}
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var buf bytes.Buffer
	if err := h.service.Chart(mdlwr.SessionKey(r.Context()), name, &buf); err != nil {
		if errors.Is(err, charts.ErrUnknownChart) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logr.Error("failed to render chart", zap.Error(err), zap.String("chart", name))
		writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Export downloads the last result as an xlsx workbook.
// GET /api/v1/dashboard/export
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.Export(mdlwr.SessionKey(r.Context()), &buf); err != nil {
		h.logr.Error("failed to build export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
