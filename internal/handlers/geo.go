package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ourfish-bknd/internal/geo"
	"ourfish-bknd/internal/services"
	"ourfish-bknd/internal/utils"
)

type GeoHandler struct {
	service *services.DashboardService
	logr    *zap.Logger
}

func NewGeoHandler(svc *services.DashboardService, logr *zap.Logger) *GeoHandler {
	return &GeoHandler{service: svc, logr: logr}
}

// ListNodes returns catalog entries at a level.
// GET /api/v1/geo/{level}?parent=10,11
func (h *GeoHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	level, err := geo.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	parents, err := parseIDs(utils.ParseQueryList(r.URL.Query(), "parent"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid parent parameter, expected comma-separated ids")
		return
	}

	nodes, err := h.service.Nodes(level, parents)
	if err != nil {
		if errors.Is(err, geo.ErrUnknownLevel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logr.Error("failed to list geo nodes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list geographic areas")
		return
	}

	writeData(w, map[string]interface{}{
		"level": level.String(),
		"count": len(nodes),
		"nodes": nodes,
	})
}
