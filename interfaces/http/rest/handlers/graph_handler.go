package handlers

import (
	"math"
	"net/http"
	"strconv"

	"chatarchive/application/queries"
	querybus "chatarchive/application/queries/bus"
	"chatarchive/domain/config"
	domainservices "chatarchive/domain/services"
	"chatarchive/pkg/common"
	pkgerrors "chatarchive/pkg/errors"
	"chatarchive/visualization/view"

	"go.uber.org/zap"
)

// maxCanvas bounds the size of a rendered picture.
const maxCanvas = 8192

// GraphHandler serves the visualization dataset and its rendering
type GraphHandler struct {
	queryBus *querybus.QueryBus
	tuning   func() *config.DomainConfig
	logger   *zap.Logger
}

// NewGraphHandler creates a new graph handler. tuning supplies the live
// layout and render settings.
func NewGraphHandler(queryBus *querybus.QueryBus, tuning func() *config.DomainConfig, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{queryBus: queryBus, tuning: tuning, logger: logger}
}

// GetGraphData handles GET /graph-data
func (h *GraphHandler) GetGraphData(w http.ResponseWriter, r *http.Request) {
	data, err := h.graph(r)
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, data)
}

// GetGraphSVG handles GET /graph/view.svg?focus=&width=&height= by running
// the layout to completion and returning the settled picture.
func (h *GraphHandler) GetGraphSVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, err := parseDimension(q.Get("width"))
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}
	height, err := parseDimension(q.Get("height"))
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}

	data, err := h.graph(r)
	if err != nil {
		common.RespondAppError(w, r, h.logger, err)
		return
	}

	doc := view.RenderSVG(*data, h.tuning(), q.Get("focus"), width, height)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.Debug("Failed to write SVG", zap.Error(err))
	}
}

func (h *GraphHandler) graph(r *http.Request) (*domainservices.GraphData, error) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetGraphDataQuery{})
	if err != nil {
		return nil, err
	}
	return result.(*domainservices.GraphData), nil
}

// parseDimension reads a canvas size; empty means the configured default.
func parseDimension(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > maxCanvas {
		return 0, pkgerrors.NewValidationError("width and height must be between 0 and " + strconv.Itoa(maxCanvas))
	}
	return v, nil
}
