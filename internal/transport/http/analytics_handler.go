package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/lo"

	"dashcli/internal/analytics"
	apierrors "dashcli/internal/errors"
	"dashcli/internal/middleware"
	"dashcli/internal/services"
	api "dashcli/pkg/contracts/api/v1"
)

// AnalyticsHandler serves analytics queries over registered datasets
type AnalyticsHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service DashboardServiceInterface, validator *middleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("handler", "analytics")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analytics routes
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/timeseries", h.TimeSeries)
	r.Post("/distribution", h.Distribution)
	r.Post("/histogram", h.Histogram)
	r.Post("/ranges", h.Ranges)
	r.Post("/statistics", h.Statistics)

	r.Get("/cache", h.CacheStats)
	r.Delete("/cache", h.ClearCache)
	return r
}

// TimeSeries handles POST /api/analytics/timeseries
func (h *AnalyticsHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	var req api.TimeSeriesRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ts, cached, err := h.service.TimeSeries(r.Context(), services.TimeSeriesQuery{
		Dataset:      req.Dataset,
		DateColumn:   req.DateColumn,
		Mode:         analytics.DateMode(req.Mode),
		ValueColumns: req.ValueColumns,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var result interface{} = ts
	if period, ok := analytics.ParsePeriod(req.Period); ok {
		result = ts.ByPeriod(period)
	}
	h.respond(w, r, services.OpTimeSeries, req.Dataset, cached, result)
}

// Distribution handles POST /api/analytics/distribution
func (h *AnalyticsHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	var req api.DistributionRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, cached, err := h.service.Distribution(r.Context(), services.DistributionQuery{
		Dataset:        req.Dataset,
		CategoryColumn: req.CategoryColumn,
		ValueColumn:    req.ValueColumn,
		TopN:           req.TopN,
		Pareto:         req.Pareto,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.OpDistribution, req.Dataset, cached, result)
}

// Histogram handles POST /api/analytics/histogram
func (h *AnalyticsHandler) Histogram(w http.ResponseWriter, r *http.Request) {
	var req api.HistogramRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	bins := services.DefaultHistogramBins
	if req.Bins != nil {
		bins = *req.Bins
	}
	result, cached, err := h.service.Histogram(r.Context(), services.HistogramQuery{
		Dataset: req.Dataset,
		Column:  req.Column,
		Bins:    bins,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.OpHistogram, req.Dataset, cached, result)
}

// Ranges handles POST /api/analytics/ranges
func (h *AnalyticsHandler) Ranges(w http.ResponseWriter, r *http.Request) {
	var req api.RangesRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, cached, err := h.service.Ranges(r.Context(), services.RangesQuery{
		Dataset: req.Dataset,
		Column:  req.Column,
		Edges:   req.Edges,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.OpRanges, req.Dataset, cached, result)
}

// Statistics handles POST /api/analytics/statistics
func (h *AnalyticsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	var req api.StatisticsRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	columns := lo.Map(req.Columns, func(c api.ColumnRequest, _ int) analytics.ColumnRef {
		return analytics.ColumnRef{Key: c.Key, Label: lo.Ternary(c.Label == "", c.Key, c.Label)}
	})
	result, cached, err := h.service.Statistics(r.Context(), services.StatisticsQuery{
		Dataset: req.Dataset,
		Columns: columns,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.OpStatistics, req.Dataset, cached, result)
}

// CacheStats handles GET /api/analytics/cache
func (h *AnalyticsHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.CacheStats())
}

// ClearCache handles DELETE /api/analytics/cache
func (h *AnalyticsHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (h *AnalyticsHandler) respond(w http.ResponseWriter, r *http.Request, op, dataset string, cached bool, result interface{}) {
	h.logger.DebugContext(r.Context(), "analytics query answered",
		slog.String("operation", op),
		slog.String("dataset", dataset),
		slog.Bool("cached", cached))

	render.JSON(w, r, api.AnalyticsResponse{
		Operation: op,
		Dataset:   dataset,
		Cached:    cached,
		Result:    result,
	})
}
