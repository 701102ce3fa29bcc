package http

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/lo"

	"dashcli/internal/analytics"
	apierrors "dashcli/internal/errors"
	"dashcli/internal/files"
	"dashcli/internal/loader"
	"dashcli/internal/middleware"
	api "dashcli/pkg/contracts/api/v1"
)

// DatasetHandler handles dataset registration and loading
type DatasetHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.Validator
	dataDir      string
	discovery    *files.Discovery
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a dataset handler. File loads are confined to
// dataDir.
func NewDatasetHandler(service DashboardServiceInterface, validator *middleware.Validator, dataDir string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		validator:    validator,
		dataDir:      dataDir,
		discovery:    files.NewDiscovery(dataDir),
		logger:       logger.With(slog.String("handler", "dataset")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListDatasets)
	r.Route("/{name}", func(r chi.Router) {
		r.Get("/", h.GetDataset)
		r.Put("/", h.RegisterDataset)
		r.Delete("/", h.RemoveDataset)
		r.Post("/load", h.LoadDataset)
		r.Get("/retry", h.RetryStatus)
		r.Delete("/retry", h.ResetRetry)
	})
	return r
}

// ListDatasets handles GET /api/datasets
func (h *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.ListDatasets())
}

// GetDataset handles GET /api/datasets/{name}
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Dataset(chi.URLParam(r, "name"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// RegisterDataset handles PUT /api/datasets/{name}
func (h *DatasetHandler) RegisterDataset(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterDatasetRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rows := lo.Map(req.Rows, func(row map[string]interface{}, _ int) analytics.Row {
		return analytics.Row(row)
	})
	info, err := h.service.RegisterDataset(chi.URLParam(r, "name"), rows)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// RemoveDataset handles DELETE /api/datasets/{name}
func (h *DatasetHandler) RemoveDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.service.RemoveDataset(name) {
		h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("dataset "+name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadDataset handles POST /api/datasets/{name}/load
func (h *DatasetHandler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	var req api.LoadDatasetRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	paths := make([]string, 0, len(req.Paths))
	for _, p := range req.Paths {
		if !filepath.IsLocal(p) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("paths", "paths must be relative to the data directory"))
			return
		}
		paths = append(paths, filepath.Join(h.dataDir, p))
	}
	if req.Pattern != "" {
		found, err := h.discovery.FindDataFiles(req.Pattern)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		if len(found) == 0 {
			h.errorHandler.HandleError(w, r, apierrors.NewNotFoundError("data files matching "+req.Pattern))
			return
		}
		paths = append(paths, files.Paths(h.dataDir, found)...)
	}
	if len(paths) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("paths", "paths or pattern is required"))
		return
	}

	var source loader.Source
	if len(paths) == 1 {
		source = loader.NewFileSource(paths[0])
	} else {
		chunked := loader.NewChunkedSource(paths...)
		if req.Concurrency > 0 {
			chunked.Concurrency = req.Concurrency
		}
		source = chunked
	}

	name := chi.URLParam(r, "name")
	info, err := h.service.LoadDataset(r.Context(), name, source)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset loaded",
		slog.String("dataset", name),
		slog.Int("files", len(paths)),
		slog.Int("rows", info.Rows))
	render.JSON(w, r, info)
}

// ListFiles handles GET /api/files?pattern=
func (h *DatasetHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	found, err := h.discovery.FindDataFiles(r.URL.Query().Get("pattern"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if found == nil {
		found = []files.FileInfo{}
	}
	render.JSON(w, r, found)
}

// RetryStatus handles GET /api/datasets/{name}/retry
func (h *DatasetHandler) RetryStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	count, canRetry := h.service.RetryStatus(r.Context(), name)
	render.JSON(w, r, api.RetryStatusResponse{Dataset: name, RetryCount: count, CanRetry: canRetry})
}

// ResetRetry handles DELETE /api/datasets/{name}/retry
func (h *DatasetHandler) ResetRetry(w http.ResponseWriter, r *http.Request) {
	h.service.ResetRetry(r.Context(), chi.URLParam(r, "name"))
	w.WriteHeader(http.StatusNoContent)
}
