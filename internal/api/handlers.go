package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/catalogservice"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/store"
)

// ExportNotifier receives export lifecycle announcements for streaming to
// connected clients. The SSE broker satisfies it; nil disables announcements.
type ExportNotifier interface {
	PublishExportStarted(handle, datasetID string)
}

// Handler holds API route handlers.
type Handler struct {
	svc      *catalogservice.Service
	disp     *export.Dispatcher
	notifier ExportNotifier
}

// NewHandler creates a new Handler.
func NewHandler(svc *catalogservice.Service, disp *export.Dispatcher, notifier ExportNotifier) *Handler {
	return &Handler{svc: svc, disp: disp, notifier: notifier}
}

// datasetID extracts the dataset id from the URL (everything after
// /api/datasets/). Earth Engine ids contain slashes, so the route uses a
// wildcard; encoded slashes from strict clients are also accepted.
func datasetID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case apperr.IsExternal(err):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Page size bounds for dataset listings.
const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// ListDatasets handles GET /api/datasets.
//
// Query parameters: query (substring text filter), tags (repeatable, each
// value may itself be comma-separated; all must match), sort
// (title|provider|updated_at), page, per_page.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := store.SearchParams{
		Query:   q.Get("query"),
		Sort:    q.Get("sort"),
		Page:    1,
		PerPage: defaultPerPage,
	}
	for _, raw := range q["tags"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				params.Tags = append(params.Tags, t)
			}
		}
	}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("page must be an integer"))
			return
		}
		params.Page = n
	}
	if raw := q.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("per_page must be an integer"))
			return
		}
		params.PerPage = n
	}
	if params.PerPage > maxPerPage {
		params.PerPage = maxPerPage
	}

	res, err := h.svc.Search(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	items := res.Items
	if items == nil {
		items = []store.DatasetRecord{}
	}
	writeJSON(w, http.StatusOK, DatasetListResponse{
		Datasets:    items,
		TotalCount:  res.TotalCount,
		TotalPages:  res.TotalPages,
		CurrentPage: res.CurrentPage,
	})
}

// GetDataset handles GET /api/datasets/*.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id := datasetID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("dataset id is required"))
		return
	}
	rec, err := h.svc.GetDataset(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if tags == nil {
		tags = []store.Tag{}
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// StartExport handles POST /api/exports.
//
// The Earth Engine OAuth token travels in the X-Project-Token header so it
// never lands in request logs.
func (h *Handler) StartExport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req StartExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ProjectID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("project_id is required"))
		return
	}
	project := export.ProjectContext{
		ProjectID: req.ProjectID,
		Token:     r.Header.Get("X-Project-Token"),
	}

	job, err := h.disp.StartExport(r.Context(), project, export.Request{
		DatasetID:   req.DatasetID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Band:        req.Band,
		Region:      req.Region,
		Format:      req.Format,
		Scale:       req.Scale,
		Destination: req.Destination,
		Folder:      req.Folder,
		FilePrefix:  req.FilePrefix,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if h.notifier != nil {
		h.notifier.PublishExportStarted(job.Handle, req.DatasetID)
	}
	writeJSON(w, http.StatusCreated, ExportJobResponse{
		Handle:      job.Handle,
		State:       string(job.State),
		Description: job.Description,
	})
}

// ExportStatus handles GET /api/exports/status?handle=&project=.
func (h *Handler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	handle := q.Get("handle")
	project := export.ProjectContext{
		ProjectID: q.Get("project"),
		Token:     r.Header.Get("X-Project-Token"),
	}
	status, err := h.disp.GetStatus(r.Context(), project, handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportStatusResponse{Handle: handle, State: string(status)})
}
