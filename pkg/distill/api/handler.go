package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/content-distill/pkg/distill"
	"github.com/tendant/content-distill/pkg/distill/entity"
	"github.com/tendant/content-distill/pkg/distill/export"
)

const maxDocumentBytes = 4 << 20

// EntityResponse is the response body for a distilled entity
type EntityResponse struct {
	EntityType string          `json:"entity_type"`
	Bundle     string          `json:"bundle"`
	ID         string          `json:"id"`
	Language   string          `json:"language"`
	Values     *distill.Values `json:"values"`
}

// EntityRef identifies a stored entity
type EntityRef struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id"`
}

// ErrorResponse is the response body for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Handler serves distilled entities over HTTP
type Handler struct {
	repo      entity.Repository
	loader    *entity.RepositoryLoader
	processor distill.Processor
	hooks     *distill.Hooks
	exporter  *export.Exporter
	logger    *slog.Logger
	language  string
}

// Option configures a Handler
type Option func(*Handler)

// WithProcessor sets the handler registry used for extraction
func WithProcessor(p distill.Processor) Option {
	return func(h *Handler) {
		h.processor = p
	}
}

// WithHooks sets the extension hooks used for extraction
func WithHooks(hooks *distill.Hooks) Option {
	return func(h *Handler) {
		h.hooks = hooks
	}
}

// WithExporter enables the export endpoint
func WithExporter(e *export.Exporter) Option {
	return func(h *Handler) {
		h.exporter = e
	}
}

// WithLogger sets the request and error logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithDefaultLanguage sets the language used when a request has no lang parameter
func WithDefaultLanguage(langcode string) Option {
	return func(h *Handler) {
		h.language = langcode
	}
}

// NewHandler creates a new entity handler
func NewHandler(repo entity.Repository, opts ...Option) *Handler {
	h := &Handler{
		repo:   repo,
		loader: entity.NewRepositoryLoader(repo),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the routes for entities
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Put("/entities", h.PutEntities)
	r.Get("/entities/{entityType}", h.ListEntities)
	r.Get("/entities/{entityType}/{entityID}", h.GetEntity)
	r.Delete("/entities/{entityType}/{entityID}", h.DeleteEntity)
	r.Get("/entities/{entityType}/{entityID}/document", h.GetDocument)
	r.Post("/entities/{entityType}/{entityID}/export", h.ExportEntity)
	r.Get("/field-types", h.FieldTypes)

	return r
}

func (h *Handler) distillOptions(r *http.Request) []distill.Option {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = h.language
	}
	return []distill.Option{
		distill.WithProcessor(h.processor),
		distill.WithHooks(h.hooks),
		distill.WithLanguage(lang),
		distill.WithLogger(h.logger),
	}
}

// GetEntity distills a stored entity. Repeated field=name[:key] parameters
// restrict extraction to the named fields; otherwise every field is extracted.
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	e, err := h.loader.Load(r.Context(), entityType, entityID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	d := distill.New(e, h.distillOptions(r)...)
	fields := r.URL.Query()["field"]
	if len(fields) == 0 {
		err = d.ExtractAllFields(r.Context())
	}
	for _, param := range fields {
		name, key, _ := strings.Cut(param, ":")
		if err = d.ExtractField(r.Context(), name, distill.As(key)); err != nil {
			break
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.JSON(w, r, EntityResponse{
		EntityType: d.EntityType(),
		Bundle:     d.Bundle(),
		ID:         d.ID(),
		Language:   d.Language(),
		Values:     d.Values(),
	})
}

// GetDocument returns the stored entity document
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.repo.Get(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, doc)
}

// ListEntities returns the references of the stored entities of a type
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	docs, err := h.repo.List(r.Context(), chi.URLParam(r, "entityType"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	refs := make([]EntityRef, 0, len(docs))
	for _, doc := range docs {
		refs = append(refs, EntityRef{EntityType: doc.Type, ID: doc.ID})
	}
	render.JSON(w, r, refs)
}

// PutEntities stores one entity document or an array of them
func (h *Handler) PutEntities(w http.ResponseWriter, r *http.Request) {
	docs, err := entity.DecodeDocuments(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	refs := make([]EntityRef, 0, len(docs))
	for _, doc := range docs {
		if err := h.repo.Save(r.Context(), doc); err != nil {
			h.writeError(w, r, err)
			return
		}
		refs = append(refs, EntityRef{EntityType: doc.Type, ID: doc.ID})
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, refs)
}

// DeleteEntity removes a stored entity
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportEntity distills a stored entity and writes it to the export store
func (h *Handler) ExportEntity(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		render.Status(r, http.StatusNotImplemented)
		render.JSON(w, r, ErrorResponse{Error: "export is not configured"})
		return
	}

	e, err := h.loader.Load(r.Context(), chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.exporter.ExportEntity(r.Context(), e, h.distillOptions(r)...)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// FieldTypes lists the platform field types known to the processor
func (h *Handler) FieldTypes(w http.ResponseWriter, r *http.Request) {
	types := []string{}
	if h.processor != nil {
		types = append(types, h.processor.SystemFieldTypes()...)
	}
	render.JSON(w, r, types)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var fieldErr *distill.FieldError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, entity.ErrEntityNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidDocument):
		status = http.StatusBadRequest
	case errors.As(err, &maxBytesErr):
		status = http.StatusRequestEntityTooLarge
	case errors.As(err, &fieldErr):
		status = http.StatusUnprocessableEntity
		resp.Field = fieldErr.Field
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		h.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}
