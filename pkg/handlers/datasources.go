package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
	"github.com/codeoncesoftware/grizzly-core/pkg/services"
)

// DatasourceHandler exposes datasource CRUD and introspection over HTTP.
// Routes:
//
//	POST   /api/datasources                     create or update
//	GET    /api/datasources/{id}                fetch (credentials omitted)
//	DELETE /api/datasources/{id}                delete, dropping pooled data
//	GET    /api/datasources/{id}/databases      list databases + collections
//	GET    /api/datasources/{id}/stats          per-collection stats
//	GET    /api/datasources/{id}/fields         ?database=&collection=
//	GET    /api/datasources/{id}/schema         ?database=&collection=
//	POST   /api/datasources/{id}/collections    create collection/index
//	POST   /api/datasources/{id}/import         ?database=&collection= CSV body
type DatasourceHandler struct {
	datasources   *services.DatasourceService
	introspection *services.IntrospectionService
	importer      *services.ImportService
	logger        *zap.Logger
}

func NewDatasourceHandler(
	datasources *services.DatasourceService,
	introspection *services.IntrospectionService,
	importer *services.ImportService,
	logger *zap.Logger,
) *DatasourceHandler {
	return &DatasourceHandler{
		datasources:   datasources,
		introspection: introspection,
		importer:      importer,
		logger:        logger,
	}
}

// RegisterRoutes registers the datasource routes on the given mux.
func (h *DatasourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/datasources", h.save)
	mux.HandleFunc("/api/datasources/", h.route)
}

func (h *DatasourceHandler) save(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var record models.DatasourceRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	saved, err := h.datasources.Save(r.Context(), &record)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	// Encoded through the model's json tags, so credentials never leave.
	if err := WriteJSON(w, http.StatusOK, saved); err != nil {
		h.logger.Error("Failed to encode datasource response", zap.Error(err))
	}
}

func (h *DatasourceHandler) route(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/datasources/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.delete(w, r, id)
	case action == "databases" && r.Method == http.MethodGet:
		h.databases(w, r, id)
	case action == "stats" && r.Method == http.MethodGet:
		h.stats(w, r, id)
	case action == "fields" && r.Method == http.MethodGet:
		h.fields(w, r, id)
	case action == "schema" && r.Method == http.MethodGet:
		h.schema(w, r, id)
	case action == "collections" && r.Method == http.MethodPost:
		h.createCollection(w, r, id)
	case action == "import" && r.Method == http.MethodPost:
		h.importCSV(w, r, id)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *DatasourceHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	record, err := h.datasources.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, record)
}

func (h *DatasourceHandler) delete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.datasources.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DatasourceHandler) databases(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	infos, err := h.introspection.ListDatabases(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, infos)
}

func (h *DatasourceHandler) stats(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stats, err := h.introspection.Stats(r.Context(), id, r.URL.Query().Get("database"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, stats)
}

func (h *DatasourceHandler) fields(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	q := r.URL.Query()
	fields, err := h.introspection.Fields(r.Context(), id, q.Get("database"), q.Get("collection"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, fields)
}

func (h *DatasourceHandler) schema(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	q := r.URL.Query()
	schema, err := h.introspection.Describe(r.Context(), id, q.Get("database"), q.Get("collection"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, schema)
}

// CreateCollectionRequest for POST /collections body.
type CreateCollectionRequest struct {
	Database   string   `json:"database"`
	Collection string   `json:"collection"`
	Index      []string `json:"index,omitempty"`
	Unique     bool     `json:"unique,omitempty"`
}

func (h *DatasourceHandler) createCollection(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Index) > 0 {
		if err := h.introspection.CreateIndex(r.Context(), id, req.Database, req.Collection, req.Index, req.Unique); err != nil {
			h.writeServiceError(w, err)
			return
		}
	} else {
		if err := h.introspection.CreateCollection(r.Context(), id, req.Database, req.Collection); err != nil {
			h.writeServiceError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *DatasourceHandler) importCSV(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	q := r.URL.Query()
	report, err := h.importer.ImportCSV(r.Context(), id, q.Get("database"), q.Get("collection"), r.Body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, report)
}

func (h *DatasourceHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrCredentialsRequired):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, apperrors.ErrDatasourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("datasource request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, err error) {
	_ = WriteJSON(w, statusCode, map[string]string{"error": err.Error()})
}
