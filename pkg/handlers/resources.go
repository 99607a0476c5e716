package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/query"
	"github.com/codeoncesoftware/grizzly-core/pkg/services"
)

// ResourceHandler exposes resource declaration and runtime resolution.
// Routes:
//
//	POST /api/containers/{id}/resources   declare a resource
//	POST /api/containers/{id}/resolve     resolve a request into a bound query
type ResourceHandler struct {
	resources *services.ResourceService
	resolver  *services.RuntimeResolver
	logger    *zap.Logger
}

func NewResourceHandler(resources *services.ResourceService, resolver *services.RuntimeResolver, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, resolver: resolver, logger: logger}
}

// RegisterRoutes registers the container resource routes on the given mux.
func (h *ResourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/containers/", h.route)
}

func (h *ResourceHandler) route(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/containers/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := uuid.Parse(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch {
	case action == "resources" && r.Method == http.MethodPost:
		h.declare(w, r, id)
	case action == "resolve" && r.Method == http.MethodPost:
		h.resolve(w, r, id)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *ResourceHandler) declare(w http.ResponseWriter, r *http.Request, containerID uuid.UUID) {
	var decl services.ResourceDeclaration
	if err := json.NewDecoder(r.Body).Decode(&decl); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resource, err := h.resources.Declare(r.Context(), containerID, decl)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, resource)
}

// ResolveRequest describes one incoming runtime request to resolve.
type ResolveRequest struct {
	Path   string            `json:"path"`
	Verb   string            `json:"verb"`
	Params map[string]string `json:"params,omitempty"`
	Body   []map[string]any  `json:"body,omitempty"`
}

// ResolveResponse is the provider-neutral bound query, minus the live
// handle which cannot cross the wire.
type ResolveResponse struct {
	Provider   string            `json:"provider"`
	Database   string            `json:"database"`
	Collection string            `json:"collection"`
	Kind       query.Kind        `json:"kind"`
	Filter     query.BoundFilter `json:"filter"`
	Documents  []map[string]any  `json:"documents,omitempty"`
	Secured    bool              `json:"secured"`
}

func (h *ResourceHandler) resolve(w http.ResponseWriter, r *http.Request, containerID uuid.UUID) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	bound, err := h.resolver.Resolve(r.Context(), containerID, req.Path, req.Verb, req.Params, req.Body)
	if err != nil {
		h.writeResolveError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ResolveResponse{
		Provider:   string(bound.Provider),
		Database:   bound.Database,
		Collection: bound.Collection,
		Kind:       bound.Kind,
		Filter:     bound.Filter,
		Documents:  bound.Documents,
		Secured:    bound.Secured,
	})
}

func (h *ResourceHandler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidResourceDeclaration):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, apperrors.ErrResourceNotFound), errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrDatasourceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("resource request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}
