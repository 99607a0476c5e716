package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/analytics"
	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
	"github.com/codeoncesoftware/grizzly-core/pkg/query"
	"github.com/codeoncesoftware/grizzly-core/pkg/repositories"
)

// BoundQuery is everything an executor needs to run one resolved request:
// the live client handle and the fully bound, provider-neutral query.
type BoundQuery struct {
	Handle     datasource.ClientHandle
	Provider   models.Provider
	Database   string
	Collection string
	Kind       query.Kind
	Filter     query.BoundFilter
	// Documents carries the request body for write kinds.
	Documents []map[string]any
	// Secured mirrors the owning project's security flag so the surrounding
	// gateway can enforce authentication before execution.
	Secured bool
}

// RuntimeResolver matches incoming request paths against a container's
// declared resources and binds request values into the stored query
// template. Declarations are matched first-wins in declaration order.
type RuntimeResolver struct {
	containers  repositories.ContainerStore
	datasources *DatasourceService
	projects    ProjectStore
	cache       *datasource.ConnectionCache
	collector   analytics.Collector
	logger      *zap.Logger
}

func NewRuntimeResolver(
	containers repositories.ContainerStore,
	datasources *DatasourceService,
	projects ProjectStore,
	cache *datasource.ConnectionCache,
	collector analytics.Collector,
	logger *zap.Logger,
) *RuntimeResolver {
	return &RuntimeResolver{
		containers:  containers,
		datasources: datasources,
		projects:    projects,
		cache:       cache,
		collector:   collector,
		logger:      logger,
	}
}

// Resolve matches path+verb against the container's resources and returns a
// bound query. Path variables are extracted from the matched segments; query
// parameters and body fields supply the remaining placeholder values.
func (r *RuntimeResolver) Resolve(ctx context.Context, containerID uuid.UUID, path, verb string, params map[string]string, body []map[string]any) (*BoundQuery, error) {
	container, err := r.containers.Find(ctx, containerID)
	if err != nil {
		return nil, err
	}

	resource, pathValues := matchResource(container.Resources, path, verb)
	if resource == nil {
		return nil, fmt.Errorf("%w: %s %s", apperrors.ErrResourceNotFound, verb, path)
	}

	record, err := r.datasources.Get(ctx, resource.DatasourceID)
	if err != nil {
		return nil, err
	}

	handle := r.cache.GetClient(ctx, record)
	if datasource.IsUnavailable(handle) {
		return nil, apperrors.ErrDatasourceUnavailable
	}

	values := make(map[string]any, len(params)+len(pathValues))
	for k, v := range params {
		values[k] = v
	}
	// Path segment values win over same-named query parameters.
	for k, v := range pathValues {
		values[k] = v
	}
	if len(body) > 0 {
		for k, v := range body[0] {
			if _, taken := values[k]; !taken {
				values[k] = v
			}
		}
	}

	filter, err := resource.Template.Bind(values)
	if err != nil {
		return nil, fmt.Errorf("bind %s %s: %w", verb, path, err)
	}

	secured := false
	if r.projects != nil && container.ProjectID != uuid.Nil {
		project, err := r.projects.Find(ctx, container.ProjectID)
		if err == nil {
			secured = project.Secured
		}
	}

	if r.collector != nil {
		r.collector.RecordRequest(containerID)
	}

	// Insert endpoints are declared batch-capable; a single-document request
	// narrows to a single insert.
	kind := resource.Template.Kind
	if kind == query.KindInsertMany && len(body) == 1 {
		kind = query.KindInsertOne
	}

	return &BoundQuery{
		Handle:     handle,
		Provider:   record.Provider,
		Database:   record.DatabaseName(),
		Collection: resource.Collection,
		Kind:       kind,
		Filter:     filter,
		Documents:  body,
		Secured:    secured,
	}, nil
}

// matchResource finds the first declared resource whose verb and path shape
// match the request, returning the values captured by single-variable path
// segments. A segment containing multiple variables (e.g. "{a}and{b}")
// matches any value but contributes no captures; its placeholders are bound
// from query parameters instead.
func matchResource(resources []models.DeclaredResource, path, verb string) (*models.DeclaredResource, map[string]any) {
	requestSegments := splitSegments(path)

	for i := range resources {
		resource := &resources[i]
		if !strings.EqualFold(resource.Verb, verb) {
			continue
		}
		declared := splitSegments(resource.Path)
		if len(declared) != len(requestSegments) {
			continue
		}

		captures := make(map[string]any)
		matched := true
		for j, seg := range declared {
			switch {
			case isSingleVariable(seg):
				captures[seg[1:len(seg)-1]] = requestSegments[j]
			case strings.Contains(seg, "{"):
				// multi-variable selector segment, matches positionally
			case seg != requestSegments[j]:
				matched = false
			}
			if !matched {
				break
			}
		}
		if matched {
			return resource, captures
		}
	}
	return nil, nil
}

func normalizePath(path string) string {
	return "/" + strings.Trim(path, "/")
}

func splitSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isSingleVariable(segment string) bool {
	return strings.HasPrefix(segment, "{") &&
		strings.HasSuffix(segment, "}") &&
		strings.Count(segment, "{") == 1
}
