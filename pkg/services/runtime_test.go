package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
	"github.com/codeoncesoftware/grizzly-core/pkg/query"
)

// countingCollector records events synchronously for assertions.
type countingCollector struct {
	events []uuid.UUID
}

func (c *countingCollector) RecordRequest(id uuid.UUID) {
	c.events = append(c.events, id)
}

type runtimeFixture struct {
	*testFixture
	resources *ResourceService
	resolver  *RuntimeResolver
	collector *countingCollector
	projects  staticProjects

	containerID  uuid.UUID
	datasourceID uuid.UUID
}

func newRuntimeFixture(t *testing.T) *runtimeFixture {
	t.Helper()
	f := newFixture(t)
	logger := zaptest.NewLogger(t)

	saved, err := f.datasources.Save(context.Background(), hostPortDocumentRecord())
	require.NoError(t, err)

	container := &models.Container{ID: uuid.New(), Name: "v1"}
	require.NoError(t, f.containers.Save(context.Background(), container))

	collector := &countingCollector{}
	projects := staticProjects{}
	rf := &runtimeFixture{
		testFixture:  f,
		resources:    NewResourceService(f.containers, logger),
		collector:    collector,
		projects:     projects,
		containerID:  container.ID,
		datasourceID: saved.ID,
	}
	rf.resolver = NewRuntimeResolver(f.containers, f.datasources, projects, f.cache, collector, logger)
	return rf
}

func (rf *runtimeFixture) declare(t *testing.T, path, verb string, body map[string]any) *models.DeclaredResource {
	t.Helper()
	resource, err := rf.resources.Declare(context.Background(), rf.containerID, ResourceDeclaration{
		DatasourceID: rf.datasourceID,
		Path:         path,
		Verb:         verb,
		SampleBody:   body,
	})
	require.NoError(t, err)
	return resource
}

func TestResolve_FindAll(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodGet, nil)

	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders", http.MethodGet, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, query.KindFindAll, bound.Kind)
	assert.Equal(t, "orders", bound.Collection)
	assert.Equal(t, "shop", bound.Database)
	assert.Empty(t, bound.Filter.Nodes)
}

func TestResolve_PathVariableBindsLiteral(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders/{id}", http.MethodGet, nil)

	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders/123", http.MethodGet, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, query.KindFindByPathVariable, bound.Kind)
	require.Len(t, bound.Filter.Nodes, 1)
	assert.Equal(t, "id", bound.Filter.Nodes[0].Field)
	assert.Equal(t, "123", bound.Filter.Nodes[0].Value)
}

func TestResolve_FindByFieldUsesQueryParams(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders/findByStatus", http.MethodGet, nil)

	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders/findByStatus", http.MethodGet,
		map[string]string{"status": "open"}, nil)
	require.NoError(t, err)
	assert.Equal(t, query.KindFindByField, bound.Kind)
	require.Len(t, bound.Filter.Nodes, 1)
	assert.Equal(t, "open", bound.Filter.Nodes[0].Value)
}

func TestResolve_FirstMatchWins(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders/{id}", http.MethodGet, nil)
	rf.declare(t, "/orders/latest", http.MethodGet, nil) // declared later, shadowed

	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders/latest", http.MethodGet, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, query.KindFindByPathVariable, bound.Kind, "earlier declaration shadows later ones")
	assert.Equal(t, "latest", bound.Filter.Nodes[0].Value)
}

func TestResolve_VerbMismatch(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodGet, nil)

	_, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders", http.MethodDelete, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestResolve_NoMatch(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodGet, nil)

	_, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/customers", http.MethodGet, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestResolve_InsertCarriesDocuments(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodPost, map[string]any{"total": 10.5, "open": true})

	docs := []map[string]any{{"total": 12.0, "open": false}, {"total": 7.25, "open": true}}
	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders", http.MethodPost, nil, docs)
	require.NoError(t, err)
	assert.Equal(t, query.KindInsertMany, bound.Kind)
	assert.Equal(t, docs, bound.Documents)
}

func TestResolve_SingleDocumentNarrowsToInsertOne(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodPost, map[string]any{"total": 10.5})

	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders", http.MethodPost,
		nil, []map[string]any{{"total": 12.0}})
	require.NoError(t, err)
	assert.Equal(t, query.KindInsertOne, bound.Kind)
}

func TestResolve_UpdateBindsPathVariable(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders/{id}", http.MethodPut, map[string]any{"total": 10.5})

	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders/42", http.MethodPut,
		nil, []map[string]any{{"total": 99.0}})
	require.NoError(t, err)
	assert.Equal(t, query.KindUpdateOne, bound.Kind)
	require.Len(t, bound.Filter.Nodes, 1)
	assert.Equal(t, "42", bound.Filter.Nodes[0].Value)
	require.Len(t, bound.Documents, 1)
}

func TestResolve_UnavailableDatasource(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodGet, nil)
	rf.adapter.failBuild = true

	_, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders", http.MethodGet, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrDatasourceUnavailable)
}

func TestResolve_RecordsAnalytics(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodGet, nil)

	_, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders", http.MethodGet, nil, nil)
	require.NoError(t, err)
	require.Len(t, rf.collector.events, 1)
	assert.Equal(t, rf.containerID, rf.collector.events[0])
}

func TestResolve_ProjectSecurityFlag(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodGet, nil)

	projectID := uuid.New()
	rf.projects[projectID] = &models.Project{ID: projectID, Secured: true}
	container, err := rf.containers.Find(context.Background(), rf.containerID)
	require.NoError(t, err)
	container.ProjectID = projectID
	require.NoError(t, rf.containers.Save(context.Background(), container))

	bound, err := rf.resolver.Resolve(context.Background(), rf.containerID, "/orders", http.MethodGet, nil, nil)
	require.NoError(t, err)
	assert.True(t, bound.Secured)
}

func TestDeclare_ReplacesSamePathAndVerb(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders/findByStatus", http.MethodGet, nil)
	rf.declare(t, "/orders/findByStatus", http.MethodGet, nil)

	container, err := rf.containers.Find(context.Background(), rf.containerID)
	require.NoError(t, err)
	assert.Len(t, container.Resources, 1)
}

func TestDeclare_AttachesBodyModel(t *testing.T) {
	rf := newRuntimeFixture(t)
	rf.declare(t, "/orders", http.MethodPost, map[string]any{"total": "12.5", "note": "gift"})

	container, err := rf.containers.Find(context.Background(), rf.containerID)
	require.NoError(t, err)
	model, ok := container.Models["order"]
	require.True(t, ok, "body model keyed by singular collection name")
	assert.Equal(t, query.FieldNumber, model.Fields["total"])
	assert.Equal(t, query.FieldString, model.Fields["note"])
}

func TestDeclare_InvalidDeclaration(t *testing.T) {
	rf := newRuntimeFixture(t)
	_, err := rf.resources.Declare(context.Background(), rf.containerID, ResourceDeclaration{
		DatasourceID: rf.datasourceID,
		Path:         "/orders/findByTotalLessThanTen",
		Verb:         http.MethodGet,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidResourceDeclaration)
}
