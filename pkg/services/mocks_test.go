package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/crypto"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
	"github.com/codeoncesoftware/grizzly-core/pkg/repositories"
)

// fakeHandle stands in for a live provider client.
type fakeHandle struct {
	closed atomic.Bool
}

func (h *fakeHandle) Ping(context.Context) error { return nil }
func (h *fakeHandle) Close() error               { h.closed.Store(true); return nil }
func (h *fakeHandle) Provider() models.Provider  { return models.ProviderDocument }

// fakeAdapter is a scriptable document-provider adapter.
type fakeAdapter struct {
	builds    atomic.Int64
	failBuild bool

	databases   []string
	collections map[string][]string
	stats       map[string]datasource.CollectionStats
	fields      map[string][]string

	droppedDatabases   []string
	createdCollections []string
}

func (a *fakeAdapter) BuildClient(ctx context.Context, record *models.DatasourceRecord, opts datasource.BuildOptions) (datasource.ClientHandle, error) {
	a.builds.Add(1)
	if a.failBuild {
		return nil, errors.New("connection refused")
	}
	return &fakeHandle{}, nil
}

func (a *fakeAdapter) ListDatabases(context.Context, datasource.ClientHandle) ([]string, error) {
	return a.databases, nil
}

func (a *fakeAdapter) ListCollections(ctx context.Context, h datasource.ClientHandle, database string) ([]string, error) {
	cols, ok := a.collections[database]
	if !ok {
		return nil, errors.New("database inaccessible")
	}
	return cols, nil
}

func (a *fakeAdapter) CollectionStats(ctx context.Context, h datasource.ClientHandle, database, collection string) datasource.CollectionStats {
	return a.stats[collection]
}

func (a *fakeAdapter) Fields(ctx context.Context, h datasource.ClientHandle, database, collection string) ([]string, error) {
	return a.fields[collection], nil
}

func (a *fakeAdapter) Describe(ctx context.Context, h datasource.ClientHandle, database, collection string) (*datasource.CollectionSchema, error) {
	fields := a.fields[collection]
	schema := &datasource.CollectionSchema{}
	for _, f := range fields {
		schema.Columns = append(schema.Columns, datasource.ColumnMetadata{Name: f})
	}
	return schema, nil
}

func (a *fakeAdapter) CreateCollection(ctx context.Context, h datasource.ClientHandle, database, collection string) error {
	a.createdCollections = append(a.createdCollections, database+"."+collection)
	return nil
}

func (a *fakeAdapter) CreateIndex(context.Context, datasource.ClientHandle, string, string, []string, bool) error {
	return nil
}

func (a *fakeAdapter) DropCollection(context.Context, datasource.ClientHandle, string, string) error {
	return nil
}

func (a *fakeAdapter) DropDatabase(ctx context.Context, h datasource.ClientHandle, database string) error {
	a.droppedDatabases = append(a.droppedDatabases, database)
	return nil
}

// registerFakeAdapter installs the fake under the document provider for the
// lifetime of the test binary.
func registerFakeAdapter() *fakeAdapter {
	adapter := &fakeAdapter{}
	datasource.Register(datasource.Registration{
		Info:    datasource.AdapterInfo{Provider: models.ProviderDocument, DisplayName: "Fake Document"},
		Adapter: adapter,
	})
	return adapter
}

// testFixture wires a full service stack over in-memory stores.
type testFixture struct {
	adapter     *fakeAdapter
	records     *repositories.MemoryRecordStore
	containers  *repositories.MemoryContainerStore
	encryptor   *crypto.CredentialEncryptor
	cache       *datasource.ConnectionCache
	datasources *DatasourceService
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	encryptor, err := crypto.NewCredentialEncryptor("test-key")
	if err != nil {
		t.Fatal(err)
	}

	f := &testFixture{
		adapter:    registerFakeAdapter(),
		records:    repositories.NewMemoryRecordStore(),
		containers: repositories.NewMemoryContainerStore(),
		encryptor:  encryptor,
		cache:      datasource.NewConnectionCache(datasource.CacheConfig{}, logger),
	}
	f.datasources = NewDatasourceService(f.records, encryptor, f.cache, nil, logger)
	return f
}

func pooledDocumentRecord() *models.DatasourceRecord {
	return &models.DatasourceRecord{
		Name:                "shop",
		Provider:            models.ProviderDocument,
		ConnectionMode:      models.ModePooled,
		LogicalDatabaseName: "shop",
		Owner:               "ada@example.com",
	}
}

func hostPortDocumentRecord() *models.DatasourceRecord {
	return &models.DatasourceRecord{
		Name:                "shop",
		Provider:            models.ProviderDocument,
		ConnectionMode:      models.ModeHostPort,
		Host:                "db.internal",
		Port:                27017,
		Username:            "svc",
		Password:            "hunter2",
		LogicalDatabaseName: "shop",
		Owner:               "ada@example.com",
	}
}

// staticPrincipal resolves every request to one fixed identity.
type staticPrincipal string

func (p staticPrincipal) CurrentPrincipal(context.Context) (string, error) {
	if p == "" {
		return "", apperrors.ErrNotFound
	}
	return string(p), nil
}

// staticProjects answers Find from a fixed map.
type staticProjects map[uuid.UUID]*models.Project

func (s staticProjects) Find(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := s[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}
