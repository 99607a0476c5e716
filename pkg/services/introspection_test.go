package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
)

func newIntrospection(t *testing.T, f *testFixture) *IntrospectionService {
	t.Helper()
	return NewIntrospectionService(f.datasources, f.cache, zaptest.NewLogger(t))
}

func TestIntrospection_ListDatabases(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	f.adapter.databases = []string{"shop", "archive"}
	f.adapter.collections = map[string][]string{
		"shop":    {"orders", "customers"},
		"archive": {"orders_2024"},
	}

	saved, err := f.datasources.Save(ctx, hostPortDocumentRecord())
	require.NoError(t, err)

	infos, err := svc.ListDatabases(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "shop", infos[0].Name)
	assert.Equal(t, []string{"orders", "customers"}, infos[0].Collections)
}

func TestIntrospection_ListDatabases_PartialFailure(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	f.adapter.databases = []string{"shop", "broken", "archive"}
	f.adapter.collections = map[string][]string{
		"shop":    {"orders"},
		"archive": {"orders_2024"},
		// "broken" missing: listing it fails
	}

	saved, err := f.datasources.Save(ctx, hostPortDocumentRecord())
	require.NoError(t, err)

	infos, err := svc.ListDatabases(ctx, saved.ID)
	require.NoError(t, err, "one broken database must not abort the enumeration")
	require.Len(t, infos, 3)
	assert.Equal(t, []string{"orders"}, infos[0].Collections)
	assert.Empty(t, infos[1].Collections)
	assert.Equal(t, []string{"orders_2024"}, infos[2].Collections)
}

func TestIntrospection_PooledSeesOnlyOwnDatabase(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	saved, err := f.datasources.Save(ctx, pooledDocumentRecord())
	require.NoError(t, err)
	f.adapter.databases = []string{"other_tenant", saved.PhysicalDatabaseName}
	f.adapter.collections = map[string][]string{saved.PhysicalDatabaseName: {"orders"}}

	infos, err := svc.ListDatabases(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, saved.PhysicalDatabaseName, infos[0].Name)
}

func TestIntrospection_StatsSkipFailingCollection(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	f.adapter.collections = map[string][]string{"shop": {"orders", "broken", "customers"}}
	f.adapter.stats = map[string]datasource.CollectionStats{
		"orders":    {Count: 10, SizeBytes: 1024},
		"customers": {Count: 3, SizeBytes: 512},
		// "broken" stays zero-valued
	}

	saved, err := f.datasources.Save(ctx, hostPortDocumentRecord())
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, saved.ID, "shop")
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, int64(10), stats[0].Count)
	assert.Zero(t, stats[1].Count, "failing collection reports zero, not an error")
	assert.Equal(t, int64(3), stats[2].Count)
}

func TestIntrospection_SecuredRequiresCredentials(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	record := hostPortDocumentRecord()
	record.Secured = true
	record.Password = ""
	saved, err := f.datasources.Save(ctx, record)
	require.NoError(t, err)

	_, err = svc.ListDatabases(ctx, saved.ID)
	assert.ErrorIs(t, err, apperrors.ErrCredentialsRequired)
}

func TestIntrospection_UnavailableDatasource(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	f.adapter.failBuild = true
	saved, err := f.datasources.Save(ctx, hostPortDocumentRecord())
	require.NoError(t, err)

	_, err = svc.ListDatabases(ctx, saved.ID)
	assert.ErrorIs(t, err, apperrors.ErrDatasourceUnavailable)
}

func TestIntrospection_FieldsAndDescribe(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	f.adapter.fields = map[string][]string{"orders": {"total", "status"}}
	saved, err := f.datasources.Save(ctx, hostPortDocumentRecord())
	require.NoError(t, err)

	fields, err := svc.Fields(ctx, saved.ID, "", "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"total", "status"}, fields)

	schema, err := svc.Describe(ctx, saved.ID, "", "orders")
	require.NoError(t, err)
	require.Len(t, schema.Columns, 2)
	assert.Equal(t, "total", schema.Columns[0].Name)
}

func TestIntrospection_CreateCollectionUsesEffectiveDatabase(t *testing.T) {
	f := newFixture(t)
	svc := newIntrospection(t, f)
	ctx := context.Background()

	saved, err := f.datasources.Save(ctx, pooledDocumentRecord())
	require.NoError(t, err)

	require.NoError(t, svc.CreateCollection(ctx, saved.ID, "ignored", "orders"))
	require.Len(t, f.adapter.createdCollections, 1)
	assert.Equal(t, saved.PhysicalDatabaseName+".orders", f.adapter.createdCollections[0])
}
