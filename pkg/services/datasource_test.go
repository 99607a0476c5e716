package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

func TestDatasourceService_SaveAllocatesPhysicalNameOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.datasources.Save(ctx, pooledDocumentRecord())
	require.NoError(t, err)
	require.NotEmpty(t, saved.PhysicalDatabaseName)
	first := saved.PhysicalDatabaseName

	// Renaming must not reallocate.
	saved.Name = "shop-renamed"
	saved.LogicalDatabaseName = "shop2"
	saved, err = f.datasources.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, first, saved.PhysicalDatabaseName)

	// Even a record arriving without the physical name keeps the stored one.
	stripped := saved.Clone()
	stripped.PhysicalDatabaseName = ""
	saved, err = f.datasources.Save(ctx, stripped)
	require.NoError(t, err)
	assert.Equal(t, first, saved.PhysicalDatabaseName)
}

func TestDatasourceService_CredentialsEncryptedAtRest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record := hostPortDocumentRecord()
	saved, err := f.datasources.Save(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", saved.Password, "caller keeps plaintext")

	stored, err := f.records.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", stored.Password, "store must never see plaintext")
	assert.NotEmpty(t, stored.Password)

	loaded, err := f.datasources.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", loaded.Password)
}

func TestDatasourceService_SaveRejectsInvalidRecord(t *testing.T) {
	f := newFixture(t)

	record := pooledDocumentRecord()
	record.ConnectionMode = models.ModeCloudURI // uri missing
	_, err := f.datasources.Save(context.Background(), record)
	assert.Error(t, err)
}

func TestDatasourceService_ConnectionChangeEvictsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.datasources.Save(ctx, hostPortDocumentRecord())
	require.NoError(t, err)

	h := f.cache.GetClient(ctx, saved)
	require.NotNil(t, h)
	require.Equal(t, 1, f.cache.Size())

	// Unrelated edits keep the cached handle.
	saved.Name = "renamed"
	saved, err = f.datasources.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Size())

	// A credential change evicts.
	saved.Password = "new-secret"
	_, err = f.datasources.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.Size())
	assert.True(t, h.(*fakeHandle).closed.Load())
}

func TestDatasourceService_SaveDefaultsOwnerFromPrincipal(t *testing.T) {
	f := newFixture(t)
	svc := NewDatasourceService(f.records, f.encryptor, f.cache, staticPrincipal("grace@example.com"), zaptest.NewLogger(t))

	record := pooledDocumentRecord()
	record.Owner = ""
	saved, err := svc.Save(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", saved.Owner)
}

func TestDatasourceService_DeleteDropsPooledDatabase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.datasources.Save(ctx, pooledDocumentRecord())
	require.NoError(t, err)
	physical := saved.PhysicalDatabaseName

	require.NoError(t, f.datasources.Delete(ctx, saved.ID))

	assert.Contains(t, f.adapter.droppedDatabases, physical)
	assert.Equal(t, 0, f.cache.Size())
	_, err = f.records.FindByID(ctx, saved.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDatasourceService_DeleteHostPortLeavesDataAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.datasources.Save(ctx, hostPortDocumentRecord())
	require.NoError(t, err)

	require.NoError(t, f.datasources.Delete(ctx, saved.ID))
	assert.Empty(t, f.adapter.droppedDatabases, "external clusters are never dropped")
}

func TestDatasourceService_GetMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.datasources.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
