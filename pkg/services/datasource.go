package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/allocator"
	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/crypto"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
	"github.com/codeoncesoftware/grizzly-core/pkg/repositories"
)

// DatasourceService owns the lifecycle of datasource records: validation,
// physical database allocation for pooled connections, credential
// encryption at rest, and connection cache invalidation on parameter
// changes.
type DatasourceService struct {
	store      repositories.RecordStore
	encryptor  *crypto.CredentialEncryptor
	cache      *datasource.ConnectionCache
	principals PrincipalResolver
	logger     *zap.Logger
}

func NewDatasourceService(
	store repositories.RecordStore,
	encryptor *crypto.CredentialEncryptor,
	cache *datasource.ConnectionCache,
	principals PrincipalResolver,
	logger *zap.Logger,
) *DatasourceService {
	return &DatasourceService{
		store:      store,
		encryptor:  encryptor,
		cache:      cache,
		principals: principals,
		logger:     logger,
	}
}

// Save validates and persists a datasource record. Credentials are
// encrypted before they reach the store; the returned record keeps the
// caller's plaintext credentials. On the first save of a pooled record a
// physical database name is allocated and never changes afterwards, even
// when the record is renamed.
func (s *DatasourceService) Save(ctx context.Context, record *models.DatasourceRecord) (*models.DatasourceRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if record.Owner == "" && s.principals != nil {
		principal, err := s.principals.CurrentPrincipal(ctx)
		if err == nil {
			record.Owner = principal
		}
	}

	existing, err := s.store.FindByID(ctx, record.ID)
	switch {
	case err == nil:
		if err := s.encryptor.DecryptRecord(existing); err != nil {
			return nil, fmt.Errorf("decrypt stored datasource %s: %w", record.ID, err)
		}
		// Allocation happens once. Renames keep the physical name.
		if existing.PhysicalDatabaseName != "" {
			record.PhysicalDatabaseName = existing.PhysicalDatabaseName
		}
		record.CreatedAt = existing.CreatedAt
		if !existing.ConnectionParamsEqual(record) {
			s.cache.Evict(record.ID)
			s.logger.Info("datasource connection parameters changed, cache evicted",
				zap.String("datasource_id", record.ID.String()))
		}
	case errors.Is(err, apperrors.ErrNotFound):
		// first save
	default:
		return nil, err
	}

	if record.ConnectionMode == models.ModePooled && record.PhysicalDatabaseName == "" {
		record.PhysicalDatabaseName = allocator.Allocate(record.Owner, record.LogicalDatabaseName)
	}

	stored := record.Clone()
	if err := s.encryptor.EncryptRecord(stored); err != nil {
		return nil, fmt.Errorf("encrypt datasource %s: %w", record.ID, err)
	}
	if err := s.store.Save(ctx, stored); err != nil {
		return nil, err
	}
	return record, nil
}

// Get returns a record with decrypted credentials.
func (s *DatasourceService) Get(ctx context.Context, id uuid.UUID) (*models.DatasourceRecord, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.encryptor.DecryptRecord(record); err != nil {
		return nil, fmt.Errorf("decrypt datasource %s: %w", id, err)
	}
	return record, nil
}

// ListByOwner returns the owner's records with decrypted credentials.
func (s *DatasourceService) ListByOwner(ctx context.Context, owner string) ([]*models.DatasourceRecord, error) {
	records, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := s.encryptor.DecryptRecord(record); err != nil {
			return nil, fmt.Errorf("decrypt datasource %s: %w", record.ID, err)
		}
	}
	return records, nil
}

// Delete removes the record and its cached connection. For pooled records
// the allocated physical database is dropped from the shared cluster; a
// failed drop is logged but does not block deletion of the record.
func (s *DatasourceService) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if record.ConnectionMode == models.ModePooled && record.PhysicalDatabaseName != "" {
		if err := s.dropPhysicalDatabase(ctx, record); err != nil {
			s.logger.Warn("dropping pooled physical database failed",
				zap.String("datasource_id", id.String()),
				zap.String("database", record.PhysicalDatabaseName),
				zap.Error(err))
		}
	}

	s.cache.Evict(id)
	return s.store.Delete(ctx, id)
}

func (s *DatasourceService) dropPhysicalDatabase(ctx context.Context, record *models.DatasourceRecord) error {
	handle := s.cache.GetClient(ctx, record)
	if datasource.IsUnavailable(handle) {
		return apperrors.ErrDatasourceUnavailable
	}
	adapter := datasource.Get(record.Provider)
	if adapter == nil {
		return fmt.Errorf("no adapter registered for provider %q", record.Provider)
	}
	return adapter.DropDatabase(ctx, handle, record.PhysicalDatabaseName)
}
