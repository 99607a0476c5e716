package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// IntrospectionService answers structural questions about a datasource:
// databases, collections, stats, fields, and full schemas. All operations
// are best-effort per item so that one broken collection never hides its
// siblings.
type IntrospectionService struct {
	datasources *DatasourceService
	cache       *datasource.ConnectionCache
	logger      *zap.Logger
}

func NewIntrospectionService(datasources *DatasourceService, cache *datasource.ConnectionCache, logger *zap.Logger) *IntrospectionService {
	return &IntrospectionService{
		datasources: datasources,
		cache:       cache,
		logger:      logger,
	}
}

// resolve loads the record, enforces the credential gate for secured
// datasources, and returns a live handle plus the provider adapter.
func (s *IntrospectionService) resolve(ctx context.Context, id uuid.UUID) (*models.DatasourceRecord, datasource.ClientHandle, datasource.ProviderAdapter, error) {
	record, err := s.datasources.Get(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if record.Secured && (record.Username == "" || record.Password == "") {
		return nil, nil, nil, apperrors.ErrCredentialsRequired
	}

	handle := s.cache.GetClient(ctx, record)
	if datasource.IsUnavailable(handle) {
		return nil, nil, nil, apperrors.ErrDatasourceUnavailable
	}

	adapter := datasource.Get(record.Provider)
	if adapter == nil {
		return nil, nil, nil, fmt.Errorf("no adapter registered for provider %q", record.Provider)
	}
	return record, handle, adapter, nil
}

// effectiveDatabase maps an empty requested database to the record's own
// database. Pooled records are confined to their allocated physical
// database regardless of the request.
func effectiveDatabase(record *models.DatasourceRecord, requested string) string {
	if record.ConnectionMode == models.ModePooled || requested == "" {
		return record.DatabaseName()
	}
	return requested
}

// ListDatabases enumerates the databases visible through the datasource,
// with their collections. A database whose collection listing fails is
// returned with an empty collection list rather than aborting the whole
// enumeration. Pooled datasources see only their own physical database.
func (s *IntrospectionService) ListDatabases(ctx context.Context, id uuid.UUID) ([]models.DatabaseInfo, error) {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	var names []string
	if record.ConnectionMode == models.ModePooled {
		names = []string{record.DatabaseName()}
	} else {
		names, err = adapter.ListDatabases(ctx, handle)
		if err != nil {
			return nil, err
		}
	}

	infos := make([]models.DatabaseInfo, 0, len(names))
	for _, name := range names {
		collections, err := adapter.ListCollections(ctx, handle, name)
		if err != nil {
			s.logger.Warn("listing collections failed",
				zap.String("datasource_id", id.String()),
				zap.String("database", name),
				zap.Error(err))
			collections = nil
		}
		infos = append(infos, models.DatabaseInfo{Name: name, Collections: collections})
	}
	return infos, nil
}

// ListCollections enumerates the collections of one database.
func (s *IntrospectionService) ListCollections(ctx context.Context, id uuid.UUID, database string) ([]string, error) {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return adapter.ListCollections(ctx, handle, effectiveDatabase(record, database))
}

// Stats returns per-collection size information. A collection whose stats
// call fails contributes a zero-valued entry; its siblings still report.
func (s *IntrospectionService) Stats(ctx context.Context, id uuid.UUID, database string) ([]datasource.CollectionStats, error) {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	db := effectiveDatabase(record, database)

	collections, err := adapter.ListCollections(ctx, handle, db)
	if err != nil {
		return nil, err
	}

	stats := make([]datasource.CollectionStats, 0, len(collections))
	for _, collection := range collections {
		st := adapter.CollectionStats(ctx, handle, db, collection)
		st.Name = collection
		stats = append(stats, st)
	}
	return stats, nil
}

// Fields returns the field or column names of a collection.
func (s *IntrospectionService) Fields(ctx context.Context, id uuid.UUID, database, collection string) ([]string, error) {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return adapter.Fields(ctx, handle, effectiveDatabase(record, database), collection)
}

// Describe returns the full schema of a collection including primary keys,
// indexes, and foreign keys where the provider supports them.
func (s *IntrospectionService) Describe(ctx context.Context, id uuid.UUID, database, collection string) (*datasource.CollectionSchema, error) {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return adapter.Describe(ctx, handle, effectiveDatabase(record, database), collection)
}

// CreateCollection creates a collection/table in the datasource.
func (s *IntrospectionService) CreateCollection(ctx context.Context, id uuid.UUID, database, collection string) error {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	return adapter.CreateCollection(ctx, handle, effectiveDatabase(record, database), collection)
}

// CreateIndex creates a named index over the given fields.
func (s *IntrospectionService) CreateIndex(ctx context.Context, id uuid.UUID, database, collection string, fields []string, unique bool) error {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	return adapter.CreateIndex(ctx, handle, effectiveDatabase(record, database), collection, fields, unique)
}

// DropCollection removes a collection and its data.
func (s *IntrospectionService) DropCollection(ctx context.Context, id uuid.UUID, database, collection string) error {
	record, handle, adapter, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	return adapter.DropCollection(ctx, handle, effectiveDatabase(record, database), collection)
}
