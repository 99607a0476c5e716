package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

const (
	recordCollection    = "datasources"
	containerCollection = "containers"
)

// MongoRecordStore persists datasource records in the metadata document
// store.
type MongoRecordStore struct {
	records *mongo.Collection
}

// NewMongoRecordStore creates a record store over the given metadata
// database.
func NewMongoRecordStore(db *mongo.Database) *MongoRecordStore {
	return &MongoRecordStore{records: db.Collection(recordCollection)}
}

func (s *MongoRecordStore) Save(ctx context.Context, record *models.DatasourceRecord) error {
	_, err := s.records.ReplaceOne(ctx,
		bson.M{"_id": record.ID},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save datasource record: %w", err)
	}
	return nil
}

func (s *MongoRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*models.DatasourceRecord, error) {
	var record models.DatasourceRecord
	err := s.records.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find datasource record: %w", err)
	}
	return &record, nil
}

func (s *MongoRecordStore) FindByOwner(ctx context.Context, owner string) ([]*models.DatasourceRecord, error) {
	cursor, err := s.records.Find(ctx, bson.M{"owner": owner})
	if err != nil {
		return nil, fmt.Errorf("find datasource records by owner: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*models.DatasourceRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode datasource records: %w", err)
	}
	return records, nil
}

func (s *MongoRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.records.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete datasource record: %w", err)
	}
	return nil
}

// MongoContainerStore persists containers in the metadata document store.
type MongoContainerStore struct {
	containers *mongo.Collection
}

// NewMongoContainerStore creates a container store over the given metadata
// database.
func NewMongoContainerStore(db *mongo.Database) *MongoContainerStore {
	return &MongoContainerStore{containers: db.Collection(containerCollection)}
}

func (s *MongoContainerStore) Find(ctx context.Context, id uuid.UUID) (*models.Container, error) {
	var container models.Container
	err := s.containers.FindOne(ctx, bson.M{"_id": id}).Decode(&container)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find container: %w", err)
	}
	return &container, nil
}

func (s *MongoContainerStore) Save(ctx context.Context, container *models.Container) error {
	_, err := s.containers.ReplaceOne(ctx,
		bson.M{"_id": container.ID},
		container,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save container: %w", err)
	}
	return nil
}

// Ensure interface compliance at compile time.
var (
	_ RecordStore    = (*MongoRecordStore)(nil)
	_ ContainerStore = (*MongoContainerStore)(nil)
)
