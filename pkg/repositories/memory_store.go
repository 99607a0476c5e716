package repositories

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/codeoncesoftware/grizzly-core/pkg/apperrors"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// MemoryRecordStore is an in-memory RecordStore for tests and embedded use.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*models.DatasourceRecord
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[uuid.UUID]*models.DatasourceRecord)}
}

func (s *MemoryRecordStore) Save(ctx context.Context, record *models.DatasourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *MemoryRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*models.DatasourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *MemoryRecordStore) FindByOwner(ctx context.Context, owner string) ([]*models.DatasourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []*models.DatasourceRecord
	for _, record := range s.records {
		if record.Owner == owner {
			records = append(records, record.Clone())
		}
	}
	return records, nil
}

func (s *MemoryRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// MemoryContainerStore is an in-memory ContainerStore for tests and embedded
// use.
type MemoryContainerStore struct {
	mu         sync.RWMutex
	containers map[uuid.UUID]*models.Container
}

// NewMemoryContainerStore creates an empty in-memory container store.
func NewMemoryContainerStore() *MemoryContainerStore {
	return &MemoryContainerStore{containers: make(map[uuid.UUID]*models.Container)}
}

func (s *MemoryContainerStore) Find(ctx context.Context, id uuid.UUID) (*models.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	container, ok := s.containers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return container, nil
}

func (s *MemoryContainerStore) Save(ctx context.Context, container *models.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[container.ID] = container
	return nil
}

// Ensure interface compliance at compile time.
var (
	_ RecordStore    = (*MemoryRecordStore)(nil)
	_ ContainerStore = (*MemoryContainerStore)(nil)
)
