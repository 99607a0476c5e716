// Package repositories persists datasource records and containers.
package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// RecordStore persists datasource records. Implementations only ever see
// records in encrypted form: the service layer encrypts before Save and
// decrypts after every read.
type RecordStore interface {
	// Save upserts a record by ID.
	Save(ctx context.Context, record *models.DatasourceRecord) error

	// FindByID returns the record or apperrors.ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*models.DatasourceRecord, error)

	// FindByOwner returns all records belonging to an owner.
	FindByOwner(ctx context.Context, owner string) ([]*models.DatasourceRecord, error)

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContainerStore persists containers and their declared resources.
type ContainerStore interface {
	// Find returns the container or apperrors.ErrNotFound.
	Find(ctx context.Context, id uuid.UUID) (*models.Container, error)

	// Save upserts a container by ID.
	Save(ctx context.Context, container *models.Container) error
}
