package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// PrincipalResolver identifies the caller of the current request. Token
// issuance and validation happen in the surrounding system; the core only
// consumes the resolved identity (email or API key).
type PrincipalResolver interface {
	CurrentPrincipal(ctx context.Context) (string, error)
}

// ProjectStore exposes a project's security configuration. Project CRUD
// lives in the surrounding system.
type ProjectStore interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Project, error)
}
