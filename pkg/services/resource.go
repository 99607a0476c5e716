package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
	"github.com/codeoncesoftware/grizzly-core/pkg/query"
	"github.com/codeoncesoftware/grizzly-core/pkg/repositories"
)

// ResourceDeclaration is the user's input for declaring one resource inside
// a container: a path, a verb, the datasource to execute against, and (for
// write verbs) a sample body the request model is inferred from.
type ResourceDeclaration struct {
	DatasourceID uuid.UUID      `json:"datasource_id"`
	Path         string         `json:"path"`
	Verb         string         `json:"verb"`
	SampleBody   map[string]any `json:"sample_body,omitempty"`
}

// ResourceService compiles resource declarations into query templates and
// attaches them to containers. Re-declaring the same path+verb replaces the
// previous resource and regenerates its template.
type ResourceService struct {
	containers repositories.ContainerStore
	logger     *zap.Logger
}

func NewResourceService(containers repositories.ContainerStore, logger *zap.Logger) *ResourceService {
	return &ResourceService{containers: containers, logger: logger}
}

// Declare compiles the declaration and stores the resulting resource on the
// container. Compilation happens once here; resolution at request time only
// binds values into the stored template.
func (s *ResourceService) Declare(ctx context.Context, containerID uuid.UUID, decl ResourceDeclaration) (*models.DeclaredResource, error) {
	compiled, err := query.Compile(decl.Path, decl.Verb, decl.SampleBody)
	if err != nil {
		return nil, err
	}

	container, err := s.containers.Find(ctx, containerID)
	if err != nil {
		return nil, err
	}

	resource := models.DeclaredResource{
		ID:           uuid.New(),
		ContainerID:  containerID,
		DatasourceID: decl.DatasourceID,
		Path:         normalizePath(decl.Path),
		Verb:         decl.Verb,
		Collection:   compiled.Collection,
		Template:     compiled.Template,
		CreatedAt:    time.Now().UTC(),
	}

	replaced := false
	for i, existing := range container.Resources {
		if existing.Path == resource.Path && existing.Verb == resource.Verb {
			container.Resources[i] = resource
			replaced = true
			break
		}
	}
	if !replaced {
		container.Resources = append(container.Resources, resource)
	}

	if compiled.Body != nil {
		if container.Models == nil {
			container.Models = make(map[string]*query.BodyModel)
		}
		container.Models[compiled.Body.Name] = compiled.Body
	}

	if err := s.containers.Save(ctx, container); err != nil {
		return nil, err
	}

	s.logger.Info("resource declared",
		zap.String("container_id", containerID.String()),
		zap.String("path", resource.Path),
		zap.String("verb", resource.Verb),
		zap.String("kind", string(resource.Template.Kind)))
	return &resource, nil
}
