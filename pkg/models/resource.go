package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/codeoncesoftware/grizzly-core/pkg/query"
)

// DeclaredResource is a user-authored mapping from an HTTP path+verb to a
// query shape against a collection. It is immutable once attached to a
// container except for regeneration when the declaration changes.
type DeclaredResource struct {
	ID           uuid.UUID      `bson:"_id" json:"id"`
	ContainerID  uuid.UUID      `bson:"container_id" json:"container_id"`
	DatasourceID uuid.UUID      `bson:"datasource_id" json:"datasource_id"`
	Path         string         `bson:"path" json:"path"`
	Verb         string         `bson:"verb" json:"verb"`
	Collection   string         `bson:"collection" json:"collection"`
	Template     query.Template `bson:"template" json:"template"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
}

// Container groups the declared resources of one deployed API version
// together with the request-body models derived for its write resources.
type Container struct {
	ID        uuid.UUID                   `bson:"_id" json:"id"`
	Name      string                      `bson:"name" json:"name"`
	ProjectID uuid.UUID                   `bson:"project_id" json:"project_id"`
	Resources []DeclaredResource          `bson:"resources" json:"resources"`
	Models    map[string]*query.BodyModel `bson:"models,omitempty" json:"models,omitempty"`
}

// Project carries the security configuration consulted by the surrounding
// system. Only the parts the core reads are modeled here.
type Project struct {
	ID      uuid.UUID `bson:"_id" json:"id"`
	Name    string    `bson:"name" json:"name"`
	Secured bool      `bson:"secured" json:"secured"`
}

// DatabaseInfo is the introspector's per-database summary for UI use.
type DatabaseInfo struct {
	Name        string   `json:"name"`
	Collections []string `json:"collections"`
}
