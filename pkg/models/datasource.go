package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider is the kind of backing database engine. The set is closed: adding
// a provider means adding an adapter package, not subclassing.
type Provider string

const (
	ProviderDocument   Provider = "document"
	ProviderRelational Provider = "relational"
	ProviderSearch     Provider = "search"
)

// ConnectionMode describes how a datasource's physical connection is
// established.
type ConnectionMode string

const (
	// ModePooled places the datasource inside a shared multi-tenant cluster
	// under a dedicated physical database name.
	ModePooled ConnectionMode = "pooled"
	// ModeCloudURI connects to an externally hosted cluster via a full URI.
	ModeCloudURI ConnectionMode = "cloud_uri"
	// ModeHostPort connects directly to a host/port, optionally with
	// credentials.
	ModeHostPort ConnectionMode = "host_port"
)

// Relational dialects accepted in DatasourceRecord.Dialect.
const (
	DialectPostgres  = "postgres"
	DialectMySQL     = "mysql"
	DialectSQLServer = "sqlserver"
)

// DatasourceRecord is the persisted description of a logical datasource.
// Password and URI are encrypted at rest by the service layer and decrypted
// only in memory; they must never be logged.
type DatasourceRecord struct {
	ID             uuid.UUID      `bson:"_id" json:"id"`
	Name           string         `bson:"name" json:"name"`
	Provider       Provider       `bson:"provider" json:"provider"`
	ConnectionMode ConnectionMode `bson:"connection_mode" json:"connection_mode"`

	Username string `bson:"username,omitempty" json:"username,omitempty"`
	Password string `bson:"password,omitempty" json:"-"`
	Host     string `bson:"host,omitempty" json:"host,omitempty"`
	Port     int    `bson:"port,omitempty" json:"port,omitempty"`
	URI      string `bson:"uri,omitempty" json:"-"`

	// Dialect selects the relational flavor (postgres, mysql, sqlserver).
	// Ignored for other providers.
	Dialect string `bson:"dialect,omitempty" json:"dialect,omitempty"`

	// LogicalDatabaseName is the user-facing database name.
	LogicalDatabaseName string `bson:"logical_database_name" json:"logical_database_name"`
	// PhysicalDatabaseName is the actual database identifier inside a shared
	// pooled cluster. Assigned exactly once on first pooled save and never
	// renamed: downstream resources reference it.
	PhysicalDatabaseName string `bson:"physical_database_name,omitempty" json:"physical_database_name,omitempty"`

	Owner   string `bson:"owner" json:"owner"`
	Secured bool   `bson:"secured" json:"secured"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Validate checks the mutual constraints between connection mode and the
// populated endpoint fields.
func (r *DatasourceRecord) Validate() error {
	switch r.ConnectionMode {
	case ModePooled:
		// Endpoint comes from the shared cluster configuration.
	case ModeCloudURI:
		if r.URI == "" {
			return fmt.Errorf("connection mode %s requires a uri", ModeCloudURI)
		}
	case ModeHostPort:
		if r.Host == "" || r.Port == 0 {
			return fmt.Errorf("connection mode %s requires host and port", ModeHostPort)
		}
	default:
		return fmt.Errorf("unknown connection mode %q", r.ConnectionMode)
	}

	switch r.Provider {
	case ProviderDocument, ProviderSearch:
	case ProviderRelational:
		switch r.Dialect {
		case DialectPostgres, DialectMySQL, DialectSQLServer:
		default:
			return fmt.Errorf("unknown relational dialect %q", r.Dialect)
		}
	default:
		return fmt.Errorf("unknown provider %q", r.Provider)
	}

	return nil
}

// DatabaseName returns the effective physical database name: the allocated
// physical name for pooled records, the logical name otherwise.
func (r *DatasourceRecord) DatabaseName() string {
	if r.ConnectionMode == ModePooled && r.PhysicalDatabaseName != "" {
		return r.PhysicalDatabaseName
	}
	return r.LogicalDatabaseName
}

// Clone returns a deep copy of the record.
func (r *DatasourceRecord) Clone() *DatasourceRecord {
	cp := *r
	return &cp
}

// ConnectionParamsEqual reports whether two records would build the same
// client handle. A change in any of these fields invalidates a cached
// connection.
func (r *DatasourceRecord) ConnectionParamsEqual(other *DatasourceRecord) bool {
	return r.Provider == other.Provider &&
		r.ConnectionMode == other.ConnectionMode &&
		r.Username == other.Username &&
		r.Password == other.Password &&
		r.Host == other.Host &&
		r.Port == other.Port &&
		r.URI == other.URI &&
		r.Dialect == other.Dialect
}
