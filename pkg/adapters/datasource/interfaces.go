// Package datasource defines the provider capability interface, the adapter
// registry, and the connection cache shared by all providers.
package datasource

import (
	"context"
	"time"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// Timeouts bounds both phases of a connection attempt: server selection
// (cluster discovery / handshake) and socket connect.
type Timeouts struct {
	ServerSelection time.Duration
	Connect         time.Duration
}

// DefaultTimeouts returns the recommended connection bounds.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ServerSelection: 5 * time.Second,
		Connect:         60 * time.Second,
	}
}

// BuildOptions carries everything a provider needs to turn a decrypted
// record into a live client handle.
type BuildOptions struct {
	Timeouts Timeouts
	// SharedClusterURI is the endpoint of the multi-tenant cluster used when
	// the record's connection mode is pooled.
	SharedClusterURI string
}

// ClientHandle is a live, pooled client shared by all callers of one
// datasource identity.
type ClientHandle interface {
	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Close releases the underlying client.
	Close() error

	// Provider returns the provider kind for logging/stats.
	Provider() models.Provider
}

// ReferentialAction is the symbolic on-update/on-delete rule of a foreign
// key constraint.
type ReferentialAction string

const (
	ActionCascade  ReferentialAction = "CASCADE"
	ActionRestrict ReferentialAction = "RESTRICT"
	ActionSetNull  ReferentialAction = "SET_NULL"
	ActionNoAction ReferentialAction = "NO_ACTION"
)

// CollectionStats is advisory size information for one collection/table.
// A zero value means the backend could not report stats.
type CollectionStats struct {
	Name         string `json:"name"`
	Count        int64  `json:"count"`
	SizeBytes    int64  `json:"size_bytes"`
	StorageBytes int64  `json:"storage_bytes"`
}

// ColumnMetadata describes one column (or sampled document field).
type ColumnMetadata struct {
	Name          string `json:"name"`
	DataType      string `json:"data_type"`
	Nullable      bool   `json:"nullable"`
	PrimaryKey    bool   `json:"primary_key"`
	AutoIncrement bool   `json:"auto_increment"`
}

// IndexMetadata describes one named index.
type IndexMetadata struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// ForeignKeyMetadata describes one foreign key constraint with its
// referential actions.
type ForeignKeyMetadata struct {
	ConstraintName   string            `json:"constraint_name"`
	Column           string            `json:"column"`
	ReferencedTable  string            `json:"referenced_table"`
	ReferencedColumn string            `json:"referenced_column"`
	OnUpdate         ReferentialAction `json:"on_update"`
	OnDelete         ReferentialAction `json:"on_delete"`
}

// CollectionSchema is the full introspected shape of one collection/table.
type CollectionSchema struct {
	Columns     []ColumnMetadata     `json:"columns"`
	Indexes     []IndexMetadata      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKeyMetadata `json:"foreign_keys,omitempty"`
}

// ProviderAdapter is the single capability interface every provider
// implements. Introspection methods are read-only and best-effort: one
// failing collection must not abort enumeration of the others, which is why
// CollectionStats returns a zero-valued struct instead of an error.
type ProviderAdapter interface {
	// BuildClient opens a live client handle for a decrypted record,
	// resolving its connection mode. Both connection phases are bounded by
	// opts.Timeouts.
	BuildClient(ctx context.Context, record *models.DatasourceRecord, opts BuildOptions) (ClientHandle, error)

	// ListDatabases enumerates databases visible through the handle,
	// excluding system databases.
	ListDatabases(ctx context.Context, h ClientHandle) ([]string, error)

	// ListCollections enumerates collections/tables/indices of a database,
	// excluding internal artifacts (file-storage chunks, system namespaces).
	ListCollections(ctx context.Context, h ClientHandle, database string) ([]string, error)

	// CollectionStats returns advisory size information. On any backend
	// error it returns a zero-valued stats struct.
	CollectionStats(ctx context.Context, h ClientHandle, database, collection string) CollectionStats

	// Fields returns the field/column names of a collection, sampled from
	// one document for document stores or from driver metadata elsewhere.
	Fields(ctx context.Context, h ClientHandle, database, collection string) ([]string, error)

	// Describe returns the full schema of a collection, including primary
	// keys, indexes, and foreign keys where the provider supports them.
	Describe(ctx context.Context, h ClientHandle, database, collection string) (*CollectionSchema, error)

	// CreateCollection creates a collection/table/index-store.
	CreateCollection(ctx context.Context, h ClientHandle, database, collection string) error

	// CreateIndex creates a named index on the given fields.
	CreateIndex(ctx context.Context, h ClientHandle, database, collection string, fields []string, unique bool) error

	// DropCollection removes a collection and its data.
	DropCollection(ctx context.Context, h ClientHandle, database, collection string) error

	// DropDatabase removes an entire database. Used when a pooled record is
	// deleted and its physical database must go with it.
	DropDatabase(ctx context.Context, h ClientHandle, database string) error
}
