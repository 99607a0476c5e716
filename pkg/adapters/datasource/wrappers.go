package datasource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// MongoHandle wraps *mongo.Client to implement ClientHandle.
type MongoHandle struct {
	client *mongo.Client
}

// NewMongoHandle wraps a connected mongo client.
func NewMongoHandle(client *mongo.Client) *MongoHandle {
	return &MongoHandle{client: client}
}

func (h *MongoHandle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, readpref.Primary())
}

func (h *MongoHandle) Close() error {
	return h.client.Disconnect(context.Background())
}

func (h *MongoHandle) Provider() models.Provider {
	return models.ProviderDocument
}

// Client returns the underlying *mongo.Client.
func (h *MongoHandle) Client() *mongo.Client {
	return h.client
}

// GetMongoClient extracts the underlying *mongo.Client from a handle.
func GetMongoClient(h ClientHandle) (*mongo.Client, error) {
	wrapper, ok := h.(*MongoHandle)
	if !ok {
		return nil, fmt.Errorf("handle is not a document-store client")
	}
	return wrapper.Client(), nil
}

// SQLHandle wraps *sql.DB to implement ClientHandle. The dialect records
// which relational flavor the pool speaks.
type SQLHandle struct {
	db      *sql.DB
	dialect string
}

// NewSQLHandle wraps an open *sql.DB.
func NewSQLHandle(db *sql.DB, dialect string) *SQLHandle {
	return &SQLHandle{db: db, dialect: dialect}
}

func (h *SQLHandle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *SQLHandle) Close() error {
	return h.db.Close()
}

func (h *SQLHandle) Provider() models.Provider {
	return models.ProviderRelational
}

// DB returns the underlying *sql.DB.
func (h *SQLHandle) DB() *sql.DB {
	return h.db
}

// Dialect returns the relational flavor of the pool.
func (h *SQLHandle) Dialect() string {
	return h.dialect
}

// GetSQLDB extracts the underlying *sql.DB and dialect from a handle.
func GetSQLDB(h ClientHandle) (*sql.DB, string, error) {
	wrapper, ok := h.(*SQLHandle)
	if !ok {
		return nil, "", fmt.Errorf("handle is not a relational-store client")
	}
	return wrapper.DB(), wrapper.Dialect(), nil
}

// ElasticHandle wraps *elasticsearch.Client to implement ClientHandle.
type ElasticHandle struct {
	client *elasticsearch.Client
}

// NewElasticHandle wraps an elasticsearch client.
func NewElasticHandle(client *elasticsearch.Client) *ElasticHandle {
	return &ElasticHandle{client: client}
}

func (h *ElasticHandle) Ping(ctx context.Context) error {
	res, err := h.client.Ping(h.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("cluster ping returned %s", res.Status())
	}
	return nil
}

// Close is a no-op: the elasticsearch client holds no persistent sockets
// beyond the shared HTTP transport.
func (h *ElasticHandle) Close() error {
	return nil
}

func (h *ElasticHandle) Provider() models.Provider {
	return models.ProviderSearch
}

// Client returns the underlying *elasticsearch.Client.
func (h *ElasticHandle) Client() *elasticsearch.Client {
	return h.client
}

// GetElasticClient extracts the underlying *elasticsearch.Client from a
// handle.
func GetElasticClient(h ClientHandle) (*elasticsearch.Client, error) {
	wrapper, ok := h.(*ElasticHandle)
	if !ok {
		return nil, fmt.Errorf("handle is not a search-engine client")
	}
	return wrapper.Client(), nil
}
