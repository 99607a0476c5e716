// Package mongodb implements the document-store provider on the official
// MongoDB driver.
package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// System databases and collection prefixes hidden from introspection.
var (
	systemDatabases = map[string]bool{
		"admin":  true,
		"config": true,
		"local":  true,
	}
	hiddenCollectionSuffixes = []string{".chunks", ".files"}
)

// Adapter implements datasource.ProviderAdapter for document stores.
type Adapter struct{}

// BuildClient opens a mongo client for the record, resolving its connection
// mode. Server selection and socket connect are bounded separately so a dead
// cluster cannot stall the connection cache.
func (Adapter) BuildClient(ctx context.Context, record *models.DatasourceRecord, opts datasource.BuildOptions) (datasource.ClientHandle, error) {
	clientOpts := options.Client().
		SetServerSelectionTimeout(opts.Timeouts.ServerSelection).
		SetConnectTimeout(opts.Timeouts.Connect)

	switch record.ConnectionMode {
	case models.ModeCloudURI:
		clientOpts.ApplyURI(record.URI)

	case models.ModePooled:
		if opts.SharedClusterURI == "" {
			return nil, fmt.Errorf("no shared document cluster configured")
		}
		clientOpts.ApplyURI(opts.SharedClusterURI)

	case models.ModeHostPort:
		clientOpts.ApplyURI(fmt.Sprintf("mongodb://%s:%d", record.Host, record.Port))
		if record.Username != "" {
			clientOpts.SetAuth(options.Credential{
				Username: record.Username,
				Password: record.Password,
			})
		}

	default:
		return nil, fmt.Errorf("unknown connection mode %q", record.ConnectionMode)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	return datasource.NewMongoHandle(client), nil
}

// ListDatabases enumerates databases, excluding the server's system
// databases.
func (Adapter) ListDatabases(ctx context.Context, h datasource.ClientHandle) ([]string, error) {
	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return nil, err
	}

	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	visible := make([]string, 0, len(names))
	for _, name := range names {
		if !systemDatabases[name] {
			visible = append(visible, name)
		}
	}
	return visible, nil
}

// ListCollections enumerates collections of a database, filtering system
// namespaces and GridFS internals.
func (Adapter) ListCollections(ctx context.Context, h datasource.ClientHandle, database string) ([]string, error) {
	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return nil, err
	}

	names, err := client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	visible := make([]string, 0, len(names))
	for _, name := range names {
		if isVisibleCollection(name) {
			visible = append(visible, name)
		}
	}
	return visible, nil
}

// isVisibleCollection filters internal artifacts out of the enumeration.
func isVisibleCollection(name string) bool {
	if strings.HasPrefix(name, "system.") {
		return false
	}
	for _, suffix := range hiddenCollectionSuffixes {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}

// CollectionStats reports advisory size data via collStats; any backend
// error yields zero-valued stats since this is UI data.
func (Adapter) CollectionStats(ctx context.Context, h datasource.ClientHandle, database, collection string) datasource.CollectionStats {
	stats := datasource.CollectionStats{Name: collection}

	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return stats
	}

	var doc struct {
		Count       int64 `bson:"count"`
		Size        int64 `bson:"size"`
		StorageSize int64 `bson:"storageSize"`
	}
	res := client.Database(database).RunCommand(ctx, bson.D{{Key: "collStats", Value: collection}})
	if err := res.Decode(&doc); err != nil {
		return stats
	}

	stats.Count = doc.Count
	stats.SizeBytes = doc.Size
	stats.StorageBytes = doc.StorageSize
	return stats
}

// Fields samples one document and returns its field names.
func (a Adapter) Fields(ctx context.Context, h datasource.ClientHandle, database, collection string) ([]string, error) {
	sample, err := a.sampleDocument(ctx, h, database, collection)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(sample))
	for name := range sample {
		fields = append(fields, name)
	}
	return fields, nil
}

// Describe derives column metadata from one sampled document. Document
// stores have no declared constraints, so only names and sampled types are
// reported.
func (a Adapter) Describe(ctx context.Context, h datasource.ClientHandle, database, collection string) (*datasource.CollectionSchema, error) {
	sample, err := a.sampleDocument(ctx, h, database, collection)
	if err != nil {
		return nil, err
	}

	schema := &datasource.CollectionSchema{}
	for name, value := range sample {
		schema.Columns = append(schema.Columns, datasource.ColumnMetadata{
			Name:       name,
			DataType:   bsonTypeName(value),
			Nullable:   true,
			PrimaryKey: name == "_id",
		})
	}
	return schema, nil
}

func (Adapter) sampleDocument(ctx context.Context, h datasource.ClientHandle, database, collection string) (bson.M, error) {
	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return nil, err
	}

	var sample bson.M
	err = client.Database(database).Collection(collection).FindOne(ctx, bson.D{}).Decode(&sample)
	if err == mongo.ErrNoDocuments {
		return bson.M{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sample document: %w", err)
	}
	return sample, nil
}

func bsonTypeName(value any) string {
	switch value.(type) {
	case bool:
		return "bool"
	case int32, int64, float64:
		return "number"
	case bson.M, bson.D:
		return "object"
	case bson.A:
		return "array"
	default:
		return "string"
	}
}

// CreateCollection creates an empty collection.
func (Adapter) CreateCollection(ctx context.Context, h datasource.ClientHandle, database, collection string) error {
	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return err
	}
	return client.Database(database).CreateCollection(ctx, collection)
}

// CreateIndex creates a compound ascending index over the given fields.
func (Adapter) CreateIndex(ctx context.Context, h datasource.ClientHandle, database, collection string, fields []string, unique bool) error {
	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return err
	}

	keys := bson.D{}
	for _, field := range fields {
		keys = append(keys, bson.E{Key: field, Value: 1})
	}

	_, err = client.Database(database).Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(unique),
	})
	return err
}

// DropCollection removes a collection and its documents.
func (Adapter) DropCollection(ctx context.Context, h datasource.ClientHandle, database, collection string) error {
	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return err
	}
	return client.Database(database).Collection(collection).Drop(ctx)
}

// DropDatabase removes an entire database. Called when a pooled record is
// deleted and its physical database goes with it.
func (Adapter) DropDatabase(ctx context.Context, h datasource.ClientHandle, database string) error {
	client, err := datasource.GetMongoClient(h)
	if err != nil {
		return err
	}
	return client.Database(database).Drop(ctx)
}

// Ensure Adapter implements ProviderAdapter at compile time.
var _ datasource.ProviderAdapter = Adapter{}
