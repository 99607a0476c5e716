// Package elastic implements the search-engine provider on the official
// Elasticsearch client.
package elastic

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// Adapter implements datasource.ProviderAdapter for search engines.
type Adapter struct{}

// BuildClient opens an elasticsearch client for the record, resolving its
// connection mode, and verifies the cluster with a ping bounded by the
// server-selection timeout.
func (Adapter) BuildClient(ctx context.Context, record *models.DatasourceRecord, opts datasource.BuildOptions) (datasource.ClientHandle, error) {
	var address string
	switch record.ConnectionMode {
	case models.ModeCloudURI:
		address = record.URI
	case models.ModePooled:
		if opts.SharedClusterURI == "" {
			return nil, fmt.Errorf("no shared search cluster configured")
		}
		address = opts.SharedClusterURI
	case models.ModeHostPort:
		address = fmt.Sprintf("http://%s:%d", record.Host, record.Port)
	default:
		return nil, fmt.Errorf("unknown connection mode %q", record.ConnectionMode)
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{address},
		Username:  record.Username,
		Password:  record.Password,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: opts.Timeouts.Connect}).DialContext,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}

	handle := datasource.NewElasticHandle(client)
	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeouts.ServerSelection)
	defer cancel()
	if err := handle.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	return handle, nil
}

// ListDatabases returns a single entry: a search cluster has no database
// level, its indices map directly to collections.
func (Adapter) ListDatabases(ctx context.Context, h datasource.ClientHandle) ([]string, error) {
	if _, err := datasource.GetElasticClient(h); err != nil {
		return nil, err
	}
	return []string{"default"}, nil
}

// ListCollections enumerates indices, excluding system (dot-prefixed) ones.
func (Adapter) ListCollections(ctx context.Context, h datasource.ClientHandle, database string) ([]string, error) {
	client, err := datasource.GetElasticClient(h)
	if err != nil {
		return nil, err
	}

	res, err := client.Cat.Indices(
		client.Cat.Indices.WithContext(ctx),
		client.Cat.Indices.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("cat indices: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("cat indices returned %s", res.Status())
	}

	var entries []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode cat indices: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.Index, ".") {
			names = append(names, e.Index)
		}
	}
	return names, nil
}

// CollectionStats reports document count and store size for one index.
// Any backend error yields zero-valued stats.
func (Adapter) CollectionStats(ctx context.Context, h datasource.ClientHandle, database, collection string) datasource.CollectionStats {
	stats := datasource.CollectionStats{Name: collection}

	client, err := datasource.GetElasticClient(h)
	if err != nil {
		return stats
	}

	res, err := client.Indices.Stats(
		client.Indices.Stats.WithContext(ctx),
		client.Indices.Stats.WithIndex(collection),
	)
	if err != nil {
		return stats
	}
	defer res.Body.Close()
	if res.IsError() {
		return stats
	}

	var body struct {
		Indices map[string]struct {
			Total struct {
				Docs struct {
					Count int64 `json:"count"`
				} `json:"docs"`
				Store struct {
					SizeInBytes int64 `json:"size_in_bytes"`
				} `json:"store"`
			} `json:"total"`
		} `json:"indices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return stats
	}

	if idx, ok := body.Indices[collection]; ok {
		stats.Count = idx.Total.Docs.Count
		stats.SizeBytes = idx.Total.Store.SizeInBytes
		stats.StorageBytes = idx.Total.Store.SizeInBytes
	}
	return stats
}

// Fields returns the mapped property names of an index.
func (a Adapter) Fields(ctx context.Context, h datasource.ClientHandle, database, collection string) ([]string, error) {
	properties, err := a.mappingProperties(ctx, h, collection)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(properties))
	for name := range properties {
		fields = append(fields, name)
	}
	return fields, nil
}

// Describe reports the mapped properties as columns. Search indices carry no
// key or referential constraints.
func (a Adapter) Describe(ctx context.Context, h datasource.ClientHandle, database, collection string) (*datasource.CollectionSchema, error) {
	properties, err := a.mappingProperties(ctx, h, collection)
	if err != nil {
		return nil, err
	}

	schema := &datasource.CollectionSchema{}
	for name, prop := range properties {
		schema.Columns = append(schema.Columns, datasource.ColumnMetadata{
			Name:     name,
			DataType: prop.Type,
			Nullable: true,
		})
	}
	return schema, nil
}

type mappingProperty struct {
	Type string `json:"type"`
}

func (Adapter) mappingProperties(ctx context.Context, h datasource.ClientHandle, index string) (map[string]mappingProperty, error) {
	client, err := datasource.GetElasticClient(h)
	if err != nil {
		return nil, err
	}

	res, err := client.Indices.GetMapping(
		client.Indices.GetMapping.WithContext(ctx),
		client.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("get mapping returned %s", res.Status())
	}

	var body map[string]struct {
		Mappings struct {
			Properties map[string]mappingProperty `json:"properties"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}

	if m, ok := body[index]; ok {
		return m.Mappings.Properties, nil
	}
	// Aliased indices come back under their concrete name.
	for _, m := range body {
		return m.Mappings.Properties, nil
	}
	return map[string]mappingProperty{}, nil
}

// CreateCollection creates an index.
func (Adapter) CreateCollection(ctx context.Context, h datasource.ClientHandle, database, collection string) error {
	client, err := datasource.GetElasticClient(h)
	if err != nil {
		return err
	}

	res, err := client.Indices.Create(collection, client.Indices.Create.WithContext(ctx))
	return checkResponse(res, err, "create index")
}

// CreateIndex is not applicable: every mapped field of a search index is
// already indexed.
func (Adapter) CreateIndex(ctx context.Context, h datasource.ClientHandle, database, collection string, fields []string, unique bool) error {
	return fmt.Errorf("search engine indices do not support secondary indexes")
}

// DropCollection deletes an index.
func (Adapter) DropCollection(ctx context.Context, h datasource.ClientHandle, database, collection string) error {
	client, err := datasource.GetElasticClient(h)
	if err != nil {
		return err
	}

	res, err := client.Indices.Delete([]string{collection}, client.Indices.Delete.WithContext(ctx))
	return checkResponse(res, err, "delete index")
}

// DropDatabase removes every non-system index. A pooled search datasource
// namespaces its indices, so deleting the record deletes its namespace.
func (a Adapter) DropDatabase(ctx context.Context, h datasource.ClientHandle, database string) error {
	names, err := a.ListCollections(ctx, h, database)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}

	client, err := datasource.GetElasticClient(h)
	if err != nil {
		return err
	}
	res, err := client.Indices.Delete(names, client.Indices.Delete.WithContext(ctx))
	return checkResponse(res, err, "delete indices")
}

func checkResponse(res *esapi.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%s returned %s", op, res.Status())
	}
	return nil
}

// Ensure Adapter implements ProviderAdapter at compile time.
var _ datasource.ProviderAdapter = Adapter{}
