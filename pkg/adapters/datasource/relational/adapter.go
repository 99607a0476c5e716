package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
)

// Adapter implements datasource.ProviderAdapter for relational stores.
type Adapter struct{}

// BuildClient opens a database/sql pool for the record, resolving its
// connection mode, and verifies it with a ping bounded by the
// server-selection timeout.
func (Adapter) BuildClient(ctx context.Context, record *models.DatasourceRecord, opts datasource.BuildOptions) (datasource.ClientHandle, error) {
	driver, err := driverName(record.Dialect)
	if err != nil {
		return nil, err
	}

	var dsn string
	switch record.ConnectionMode {
	case models.ModeCloudURI:
		dsn = record.URI

	case models.ModePooled:
		if opts.SharedClusterURI == "" {
			return nil, fmt.Errorf("no shared relational cluster configured")
		}
		dsn = opts.SharedClusterURI

	case models.ModeHostPort:
		dsn, err = buildDSN(record, opts.Timeouts.Connect)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown connection mode %q", record.ConnectionMode)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeouts.ServerSelection)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return datasource.NewSQLHandle(db, record.Dialect), nil
}

// ListDatabases enumerates databases/catalogs visible to the connection,
// excluding system ones.
func (Adapter) ListDatabases(ctx context.Context, h datasource.ClientHandle) ([]string, error) {
	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return nil, err
	}

	var q string
	switch dialect {
	case models.DialectPostgres:
		q = `SELECT datname FROM pg_database WHERE datistemplate = false AND datname <> 'postgres' ORDER BY datname`
	case models.DialectMySQL:
		q = `SELECT schema_name FROM information_schema.schemata
		     WHERE schema_name NOT IN ('information_schema','mysql','performance_schema','sys')
		     ORDER BY schema_name`
	case models.DialectSQLServer:
		q = `SELECT name FROM sys.databases WHERE database_id > 4 ORDER BY name`
	default:
		return nil, fmt.Errorf("unknown relational dialect %q", dialect)
	}

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan database name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListCollections enumerates base tables of the database, excluding system
// schemas.
func (Adapter) ListCollections(ctx context.Context, h datasource.ClientHandle, database string) ([]string, error) {
	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return nil, err
	}

	var rows *sql.Rows
	switch dialect {
	case models.DialectPostgres:
		rows, err = db.QueryContext(ctx, `
			SELECT table_name FROM information_schema.tables
			WHERE table_type = 'BASE TABLE'
			  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
			ORDER BY table_name`)
	case models.DialectMySQL:
		rows, err = db.QueryContext(ctx, `
			SELECT table_name FROM information_schema.tables
			WHERE table_type = 'BASE TABLE' AND table_schema = ?
			ORDER BY table_name`, database)
	case models.DialectSQLServer:
		rows, err = db.QueryContext(ctx, `
			SELECT table_name FROM information_schema.tables
			WHERE table_type = 'BASE TABLE' AND table_catalog = @p1
			ORDER BY table_name`, database)
	default:
		return nil, fmt.Errorf("unknown relational dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CollectionStats returns the row count and, where the dialect reports it
// cheaply, on-disk size. Any backend error yields zero-valued stats.
func (Adapter) CollectionStats(ctx context.Context, h datasource.ClientHandle, database, collection string) datasource.CollectionStats {
	stats := datasource.CollectionStats{Name: collection}

	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return stats
	}

	quoted := quoteIdentifier(dialect, collection)
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&stats.Count); err != nil {
		return datasource.CollectionStats{Name: collection}
	}

	switch dialect {
	case models.DialectPostgres:
		var size int64
		if err := db.QueryRowContext(ctx, `SELECT pg_total_relation_size($1)`, collection).Scan(&size); err == nil {
			stats.StorageBytes = size
			stats.SizeBytes = size
		}
	case models.DialectMySQL:
		var size sql.NullInt64
		err := db.QueryRowContext(ctx, `
			SELECT data_length + index_length FROM information_schema.tables
			WHERE table_schema = ? AND table_name = ?`, database, collection).Scan(&size)
		if err == nil && size.Valid {
			stats.StorageBytes = size.Int64
			stats.SizeBytes = size.Int64
		}
	}

	return stats
}

// Fields returns the column names of a table.
func (a Adapter) Fields(ctx context.Context, h datasource.ClientHandle, database, collection string) ([]string, error) {
	schema, err := a.Describe(ctx, h, database, collection)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		fields = append(fields, col.Name)
	}
	return fields, nil
}

// CreateCollection creates a minimal table with a surrogate primary key,
// matching what a freshly declared collection needs before documents are
// imported into it.
func (Adapter) CreateCollection(ctx context.Context, h datasource.ClientHandle, database, collection string) error {
	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return err
	}

	quoted := quoteIdentifier(dialect, collection)
	var ddl string
	switch dialect {
	case models.DialectPostgres:
		ddl = fmt.Sprintf("CREATE TABLE %s (id BIGSERIAL PRIMARY KEY)", quoted)
	case models.DialectMySQL:
		ddl = fmt.Sprintf("CREATE TABLE %s (id BIGINT AUTO_INCREMENT PRIMARY KEY)", quoted)
	case models.DialectSQLServer:
		ddl = fmt.Sprintf("CREATE TABLE %s (id BIGINT IDENTITY(1,1) PRIMARY KEY)", quoted)
	default:
		return fmt.Errorf("unknown relational dialect %q", dialect)
	}

	_, err = db.ExecContext(ctx, ddl)
	return err
}

// CreateIndex creates a named index over the given columns.
func (Adapter) CreateIndex(ctx context.Context, h datasource.ClientHandle, database, collection string, fields []string, unique bool) error {
	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return err
	}

	quotedCols := make([]string, 0, len(fields))
	for _, f := range fields {
		quotedCols = append(quotedCols, quoteIdentifier(dialect, f))
	}

	indexName := quoteIdentifier(dialect, fmt.Sprintf("idx_%s_%s", collection, strings.Join(fields, "_")))
	keyword := "INDEX"
	if unique {
		keyword = "UNIQUE INDEX"
	}

	ddl := fmt.Sprintf("CREATE %s %s ON %s (%s)",
		keyword, indexName, quoteIdentifier(dialect, collection), strings.Join(quotedCols, ", "))
	_, err = db.ExecContext(ctx, ddl)
	return err
}

// DropCollection drops the table.
func (Adapter) DropCollection(ctx context.Context, h datasource.ClientHandle, database, collection string) error {
	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, "DROP TABLE "+quoteIdentifier(dialect, collection))
	return err
}

// DropDatabase drops an entire database. Used when a pooled record is
// deleted.
func (Adapter) DropDatabase(ctx context.Context, h datasource.ClientHandle, database string) error {
	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, "DROP DATABASE "+quoteIdentifier(dialect, database))
	return err
}

// Ensure Adapter implements ProviderAdapter at compile time.
var _ datasource.ProviderAdapter = Adapter{}
