package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// Describe introspects the full table shape: columns with primary-key,
// nullable, and auto-increment flags, named indexes, and foreign keys with
// their referential actions.
func (a Adapter) Describe(ctx context.Context, h datasource.ClientHandle, database, collection string) (*datasource.CollectionSchema, error) {
	db, dialect, err := datasource.GetSQLDB(h)
	if err != nil {
		return nil, err
	}

	columns, err := discoverColumns(ctx, db, dialect, database, collection)
	if err != nil {
		return nil, err
	}

	pks, err := discoverPrimaryKeys(ctx, db, dialect, database, collection)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		if pks[columns[i].Name] {
			columns[i].PrimaryKey = true
		}
	}

	indexes, err := discoverIndexes(ctx, db, dialect, database, collection)
	if err != nil {
		return nil, err
	}

	fks, err := discoverForeignKeys(ctx, db, dialect, database, collection)
	if err != nil {
		return nil, err
	}

	return &datasource.CollectionSchema{
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: fks,
	}, nil
}

func discoverColumns(ctx context.Context, db *sql.DB, dialect, database, table string) ([]datasource.ColumnMetadata, error) {
	var rows *sql.Rows
	var err error

	switch dialect {
	case models.DialectPostgres:
		rows, err = db.QueryContext(ctx, `
			SELECT column_name,
			       data_type,
			       is_nullable = 'YES',
			       COALESCE(column_default, '') LIKE 'nextval(%' OR is_identity = 'YES'
			FROM information_schema.columns
			WHERE table_name = $1
			  AND table_schema NOT IN ('pg_catalog', 'information_schema')
			ORDER BY ordinal_position`, table)
	case models.DialectMySQL:
		rows, err = db.QueryContext(ctx, `
			SELECT column_name,
			       data_type,
			       is_nullable = 'YES',
			       extra LIKE '%auto_increment%'
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`, database, table)
	case models.DialectSQLServer:
		rows, err = db.QueryContext(ctx, `
			SELECT column_name,
			       data_type,
			       CASE WHEN is_nullable = 'YES' THEN 1 ELSE 0 END,
			       COALESCE(COLUMNPROPERTY(OBJECT_ID(table_name), column_name, 'IsIdentity'), 0)
			FROM information_schema.columns
			WHERE table_name = @p1
			ORDER BY ordinal_position`, table)
	default:
		return nil, fmt.Errorf("unknown relational dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var c datasource.ColumnMetadata
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.AutoIncrement); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func discoverPrimaryKeys(ctx context.Context, db *sql.DB, dialect, database, table string) (map[string]bool, error) {
	const base = `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = `

	var rows *sql.Rows
	var err error
	switch dialect {
	case models.DialectPostgres:
		rows, err = db.QueryContext(ctx, base+"$1", table)
	case models.DialectMySQL:
		rows, err = db.QueryContext(ctx, base+"? AND tc.table_schema = ?", table, database)
	case models.DialectSQLServer:
		rows, err = db.QueryContext(ctx, base+"@p1", table)
	default:
		return nil, fmt.Errorf("unknown relational dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("query primary keys: %w", err)
	}
	defer rows.Close()

	pks := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan primary key: %w", err)
		}
		pks[name] = true
	}
	return pks, rows.Err()
}

func discoverIndexes(ctx context.Context, db *sql.DB, dialect, database, table string) ([]datasource.IndexMetadata, error) {
	type row struct {
		name   string
		column string
		unique bool
	}

	var rows *sql.Rows
	var err error
	switch dialect {
	case models.DialectPostgres:
		rows, err = db.QueryContext(ctx, `
			SELECT i.relname, a.attname, ix.indisunique
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_class i ON i.oid = ix.indexrelid
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE t.relname = $1 AND ix.indisprimary = false
			ORDER BY i.relname, a.attnum`, table)
	case models.DialectMySQL:
		rows, err = db.QueryContext(ctx, `
			SELECT index_name, column_name, non_unique = 0
			FROM information_schema.statistics
			WHERE table_schema = ? AND table_name = ? AND index_name <> 'PRIMARY'
			ORDER BY index_name, seq_in_index`, database, table)
	case models.DialectSQLServer:
		rows, err = db.QueryContext(ctx, `
			SELECT i.name, c.name, i.is_unique
			FROM sys.indexes i
			JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
			JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
			WHERE i.object_id = OBJECT_ID(@p1) AND i.is_primary_key = 0 AND i.name IS NOT NULL
			ORDER BY i.name, ic.key_ordinal`, table)
	default:
		return nil, fmt.Errorf("unknown relational dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("query indexes: %w", err)
	}
	defer rows.Close()

	// Group per-column rows into per-index metadata, preserving first-seen
	// index order.
	byName := make(map[string]*datasource.IndexMetadata)
	var order []string
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.name, &r.column, &r.unique); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		idx, ok := byName[r.name]
		if !ok {
			idx = &datasource.IndexMetadata{Name: r.name, Unique: r.unique}
			byName[r.name] = idx
			order = append(order, r.name)
		}
		idx.Columns = append(idx.Columns, r.column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]datasource.IndexMetadata, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *byName[name])
	}
	return indexes, nil
}

func discoverForeignKeys(ctx context.Context, db *sql.DB, dialect, database, table string) ([]datasource.ForeignKeyMetadata, error) {
	var rows *sql.Rows
	var err error
	switch dialect {
	case models.DialectMySQL:
		rows, err = db.QueryContext(ctx, `
			SELECT kcu.constraint_name, kcu.column_name,
			       kcu.referenced_table_name, kcu.referenced_column_name,
			       rc.update_rule, rc.delete_rule
			FROM information_schema.key_column_usage kcu
			JOIN information_schema.referential_constraints rc
			  ON rc.constraint_name = kcu.constraint_name
			 AND rc.constraint_schema = kcu.constraint_schema
			WHERE kcu.table_schema = ? AND kcu.table_name = ?
			  AND kcu.referenced_table_name IS NOT NULL`, database, table)
	case models.DialectPostgres, models.DialectSQLServer:
		q := `
			SELECT tc.constraint_name, kcu.column_name,
			       ccu.table_name, ccu.column_name,
			       rc.update_rule, rc.delete_rule
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			JOIN information_schema.constraint_column_usage ccu
			  ON tc.constraint_name = ccu.constraint_name
			JOIN information_schema.referential_constraints rc
			  ON tc.constraint_name = rc.constraint_name
			WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = `
		if dialect == models.DialectPostgres {
			rows, err = db.QueryContext(ctx, q+"$1", table)
		} else {
			rows, err = db.QueryContext(ctx, q+"@p1", table)
		}
	default:
		return nil, fmt.Errorf("unknown relational dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []datasource.ForeignKeyMetadata
	for rows.Next() {
		var fk datasource.ForeignKeyMetadata
		var updateRule, deleteRule string
		if err := rows.Scan(&fk.ConstraintName, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &updateRule, &deleteRule); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fk.OnUpdate = mapReferentialAction(updateRule)
		fk.OnDelete = mapReferentialAction(deleteRule)
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// mapReferentialAction maps an information_schema rule string to its
// symbolic action. Unknown rules default to NO_ACTION.
func mapReferentialAction(rule string) datasource.ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
	case "CASCADE":
		return datasource.ActionCascade
	case "RESTRICT":
		return datasource.ActionRestrict
	case "SET NULL":
		return datasource.ActionSetNull
	default:
		return datasource.ActionNoAction
	}
}
