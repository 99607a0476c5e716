// Package relational implements the relational-store provider on
// database/sql with postgres, mysql, and sqlserver drivers.
package relational

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

// driverName maps a dialect to its registered database/sql driver.
func driverName(dialect string) (string, error) {
	switch dialect {
	case models.DialectPostgres:
		return "pgx", nil
	case models.DialectMySQL:
		return "mysql", nil
	case models.DialectSQLServer:
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("unknown relational dialect %q", dialect)
	}
}

// buildDSN assembles a driver DSN from host/port credentials. All
// user-provided fields are URL-escaped so special characters in passwords
// cannot break parsing.
func buildDSN(record *models.DatasourceRecord, connectTimeout time.Duration) (string, error) {
	switch record.Dialect {
	case models.DialectPostgres:
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=prefer&connect_timeout=%d",
			url.QueryEscape(record.Username),
			url.QueryEscape(record.Password),
			record.Host,
			record.Port,
			url.QueryEscape(record.LogicalDatabaseName),
			int(connectTimeout.Seconds()),
		), nil

	case models.DialectMySQL:
		cfg := mysql.NewConfig()
		cfg.User = record.Username
		cfg.Passwd = record.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", record.Host, record.Port)
		cfg.DBName = record.LogicalDatabaseName
		cfg.Timeout = connectTimeout
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil

	case models.DialectSQLServer:
		q := url.Values{}
		q.Set("database", record.LogicalDatabaseName)
		q.Set("connection timeout", fmt.Sprintf("%d", int(connectTimeout.Seconds())))
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(record.Username, record.Password),
			Host:     fmt.Sprintf("%s:%d", record.Host, record.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	default:
		return "", fmt.Errorf("unknown relational dialect %q", record.Dialect)
	}
}

// quoteIdentifier safely quotes a table or column name per dialect to
// prevent injection through identifiers.
func quoteIdentifier(dialect, name string) string {
	switch dialect {
	case models.DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case models.DialectSQLServer:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// placeholder returns the dialect's bind-parameter syntax for position n
// (1-based).
func placeholder(dialect string, n int) string {
	switch dialect {
	case models.DialectPostgres:
		return fmt.Sprintf("$%d", n)
	case models.DialectSQLServer:
		return fmt.Sprintf("@p%d", n)
	default:
		return "?"
	}
}
