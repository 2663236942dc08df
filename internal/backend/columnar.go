package backend

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pulse/internal/config"
	"pulse/internal/dialect"
	"pulse/internal/query"
)

// Columnar runs queries on ClickHouse. Parameters are sent with the query
// and bound by the server against the {name:Type} markers.
type Columnar struct {
	conn    driver.Conn
	dialect dialect.ClickHouse
}

func NewColumnar(conn driver.Conn) *Columnar {
	return &Columnar{conn: conn}
}

// OpenColumnar connects to the ClickHouse DSN in cfg and verifies the connection.
func OpenColumnar(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Columnar, error) {
	opts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid clickhouse url: %w", err)
	}
	opts.MaxOpenConns = cfg.GetMaxOpenConns()
	opts.MaxIdleConns = cfg.GetMaxIdleConns()
	opts.ConnMaxLifetime = cfg.ConnMaxLifetime()
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Error("Failed to connect to ClickHouse", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		log.Error("Failed to ping ClickHouse", slog.Any("error", err))
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Info("ClickHouse connection established", slog.Any("addr", opts.Addr))
	return NewColumnar(conn), nil
}

func (c *Columnar) Dialect() dialect.Dialect {
	return c.dialect
}

func (c *Columnar) Query(ctx context.Context, text string, params query.Params) ([]Row, error) {
	stmt, err := c.dialect.Render(text, params)
	if err != nil {
		return nil, err
	}

	if len(stmt.Named) > 0 {
		ctx = clickhouse.Context(ctx, clickhouse.WithParameters(clickhouse.Parameters(stmt.Named)))
	}

	rows, err := c.conn.Query(ctx, stmt.SQL)
	if err != nil {
		return nil, &QueryError{Backend: dialect.Columnar, Err: err}
	}
	defer rows.Close()

	columns := rows.ColumnTypes()
	result := []Row{}
	for rows.Next() {
		dest := make([]any, len(columns))
		for i, ct := range columns {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &QueryError{Backend: dialect.Columnar, Err: err}
		}

		row := make(Row, len(columns))
		for i, ct := range columns {
			row[ct.Name()] = reflect.ValueOf(dest[i]).Elem().Interface()
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Backend: dialect.Columnar, Err: err}
	}
	return result, nil
}

func (c *Columnar) Close() error {
	return c.conn.Close()
}
