package validation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/gedash/internal/contracts"
)

// PostgreSQL error codes that mean the relation does not have the expected shape
var pgFormatCodes = map[string]bool{
	"42703": true, // undefined_column
	"42P01": true, // undefined_table
	"3F000": true, // invalid_schema_name
}

// Repository reads validation records from PostgreSQL
// ⭐ SSOT: the one query against the validations relation
type Repository struct {
	pool   *pgxpool.Pool
	schema string
	table  string
}

// NewRepository creates a PostgreSQL validation repository for schema.table
func NewRepository(pool *pgxpool.Pool, schema, table string) *Repository {
	return &Repository{pool: pool, schema: schema, table: table}
}

// Relation returns the qualified relation name
func (r *Repository) Relation() string {
	return r.schema + "." + r.table
}

// Query returns the SQL used by LoadAll
func (r *Repository) Query() string {
	return selectAll(
		func(col string) string { return pgx.Identifier{col}.Sanitize() },
		func(col string) string { return col + "::text" },
		pgx.Identifier{r.schema, r.table}.Sanitize(),
	)
}

// LoadAll reads and decodes the whole relation
func (r *Repository) LoadAll(ctx context.Context) ([]contracts.ValidationRecord, error) {
	rows, err := r.pool.Query(ctx, r.Query())
	if err != nil {
		return nil, classifyPgError("query", err)
	}
	defer rows.Close()

	var records []contracts.ValidationRecord
	for rows.Next() {
		var raw RawRecord
		if err := rows.Scan(raw.scanTargets()...); err != nil {
			return nil, classifyPgError("scan", err)
		}

		rec, err := Decode(raw, len(records))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError("read", err)
	}

	return records, nil
}

// classifyPgError maps a driver error onto the loader error taxonomy
func classifyPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgFormatCodes[pgErr.Code] {
		return &DataFormatError{Column: pgErr.ColumnName, Row: -1, Err: err}
	}
	return &ConnectionError{Op: op, Err: err}
}
