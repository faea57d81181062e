package validation

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/wonny/gedash/internal/contracts"
)

// MySQL error numbers that mean the relation does not have the expected shape
var mysqlFormatCodes = map[uint16]bool{
	1054: true, // ER_BAD_FIELD_ERROR
	1146: true, // ER_NO_SUCH_TABLE
}

// MySQLRepository reads validation records from MySQL, where schema means database
type MySQLRepository struct {
	db     *sql.DB
	schema string
	table  string
}

// NewMySQLRepository creates a MySQL validation repository for schema.table
func NewMySQLRepository(db *sql.DB, schema, table string) *MySQLRepository {
	return &MySQLRepository{db: db, schema: schema, table: table}
}

// Relation returns the qualified relation name
func (r *MySQLRepository) Relation() string {
	return r.schema + "." + r.table
}

// Query returns the SQL used by LoadAll
func (r *MySQLRepository) Query() string {
	return selectAll(
		quoteMySQL,
		func(col string) string { return "CAST(" + col + " AS CHAR)" },
		quoteMySQL(r.schema)+"."+quoteMySQL(r.table),
	)
}

// LoadAll reads and decodes the whole relation
func (r *MySQLRepository) LoadAll(ctx context.Context) ([]contracts.ValidationRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.Query())
	if err != nil {
		return nil, classifyMySQLError("query", err)
	}
	defer rows.Close()

	var records []contracts.ValidationRecord
	for rows.Next() {
		ns := make([]sql.NullString, len(Columns))
		targets := make([]any, len(ns))
		for i := range ns {
			targets[i] = &ns[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, classifyMySQLError("scan", err)
		}

		var raw RawRecord
		for i, t := range raw.scanTargets() {
			if ns[i].Valid {
				v := ns[i].String
				*(t.(**string)) = &v
			}
		}

		rec, err := Decode(raw, len(records))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyMySQLError("read", err)
	}

	return records, nil
}

func quoteMySQL(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func classifyMySQLError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && mysqlFormatCodes[myErr.Number] {
		return &DataFormatError{Row: -1, Err: err}
	}
	return &ConnectionError{Op: op, Err: err}
}
