package validation

import (
	"context"
	"strings"

	"github.com/wonny/gedash/internal/contracts"
)

// Source performs the single bulk read of the validation relation
type Source interface {
	// LoadAll returns every record with derived columns set, in the store's native order
	LoadAll(ctx context.Context) ([]contracts.ValidationRecord, error)

	// Relation names the relation being read, for logs and metrics
	Relation() string
}

// selectAll renders the bulk read. castText wraps a quoted column so the
// store returns it as text; qualified is the quoted schema.table reference.
func selectAll(quote func(string) string, castText func(string) string, qualified string) string {
	cols := make([]string, len(Columns))
	for i, c := range Columns {
		cols[i] = castText(quote(c))
	}
	return "SELECT " + strings.Join(cols, ", ") + " FROM " + qualified
}

// scanTargets returns pointers to every RawRecord field in Columns order
func (r *RawRecord) scanTargets() []any {
	return []any{
		&r.Success,
		&r.ValidationTime,
		&r.SchemaName,
		&r.TableName,
		&r.DatasourceName,
		&r.ExpectationType,
		&r.ExpectationMin,
		&r.ExpectationMax,
		&r.ObservedValue,
	}
}
