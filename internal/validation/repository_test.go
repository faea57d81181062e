package validation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryQuery(t *testing.T) {
	repo := NewRepository(nil, "great_expectations", "ge_validations_store_normalized")

	assert.Equal(t, "great_expectations.ge_validations_store_normalized", repo.Relation())
	assert.Equal(t,
		`SELECT "success"::text, "meta.validation_time"::text, "meta.batch_spec.schema_name"::text, `+
			`"meta.batch_spec.table_name"::text, "meta.active_batch_definition.datasource_name"::text, `+
			`"expectation_config.expectation_type"::text, "expectation_config.kwargs.min_value"::text, `+
			`"expectation_config.kwargs.max_value"::text, "result.observed_value"::text `+
			`FROM "great_expectations"."ge_validations_store_normalized"`,
		repo.Query())
}

func TestMySQLRepositoryQuery(t *testing.T) {
	repo := NewMySQLRepository(nil, "ge", "weird`name")

	q := repo.Query()
	assert.Contains(t, q, "SELECT CAST(`success` AS CHAR), CAST(`meta.validation_time` AS CHAR)")
	assert.Contains(t, q, "FROM `ge`.`weird``name`")
}

func TestClassifyPgError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantFormat bool
	}{
		{"undefined column", &pgconn.PgError{Code: "42703", Message: `column "success" does not exist`}, true},
		{"undefined table", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "42P01"}), true},
		{"invalid schema", &pgconn.PgError{Code: "3F000"}, true},
		{"bad password", &pgconn.PgError{Code: "28P01"}, false},
		{"network", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyPgError("query", tt.err)

			var dfe *DataFormatError
			var ce *ConnectionError
			if tt.wantFormat {
				assert.True(t, errors.As(err, &dfe))
				assert.Equal(t, -1, dfe.Row)
			} else {
				require.True(t, errors.As(err, &ce))
				assert.Equal(t, "query", ce.Op)
			}
			assert.True(t, errors.Is(err, tt.err) || errors.Unwrap(err) == tt.err)
		})
	}
}

func TestClassifyMySQLError(t *testing.T) {
	var dfe *DataFormatError
	assert.True(t, errors.As(classifyMySQLError("query", &mysql.MySQLError{Number: 1054}), &dfe))
	assert.True(t, errors.As(classifyMySQLError("query", &mysql.MySQLError{Number: 1146}), &dfe))

	var ce *ConnectionError
	assert.True(t, errors.As(classifyMySQLError("query", &mysql.MySQLError{Number: 1045}), &ce))
	assert.True(t, errors.As(classifyMySQLError("read", errors.New("broken pipe")), &ce))
}

func TestRepositoryLoadAll_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	schema := fmt.Sprintf("gedash_test_%d", time.Now().UnixNano())
	_, err = pool.Exec(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	defer func() { _, _ = pool.Exec(context.Background(), `DROP SCHEMA `+schema+` CASCADE`) }()

	_, err = pool.Exec(ctx, `CREATE TABLE `+schema+`.results (
		"success" boolean,
		"meta.validation_time" text,
		"meta.batch_spec.schema_name" text,
		"meta.batch_spec.table_name" text,
		"meta.active_batch_definition.datasource_name" text,
		"expectation_config.expectation_type" text,
		"expectation_config.kwargs.min_value" double precision,
		"expectation_config.kwargs.max_value" double precision,
		"result.observed_value" text
	)`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO `+schema+`.results VALUES
		(true, '20240101T100000.000000Z', 'a', 'x', 'dw', 'expect_table_row_count_to_be_between', 1, 10, '5'),
		(false, '20240102T100000.000000Z', 'a', 'y', 'dw', 'expect_column_values_to_not_be_null', NULL, NULL, NULL)`)
	require.NoError(t, err)

	records, err := NewRepository(pool, schema, "results").LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a.x", records[0].SchemaTableName)
	assert.Equal(t, 10.0, *records[0].ExpectationMax)
	assert.False(t, records[1].Success)

	_, err = NewRepository(pool, schema, "missing").LoadAll(ctx)
	var dfe *DataFormatError
	assert.True(t, errors.As(err, &dfe), "got %v", err)
}
