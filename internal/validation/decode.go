package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/gedash/internal/contracts"
)

// TimeLayout parses the validation_time source format YYYYMMDDTHHMMSS.ffffffZ.
// The fraction is read with any number of digits; timeFormat enforces that it is present.
const TimeLayout = "20060102T150405.999999999Z"

var timeFormat = regexp.MustCompile(`^\d{8}T\d{6}\.\d{1,9}Z$`)

var (
	ErrTimeFormat = errors.New("expected YYYYMMDDTHHMMSS.ffffffZ")
	ErrNullValue  = errors.New("unexpected NULL")
	ErrBoolFormat = errors.New("expected a boolean")
)

// Source column names, as written by the normalized validations store
const (
	ColSuccess         = "success"
	ColValidationTime  = "meta.validation_time"
	ColSchemaName      = "meta.batch_spec.schema_name"
	ColTableName       = "meta.batch_spec.table_name"
	ColDatasourceName  = "meta.active_batch_definition.datasource_name"
	ColExpectationType = "expectation_config.expectation_type"
	ColExpectationMin  = "expectation_config.kwargs.min_value"
	ColExpectationMax  = "expectation_config.kwargs.max_value"
	ColObservedValue   = "result.observed_value"
)

// Columns is the select list, in RawRecord field order
var Columns = []string{
	ColSuccess,
	ColValidationTime,
	ColSchemaName,
	ColTableName,
	ColDatasourceName,
	ColExpectationType,
	ColExpectationMin,
	ColExpectationMax,
	ColObservedValue,
}

// RawRecord is one row as read from the store, every column as nullable text
type RawRecord struct {
	Success         *string
	ValidationTime  *string
	SchemaName      *string
	TableName       *string
	DatasourceName  *string
	ExpectationType *string
	ExpectationMin  *string
	ExpectationMax  *string
	ObservedValue   *string
}

// Decode turns a raw row into a ValidationRecord with every derived column set.
// row is only used for error reporting.
func Decode(raw RawRecord, row int) (contracts.ValidationRecord, error) {
	var rec contracts.ValidationRecord

	if raw.Success == nil {
		return rec, &DataFormatError{Column: ColSuccess, Row: row, Err: ErrNullValue}
	}
	success, err := parseBool(*raw.Success)
	if err != nil {
		return rec, &DataFormatError{Column: ColSuccess, Value: *raw.Success, Row: row, Err: err}
	}

	if raw.ValidationTime == nil {
		return rec, &DataFormatError{Column: ColValidationTime, Row: row, Err: ErrNullValue}
	}
	ts, err := ParseValidationTime(*raw.ValidationTime)
	if err != nil {
		return rec, &DataFormatError{Column: ColValidationTime, Value: *raw.ValidationTime, Row: row, Err: err}
	}

	rec = contracts.ValidationRecord{
		Success:         success,
		SchemaName:      text(raw.SchemaName),
		TableName:       text(raw.TableName),
		DatasourceName:  text(raw.DatasourceName),
		ExpectationType: text(raw.ExpectationType),
		ExpectationMin:  number(raw.ExpectationMin),
		ExpectationMax:  number(raw.ExpectationMax),
		ObservedValue:   number(raw.ObservedValue),
	}
	SetTime(&rec, ts)
	rec.SchemaTableName = SchemaTableName(rec.SchemaName, rec.TableName)

	return rec, nil
}

// ParseValidationTime parses the fixed source timestamp format as UTC
func ParseValidationTime(s string) (time.Time, error) {
	if !timeFormat.MatchString(s) {
		return time.Time{}, ErrTimeFormat
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTimeFormat, err)
	}
	return t.UTC(), nil
}

// SetTime sets ValidationTime and the two columns derived from it
func SetTime(rec *contracts.ValidationRecord, t time.Time) {
	rec.ValidationTime = t
	rec.ValidationDate = DateOf(t)
	rec.ValidationYearMonth = YearMonthOf(t)
}

// DateOf truncates t to its UTC calendar day
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// YearMonthOf returns the first day of t's UTC month
func YearMonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// SchemaTableName builds the schema.table grouping key
func SchemaTableName(schema, table string) string {
	return schema + "." + table
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1":
		return true, nil
	case "false", "f", "0":
		return false, nil
	}
	return false, ErrBoolFormat
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// number returns nil for NULL and for values that are not numeric;
// some expectation types store lists or strings as their observed value.
func number(s *string) *float64 {
	if s == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return nil
	}
	return &v
}
