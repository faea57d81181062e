package dashboard

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/gedash/internal/contracts"
)

//go:embed layout.yaml
var defaultLayout []byte

// Column formats
const (
	FormatText     = ""
	FormatDate     = "date"
	FormatDateTime = "datetime"
	FormatMonth    = "month"
	FormatInt      = "int"
	FormatPercent  = "percent"
)

// Record fields a column may reference
const (
	FieldSuccess             = "success"
	FieldValidationTime      = "validation_time"
	FieldValidationDate      = "validation_date"
	FieldValidationYearMonth = "validation_yearmonth"
	FieldSchemaName          = "schema_name"
	FieldTableName           = "table_name"
	FieldSchemaTableName     = "schema_table_name"
	FieldDatasourceName      = "datasource_name"
	FieldExpectationType     = "expectation_type"
	FieldExpectationMin      = "expectation_min"
	FieldExpectationMax      = "expectation_max"
	FieldObservedValue       = "observed_value"
)

var recordFields = map[string]bool{
	FieldSuccess:             true,
	FieldValidationTime:      true,
	FieldValidationDate:      true,
	FieldValidationYearMonth: true,
	FieldSchemaName:          true,
	FieldTableName:           true,
	FieldSchemaTableName:     true,
	FieldDatasourceName:      true,
	FieldExpectationType:     true,
	FieldExpectationMin:      true,
	FieldExpectationMax:      true,
	FieldObservedValue:       true,
}

// Column is one displayed column of a table view
type Column struct {
	Field  string `yaml:"field"`
	Label  string `yaml:"label"`
	Format string `yaml:"format,omitempty"`
}

// Section is the heading and columns of one view
type Section struct {
	Heading string   `yaml:"heading"`
	Columns []Column `yaml:"columns"`
}

// Labels returns the column labels in order
func (s Section) Labels() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Label
	}
	return out
}

// HeadingFor substitutes {n} with the ranking size
func (s Section) HeadingFor(n int) string {
	return strings.ReplaceAll(s.Heading, "{n}", strconv.Itoa(n))
}

// Layout describes how the dashboard presents each view
// ⭐ SSOT: headings, column order and labels
type Layout struct {
	Title          string  `yaml:"title"`
	LatestFailures Section `yaml:"latest_failures"`
	DailySuccess   Section `yaml:"daily_success"`
	TopFailing     Section `yaml:"top_failing"`
	Monthly        Section `yaml:"monthly"`
	Records        Section `yaml:"records"`
}

// DefaultLayout returns the embedded layout
func DefaultLayout() (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(defaultLayout, &l); err != nil {
		return nil, fmt.Errorf("parse embedded layout: %w", err)
	}
	return &l, nil
}

// LoadLayout reads a layout file over the embedded defaults.
// Sections missing from the file keep their defaults. An empty path
// returns the defaults.
func LoadLayout(path string) (*Layout, error) {
	l, err := DefaultLayout()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

func (l *Layout) validate() error {
	for name, s := range map[string]Section{
		"latest_failures": l.LatestFailures,
		"records":         l.Records,
	} {
		if len(s.Columns) == 0 {
			return fmt.Errorf("%s: at least one column is required", name)
		}
		for _, c := range s.Columns {
			if !recordFields[c.Field] {
				return fmt.Errorf("%s: unknown field %q", name, c.Field)
			}
		}
	}
	return nil
}

// RecordCell formats one field of a record for display
func RecordCell(rec contracts.ValidationRecord, c Column) string {
	switch c.Field {
	case FieldSuccess:
		return strconv.FormatBool(rec.Success)
	case FieldValidationTime:
		return formatTime(rec.ValidationTime, c.Format, FormatDateTime)
	case FieldValidationDate:
		return formatTime(rec.ValidationDate, c.Format, FormatDate)
	case FieldValidationYearMonth:
		return formatTime(rec.ValidationYearMonth, c.Format, FormatMonth)
	case FieldSchemaName:
		return rec.SchemaName
	case FieldTableName:
		return rec.TableName
	case FieldSchemaTableName:
		return rec.SchemaTableName
	case FieldDatasourceName:
		return rec.DatasourceName
	case FieldExpectationType:
		return rec.ExpectationType
	case FieldExpectationMin:
		return formatNumber(rec.ExpectationMin, c.Format)
	case FieldExpectationMax:
		return formatNumber(rec.ExpectationMax, c.Format)
	case FieldObservedValue:
		return formatNumber(rec.ObservedValue, c.Format)
	default:
		return ""
	}
}

// RecordRow formats a record with the section's columns
func (s Section) RecordRow(rec contracts.ValidationRecord) []string {
	row := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		row[i] = RecordCell(rec, c)
	}
	return row
}

// DailyRow formats one day of the success-rate view
func (s Section) DailyRow(d contracts.DailySuccessRate) []string {
	row := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		switch c.Field {
		case FieldValidationDate:
			row[i] = formatTime(d.Date, c.Format, FormatDate)
		case "successes":
			row[i] = strconv.Itoa(d.Successes)
		case "failures":
			row[i] = strconv.Itoa(d.Failures)
		case "success_percentual":
			row[i] = formatRate(d.SuccessPercentual, c.Format)
		}
	}
	return row
}

// RankingRow formats one entry of the top-N ranking
func (s Section) RankingRow(f contracts.FailingTable) []string {
	row := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		switch c.Field {
		case FieldSchemaTableName:
			row[i] = f.SchemaTableName
		case "failure_count":
			row[i] = strconv.Itoa(f.FailureCount)
		}
	}
	return row
}

// MonthlyHeader returns the month column label followed by the ranked names
func (s Section) MonthlyHeader(m contracts.MonthlyFailureMatrix) []string {
	label := "Month"
	if len(s.Columns) > 0 {
		label = s.Columns[0].Label
	}
	return append([]string{label}, m.Tables...)
}

// MonthlyRows formats the matrix one month per row
func (s Section) MonthlyRows(m contracts.MonthlyFailureMatrix) [][]string {
	format := FormatMonth
	if len(s.Columns) > 0 && s.Columns[0].Format != "" {
		format = s.Columns[0].Format
	}

	rows := make([][]string, len(m.Months))
	for i, month := range m.Months {
		row := make([]string, 0, len(m.Tables)+1)
		row = append(row, formatTime(month, format, FormatMonth))
		for _, c := range m.Counts[i] {
			row = append(row, strconv.Itoa(c))
		}
		rows[i] = row
	}
	return rows
}

func formatTime(t time.Time, format, fallback string) string {
	if format == FormatText {
		format = fallback
	}
	switch format {
	case FormatDate:
		return t.UTC().Format("02/01/2006")
	case FormatMonth:
		return t.UTC().Format("Jan 2006")
	default:
		return t.UTC().Format("02/01/2006 15:04:05")
	}
}

func formatNumber(v *float64, format string) string {
	if v == nil {
		return ""
	}
	if format == FormatInt {
		return strconv.FormatFloat(math.Round(*v), 'f', 0, 64)
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatRate(v float64, format string) string {
	if format == FormatPercent {
		return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
