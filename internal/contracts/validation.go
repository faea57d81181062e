package contracts

import "time"

// ValidationRecord is one expectation check result written by the validation framework
// ⭐ SSOT: loader → views record shape
type ValidationRecord struct {
	Success             bool      `json:"success"`
	ValidationTime      time.Time `json:"validation_time"`
	ValidationDate      time.Time `json:"validation_date"`      // UTC midnight of ValidationTime
	ValidationYearMonth time.Time `json:"validation_yearmonth"` // UTC first of month of ValidationTime
	SchemaName          string    `json:"schema_name"`
	TableName           string    `json:"table_name"`
	SchemaTableName     string    `json:"schema_table_name"` // SchemaName + "." + TableName
	DatasourceName      string    `json:"datasource_name"`
	ExpectationType     string    `json:"expectation_type"`
	ExpectationMin      *float64  `json:"expectation_min"`
	ExpectationMax      *float64  `json:"expectation_max"`
	ObservedValue       *float64  `json:"observed_value"`
}

// Failed reports whether the check did not pass
func (r *ValidationRecord) Failed() bool {
	return !r.Success
}
