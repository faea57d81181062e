package contracts

import "time"

// DailySuccessRate is one row of the daily success-rate view
type DailySuccessRate struct {
	Date              time.Time `json:"date"`
	Successes         int       `json:"successes"`
	Failures          int       `json:"failures"`
	SuccessPercentual float64   `json:"success_percentual"` // 0.0 ~ 1.0
}

// FailingTable is one ranked row of the top-N failing view
type FailingTable struct {
	SchemaTableName string `json:"schema_table_name"`
	FailureCount    int    `json:"failure_count"`
}

// MonthlyFailureMatrix holds failure counts by month (rows) and table (columns).
// Counts[i][j] is the number of failures of Tables[j] during Months[i].
type MonthlyFailureMatrix struct {
	Months []time.Time `json:"months"`
	Tables []string    `json:"tables"`
	Counts [][]int     `json:"counts"`
}

// Series returns the per-month counts of one table column, or nil if the table is not a column
func (m *MonthlyFailureMatrix) Series(table string) []int {
	for j, name := range m.Tables {
		if name != table {
			continue
		}
		out := make([]int, len(m.Months))
		for i := range m.Months {
			out[i] = m.Counts[i][j]
		}
		return out
	}
	return nil
}

// TopFailing bundles the ranking with its monthly breakdown
type TopFailing struct {
	Ranking []FailingTable       `json:"ranking"`
	Monthly MonthlyFailureMatrix `json:"monthly"`
}

// RecordFilter selects raw records for the ad-hoc view.
//
// Table takes precedence over Schema when both are set. A nil DateMin/DateMax
// falls back to the observed span. A nil Success means both outcomes, a
// non-nil empty Success matches nothing.
type RecordFilter struct {
	Schema  string     `json:"schema,omitempty"`
	Table   string     `json:"table,omitempty"`
	DateMin *time.Time `json:"date_min,omitempty"`
	DateMax *time.Time `json:"date_max,omitempty"`
	Success []bool     `json:"success,omitempty"`
}

// FilterOptions lists what the selection controls can offer
type FilterOptions struct {
	Schemas []string  `json:"schemas"`
	Tables  []string  `json:"tables"`
	DateMin time.Time `json:"date_min"`
	DateMax time.Time `json:"date_max"`
	Success []bool    `json:"success"`
}
