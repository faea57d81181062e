package dashboard

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/gedash/internal/contracts"
)

// Report prints views as terminal tables
type Report struct {
	layout *Layout
	w      io.Writer
}

// NewReport creates a report writer
func NewReport(layout *Layout, w io.Writer) *Report {
	return &Report{layout: layout, w: w}
}

// LatestFailures prints the latest-failure view
func (r *Report) LatestFailures(records []contracts.ValidationRecord) {
	s := r.layout.LatestFailures
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = s.RecordRow(rec)
	}
	r.table(s.Heading, s.Labels(), rows)
}

// DailySuccess prints the daily success-rate view
func (r *Report) DailySuccess(days []contracts.DailySuccessRate) {
	s := r.layout.DailySuccess
	rows := make([][]string, len(days))
	for i, d := range days {
		rows[i] = s.DailyRow(d)
	}
	r.table(s.Heading, s.Labels(), rows)
}

// TopFailing prints the top-N ranking
func (r *Report) TopFailing(ranking []contracts.FailingTable, n int) {
	s := r.layout.TopFailing
	rows := make([][]string, len(ranking))
	for i, f := range ranking {
		rows[i] = s.RankingRow(f)
	}
	r.table(s.HeadingFor(n), s.Labels(), rows)
}

// Monthly prints the monthly failure matrix
func (r *Report) Monthly(m contracts.MonthlyFailureMatrix, n int) {
	s := r.layout.Monthly
	r.table(s.HeadingFor(n), s.MonthlyHeader(m), s.MonthlyRows(m))
}

// Records prints the raw data view
func (r *Report) Records(records []contracts.ValidationRecord) {
	s := r.layout.Records
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = s.RecordRow(rec)
	}
	r.table(s.Heading, s.Labels(), rows)
}

func (r *Report) table(heading string, header []string, rows [][]string) {
	fmt.Fprintf(r.w, "%s\n", heading)

	tw := tablewriter.NewWriter(r.w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(rows)
	tw.Render()

	fmt.Fprintf(r.w, "(%d rows)\n\n", len(rows))
}
