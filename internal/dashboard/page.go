package dashboard

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/wonny/gedash/internal/contracts"
	"github.com/wonny/gedash/internal/views"
)

//go:embed page.html
var pageTemplate string

// Table is a rendered table view
type Table struct {
	Heading string
	Headers []string
	Rows    [][]string
}

// FilterForm is the state of the raw data filter controls
type FilterForm struct {
	Schema       string
	Table        string
	From         string
	To           string
	SuccessTrue  bool
	SuccessFalse bool
}

// Input is everything one page render needs
type Input struct {
	Records  []contracts.ValidationRecord
	Filter   contracts.RecordFilter
	TopN     int
	LoadedAt time.Time
	Relation string
	Query    string // encoded filter, reused by the export link
}

// Page is the fully computed dashboard
type Page struct {
	Title          string
	Relation       string
	LoadedAt       string
	Form           FilterForm
	Options        contracts.FilterOptions
	Selected       string
	LatestFailures Table
	DailyHeading   string
	Daily          BarChart
	DailyTable     Table
	TopFailing     Table
	MonthlyHeading string
	Monthly        LineChart
	MonthlyTable   Table
	Records        Table
	ExportURL      string
}

// Renderer renders the dashboard page
type Renderer struct {
	layout *Layout
	tmpl   *template.Template
}

// NewRenderer parses the page template
func NewRenderer(layout *Layout) (*Renderer, error) {
	tmpl, err := template.New("page").Funcs(template.FuncMap{
		"num": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	}).Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{layout: layout, tmpl: tmpl}, nil
}

// Layout returns the layout the renderer was built with
func (r *Renderer) Layout() *Layout {
	return r.layout
}

// Render computes every view from in and writes the HTML page.
// Nothing is written when rendering fails.
func (r *Renderer) Render(w io.Writer, in Input) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, r.Build(in)); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Build computes the page model
func (r *Renderer) Build(in Input) Page {
	l := r.layout
	n := in.TopN
	if n <= 0 {
		n = views.DefaultTopN
	}

	latest := views.LatestFailures(in.Records)
	daily := views.DailySuccessRates(in.Records)
	top := views.TopFailing(in.Records, n)
	filtered := views.Filter(in.Records, in.Filter)
	options := views.Options(in.Records, in.Filter.Schema)

	p := Page{
		Title:          l.Title,
		Relation:       in.Relation,
		Form:           newFilterForm(in.Filter, options),
		Options:        options,
		Selected:       describeFilter(in.Filter),
		DailyHeading:   l.DailySuccess.Heading,
		Daily:          DailyChart(daily),
		MonthlyHeading: l.Monthly.HeadingFor(n),
		Monthly:        MonthlyChart(top.Monthly),
		ExportURL:      "/api/v1/records/export.xlsx",
	}
	if !in.LoadedAt.IsZero() {
		p.LoadedAt = in.LoadedAt.UTC().Format(time.RFC3339)
	}
	if in.Query != "" {
		p.ExportURL += "?" + in.Query
	}

	p.LatestFailures = Table{Heading: l.LatestFailures.Heading, Headers: l.LatestFailures.Labels()}
	for _, rec := range latest {
		p.LatestFailures.Rows = append(p.LatestFailures.Rows, l.LatestFailures.RecordRow(rec))
	}

	p.DailyTable = Table{Heading: l.DailySuccess.Heading, Headers: l.DailySuccess.Labels()}
	for _, d := range daily {
		p.DailyTable.Rows = append(p.DailyTable.Rows, l.DailySuccess.DailyRow(d))
	}

	p.TopFailing = Table{Heading: l.TopFailing.HeadingFor(n), Headers: l.TopFailing.Labels()}
	for _, f := range top.Ranking {
		p.TopFailing.Rows = append(p.TopFailing.Rows, l.TopFailing.RankingRow(f))
	}

	p.MonthlyTable = Table{
		Heading: l.Monthly.HeadingFor(n),
		Headers: l.Monthly.MonthlyHeader(top.Monthly),
		Rows:    l.Monthly.MonthlyRows(top.Monthly),
	}

	p.Records = Table{Heading: l.Records.Heading, Headers: l.Records.Labels()}
	for _, rec := range filtered {
		p.Records.Rows = append(p.Records.Rows, l.Records.RecordRow(rec))
	}

	return p
}

func newFilterForm(f contracts.RecordFilter, options contracts.FilterOptions) FilterForm {
	form := FilterForm{Schema: f.Schema, Table: f.Table}

	if f.DateMin != nil {
		form.From = f.DateMin.Format(time.DateOnly)
	} else if !options.DateMin.IsZero() {
		form.From = options.DateMin.Format(time.DateOnly)
	}
	if f.DateMax != nil {
		form.To = f.DateMax.Format(time.DateOnly)
	} else if !options.DateMax.IsZero() {
		form.To = options.DateMax.Format(time.DateOnly)
	}

	if f.Success == nil {
		form.SuccessTrue, form.SuccessFalse = true, true
	}
	for _, s := range f.Success {
		if s {
			form.SuccessTrue = true
		} else {
			form.SuccessFalse = true
		}
	}
	return form
}

func describeFilter(f contracts.RecordFilter) string {
	schema, table, from, to := "None", "None", "None", "None"
	if f.Schema != "" {
		schema = f.Schema
	}
	if f.Table != "" {
		table = f.Table
	}
	if f.DateMin != nil {
		from = f.DateMin.Format(time.DateOnly)
	}
	if f.DateMax != nil {
		to = f.DateMax.Format(time.DateOnly)
	}
	success := "[true false]"
	if f.Success != nil {
		success = fmt.Sprint(f.Success)
	}
	return fmt.Sprintf("%s, %s, %s, %s, %s", schema, table, from, to, success)
}
