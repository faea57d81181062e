package views

import (
	"sort"
	"time"

	"github.com/wonny/gedash/internal/contracts"
)

// ObservedSpan returns the first and last validation dates present.
// ok is false for an empty relation.
func ObservedSpan(records []contracts.ValidationRecord) (min, max time.Time, ok bool) {
	for i := range records {
		d := records[i].ValidationDate
		if !ok {
			min, max, ok = d, d, true
			continue
		}
		if d.Before(min) {
			min = d
		}
		if d.After(max) {
			max = d
		}
	}
	return min, max, ok
}

// Filter returns the records matching every active predicate of f, in
// relation order. An empty result is a valid answer, not an error.
func Filter(records []contracts.ValidationRecord, f contracts.RecordFilter) []contracts.ValidationRecord {
	spanMin, spanMax, _ := ObservedSpan(records)
	dateMin, dateMax := spanMin, spanMax
	if f.DateMin != nil {
		dateMin = truncateDay(*f.DateMin)
	}
	if f.DateMax != nil {
		dateMax = truncateDay(*f.DateMax)
	}

	allowSuccess, allowFailure := true, true
	if f.Success != nil {
		allowSuccess, allowFailure = false, false
		for _, s := range f.Success {
			if s {
				allowSuccess = true
			} else {
				allowFailure = true
			}
		}
	}

	out := make([]contracts.ValidationRecord, 0)
	for i := range records {
		r := &records[i]

		// table wins over schema when both are chosen
		switch {
		case f.Table != "":
			if r.TableName != f.Table {
				continue
			}
		case f.Schema != "":
			if r.SchemaName != f.Schema {
				continue
			}
		}

		if r.ValidationDate.Before(dateMin) || r.ValidationDate.After(dateMax) {
			continue
		}

		if (r.Success && !allowSuccess) || (!r.Success && !allowFailure) {
			continue
		}

		out = append(out, *r)
	}
	return out
}

// Options lists the choices offered by the selection controls. Tables are
// restricted to schema when it is not empty.
func Options(records []contracts.ValidationRecord, schema string) contracts.FilterOptions {
	schemas := make(map[string]struct{})
	tables := make(map[string]struct{})
	for i := range records {
		r := &records[i]
		schemas[r.SchemaName] = struct{}{}
		if schema == "" || r.SchemaName == schema {
			tables[r.TableName] = struct{}{}
		}
	}

	opts := contracts.FilterOptions{
		Schemas: sortedKeys(schemas),
		Tables:  sortedKeys(tables),
		Success: []bool{true, false},
	}
	opts.DateMin, opts.DateMax, _ = ObservedSpan(records)
	return opts
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// truncateDay keeps the calendar day of t as written, at UTC midnight
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
