// Package views derives the dashboard views from the loaded validation relation.
//
// Every function is pure: it reads the records it is given, never modifies
// them, and returns freshly allocated output.
package views

import (
	"sort"
	"time"

	"github.com/wonny/gedash/internal/contracts"
)

// DefaultTopN is the size of the top failing ranking
const DefaultTopN = 10

// LatestFailures returns, for every schema.table key, its most recent record
// if that record failed, sorted by validation time descending.
//
// When several records share a key's latest time, a failed one is chosen over
// a successful one and the earliest in relation order among equals. Output
// rows with equal times are ordered by key.
func LatestFailures(records []contracts.ValidationRecord) []contracts.ValidationRecord {
	latest := make(map[string]int, 64)
	for i := range records {
		r := &records[i]
		j, seen := latest[r.SchemaTableName]
		if !seen {
			latest[r.SchemaTableName] = i
			continue
		}
		cur := &records[j]
		if r.ValidationTime.After(cur.ValidationTime) ||
			(r.ValidationTime.Equal(cur.ValidationTime) && cur.Success && !r.Success) {
			latest[r.SchemaTableName] = i
		}
	}

	out := make([]contracts.ValidationRecord, 0, len(latest))
	for _, i := range latest {
		if records[i].Failed() {
			out = append(out, records[i])
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if !out[a].ValidationTime.Equal(out[b].ValidationTime) {
			return out[a].ValidationTime.After(out[b].ValidationTime)
		}
		return out[a].SchemaTableName < out[b].SchemaTableName
	})
	return out
}

// DailySuccessRates returns one row per observed validation date, oldest first
func DailySuccessRates(records []contracts.ValidationRecord) []contracts.DailySuccessRate {
	byDate := make(map[time.Time]*contracts.DailySuccessRate)
	for i := range records {
		r := &records[i]
		row, ok := byDate[r.ValidationDate]
		if !ok {
			row = &contracts.DailySuccessRate{Date: r.ValidationDate}
			byDate[r.ValidationDate] = row
		}
		if r.Success {
			row.Successes++
		} else {
			row.Failures++
		}
	}

	out := make([]contracts.DailySuccessRate, 0, len(byDate))
	for _, row := range byDate {
		row.SuccessPercentual = float64(row.Successes) / float64(row.Successes+row.Failures)
		out = append(out, *row)
	}

	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out
}

// TopFailingTables ranks schema.table keys by failure count, highest first,
// keeping at most n. Equal counts are ordered by key.
func TopFailingTables(records []contracts.ValidationRecord, n int) []contracts.FailingTable {
	if n <= 0 {
		return []contracts.FailingTable{}
	}

	counts := make(map[string]int)
	for i := range records {
		if records[i].Failed() {
			counts[records[i].SchemaTableName]++
		}
	}

	ranking := make([]contracts.FailingTable, 0, len(counts))
	for name, c := range counts {
		ranking = append(ranking, contracts.FailingTable{SchemaTableName: name, FailureCount: c})
	}

	sort.Slice(ranking, func(a, b int) bool {
		if ranking[a].FailureCount != ranking[b].FailureCount {
			return ranking[a].FailureCount > ranking[b].FailureCount
		}
		return ranking[a].SchemaTableName < ranking[b].SchemaTableName
	})

	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// monthKey is one sparse cell of the monthly pivot
type monthKey struct {
	month time.Time
	name  string
}

// MonthlyFailures pivots failure counts of the ranked keys into a month by
// table matrix. Months are those in which any ranked key failed, oldest
// first; columns follow the ranking order; missing cells are zero.
func MonthlyFailures(records []contracts.ValidationRecord, ranking []contracts.FailingTable) contracts.MonthlyFailureMatrix {
	column := make(map[string]int, len(ranking))
	tables := make([]string, len(ranking))
	for j, ft := range ranking {
		column[ft.SchemaTableName] = j
		tables[j] = ft.SchemaTableName
	}

	// sparse (month, name, count) triples
	triples := make(map[monthKey]int)
	monthSet := make(map[time.Time]struct{})
	for i := range records {
		r := &records[i]
		if r.Success {
			continue
		}
		if _, ranked := column[r.SchemaTableName]; !ranked {
			continue
		}
		triples[monthKey{month: r.ValidationYearMonth, name: r.SchemaTableName}]++
		monthSet[r.ValidationYearMonth] = struct{}{}
	}

	months := make([]time.Time, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(a, b int) bool { return months[a].Before(months[b]) })

	// full cartesian product, zero-filled
	counts := make([][]int, len(months))
	for i, m := range months {
		counts[i] = make([]int, len(tables))
		for j, name := range tables {
			counts[i][j] = triples[monthKey{month: m, name: name}]
		}
	}

	return contracts.MonthlyFailureMatrix{
		Months: months,
		Tables: tables,
		Counts: counts,
	}
}

// TopFailing computes the ranking and its monthly breakdown together
func TopFailing(records []contracts.ValidationRecord, n int) contracts.TopFailing {
	ranking := TopFailingTables(records, n)
	return contracts.TopFailing{
		Ranking: ranking,
		Monthly: MonthlyFailures(records, ranking),
	}
}
