package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/gedash/internal/contracts"
)

func datep(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func filterRelation() []contracts.ValidationRecord {
	return []contracts.ValidationRecord{
		rec("a", "x", day(2024, 1, 1, 8), true),
		rec("a", "x", day(2024, 1, 2, 8), false),
		rec("a", "y", day(2024, 1, 3, 8), false),
		rec("b", "x", day(2024, 1, 3, 9), false),
		rec("b", "z", day(2024, 1, 4, 23), true),
	}
}

func TestFilter_Scenario(t *testing.T) {
	records := randomRelation(5, 600)

	got := Filter(records, contracts.RecordFilter{Schema: "a", Success: []bool{false}})

	want := 0
	for _, r := range records {
		if r.SchemaName == "a" && !r.Success {
			want++
		}
	}
	require.Len(t, got, want)
	for _, r := range got {
		assert.Equal(t, "a", r.SchemaName)
		assert.False(t, r.Success)
	}
}

func TestFilter(t *testing.T) {
	records := filterRelation()

	tests := []struct {
		name   string
		filter contracts.RecordFilter
		want   []int
	}{
		{"defaults keep everything", contracts.RecordFilter{}, []int{0, 1, 2, 3, 4}},
		{"schema", contracts.RecordFilter{Schema: "b"}, []int{3, 4}},
		{"table across schemas", contracts.RecordFilter{Table: "x"}, []int{0, 1, 3}},
		{"table overrides schema", contracts.RecordFilter{Schema: "a", Table: "z"}, []int{4}},
		{"inclusive date bounds", contracts.RecordFilter{DateMin: datep(2024, 1, 2), DateMax: datep(2024, 1, 3)}, []int{1, 2, 3}},
		{"only lower bound", contracts.RecordFilter{DateMin: datep(2024, 1, 4)}, []int{4}},
		{"successes only", contracts.RecordFilter{Success: []bool{true}}, []int{0, 4}},
		{"both outcomes", contracts.RecordFilter{Success: []bool{false, true}}, []int{0, 1, 2, 3, 4}},
		{"empty success set", contracts.RecordFilter{Success: []bool{}}, nil},
		{"no match", contracts.RecordFilter{Schema: "nope"}, nil},
		{"inverted range", contracts.RecordFilter{DateMin: datep(2024, 1, 3), DateMax: datep(2024, 1, 1)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(records, tt.filter)

			require.NotNil(t, got)
			want := make([]contracts.ValidationRecord, 0, len(tt.want))
			for _, i := range tt.want {
				want = append(want, records[i])
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestFilter_DateBoundIgnoresTimeOfDay(t *testing.T) {
	records := filterRelation()
	evening := time.Date(2024, 1, 4, 0, 0, 1, 0, time.UTC)

	got := Filter(records, contracts.RecordFilter{DateMin: &evening, DateMax: &evening})
	require.Len(t, got, 1)
	assert.Equal(t, "b.z", got[0].SchemaTableName)
}

func TestFilter_IsIdempotent(t *testing.T) {
	records := randomRelation(6, 300)
	f := contracts.RecordFilter{Table: "orders", DateMin: datep(2023, 12, 1), Success: []bool{true}}

	assert.Equal(t, Filter(records, f), Filter(records, f))
}

func TestOptions(t *testing.T) {
	records := filterRelation()

	all := Options(records, "")
	assert.Equal(t, []string{"a", "b"}, all.Schemas)
	assert.Equal(t, []string{"x", "y", "z"}, all.Tables)
	assert.Equal(t, *datep(2024, 1, 1), all.DateMin)
	assert.Equal(t, *datep(2024, 1, 4), all.DateMax)
	assert.Equal(t, []bool{true, false}, all.Success)

	b := Options(records, "b")
	assert.Equal(t, []string{"a", "b"}, b.Schemas)
	assert.Equal(t, []string{"x", "z"}, b.Tables)

	empty := Options(nil, "")
	assert.Empty(t, empty.Schemas)
	assert.True(t, empty.DateMin.IsZero())
}
