package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/gedash/internal/contracts"
	"github.com/wonny/gedash/internal/views"
)

// MaxTopN bounds the n query parameter
const MaxTopN = 1000

// ParseFilter reads the ad-hoc filter from query parameters.
//
//	schema, table   exact match
//	from, to        YYYY-MM-DD, inclusive
//	success         repeated or comma separated booleans; present but empty
//	                selects nothing
func ParseFilter(q url.Values) (contracts.RecordFilter, error) {
	f := contracts.RecordFilter{
		Schema: strings.TrimSpace(q.Get("schema")),
		Table:  strings.TrimSpace(q.Get("table")),
	}

	var err error
	if f.DateMin, err = parseDate(q, "from"); err != nil {
		return contracts.RecordFilter{}, err
	}
	if f.DateMax, err = parseDate(q, "to"); err != nil {
		return contracts.RecordFilter{}, err
	}

	values, present := q["success"]
	if !present {
		return f, nil
	}

	f.Success = []bool{}
	seen := make(map[bool]bool, 2)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			b, err := strconv.ParseBool(part)
			if err != nil {
				return contracts.RecordFilter{}, fmt.Errorf("invalid success value %q: expected true or false", part)
			}
			if !seen[b] {
				seen[b] = true
				f.Success = append(f.Success, b)
			}
		}
	}
	return f, nil
}

func parseDate(q url.Values, key string) (*time.Time, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q: expected YYYY-MM-DD", key, s)
	}
	return &d, nil
}

// ParseTopN reads the ranking size, defaulting to views.DefaultTopN
func ParseTopN(q url.Values) (int, error) {
	s := strings.TrimSpace(q.Get("n"))
	if s == "" {
		return views.DefaultTopN, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxTopN {
		return 0, fmt.Errorf("invalid n %q: expected an integer between 1 and %d", s, MaxTopN)
	}
	return n, nil
}
