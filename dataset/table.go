package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrSchemaMismatch = errors.New("dataset columns do not match")

// Table is the unified dataset: an ordered header and the records in source order.
type Table struct {
	Header  []string
	Records [][]string
}

// Concat appends the tables vertically, in order. All tables must have the same
// (normalised) columns in the same order.
func Concat(tables ...*Table) (*Table, error) {
	unified := Table{
		Header:  []string{},
		Records: [][]string{},
	}

	for i, t := range tables {
		if i == 0 {
			unified.Header = append(unified.Header, t.Header...)
		} else if err := match(unified.Header, t.Header); err != nil {
			return nil, fmt.Errorf("%w: dataset %d (%v)", ErrSchemaMismatch, i+1, err)
		}

		unified.Records = append(unified.Records, t.Records...)
	}

	return &unified, nil
}

// Clean normalises the column names and removes duplicated records.
func (t *Table) Clean() {
	for i, h := range t.Header {
		t.Header[i] = NormaliseHeader(h)
	}

	t.Records = Deduplicate(t.Records)
}

// NormaliseHeader trims, lowercases and replaces every space with an underscore, so
// 'Razon Social' becomes 'razon_social' (and 'Razon  Social' becomes 'razon__social').
func NormaliseHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

// Deduplicate returns the records with every exact duplicate removed, keeping the
// first occurrence and preserving order.
func Deduplicate(records [][]string) [][]string {
	unique := [][]string{}
	seen := map[string]bool{}

	for _, record := range records {
		k := key(record)
		if !seen[k] {
			seen[k] = true
			unique = append(unique, record)
		}
	}

	return unique
}

// key is length prefixed so that e.g. ["a;b", "c"] and ["a", "b;c"] differ.
func key(record []string) string {
	var b strings.Builder

	for _, v := range record {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}

	return b.String()
}

func match(header, other []string) error {
	if len(header) != len(other) {
		return fmt.Errorf("expected %d columns, got %d", len(header), len(other))
	}

	for i := range header {
		if NormaliseHeader(header[i]) != NormaliseHeader(other[i]) {
			return fmt.Errorf("column %d: expected '%s', got '%s'", i+1, header[i], other[i])
		}
	}

	return nil
}
