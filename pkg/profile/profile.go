// Package profile computes column level summaries of an in-memory table:
// text lengths, observed value kinds, duplicate values and decimal widths.
package profile

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/block/litemove/pkg/normalize"
	"github.com/block/litemove/pkg/source"
)

// ColumnLength is the longest text value of a column, in characters.
type ColumnLength struct {
	Column string
	MaxLen int
}

// MaxLengths returns the longest value of every text column, in column
// order. A column is text when any of its values is a string. Missing
// values count as the empty string.
func MaxLengths(t *source.Table) []ColumnLength {
	var out []ColumnLength
	for _, col := range t.Columns {
		vals, _ := t.Column(col)
		isText, longest := false, 0
		for _, raw := range vals {
			s, ok := textOf(raw)
			if !ok {
				continue
			}
			isText = true
			longest = max(longest, utf8.RuneCountInString(s))
		}
		if isText {
			out = append(out, ColumnLength{Column: col, MaxLen: longest})
		}
	}
	return out
}

func textOf(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), utf8.Valid(val)
	}
	return "", false
}

// ColumnInfo summarises one column.
type ColumnInfo struct {
	Column   string
	DeclType string
	NonNull  int
	Kinds    []string // sorted names of the normalized kinds seen, "unrecognized" for failures
}

func (c ColumnInfo) String() string {
	return fmt.Sprintf("%-20s %-10s %6d non-null  %s", c.Column, c.DeclType, c.NonNull, strings.Join(c.Kinds, ","))
}

// Info returns a ColumnInfo per column in column order.
func Info(t *source.Table) []ColumnInfo {
	out := make([]ColumnInfo, len(t.Columns))
	for i, col := range t.Columns {
		info := ColumnInfo{Column: col}
		if i < len(t.DeclTypes) {
			info.DeclType = t.DeclTypes[i]
		}
		vals, _ := t.Column(col)
		kinds := make(map[string]struct{})
		for _, raw := range vals {
			v, err := normalize.Normalize(raw)
			if err != nil {
				kinds["unrecognized"] = struct{}{}
				info.NonNull++
				continue
			}
			if !v.IsNull() {
				info.NonNull++
			}
			kinds[v.Kind().String()] = struct{}{}
		}
		for k := range kinds {
			info.Kinds = append(info.Kinds, k)
		}
		slices.Sort(info.Kinds)
		out[i] = info
	}
	return out
}

// ValueCount is a value and the number of rows it appears in.
type ValueCount struct {
	Value normalize.Value
	Count int
}

// Duplicates returns the values of column that appear in more than one row,
// most frequent first. Missing values are not counted.
func Duplicates(t *source.Table, column string) ([]ValueCount, error) {
	vals, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	counts := make(map[normalize.Value]int)
	for row, raw := range vals {
		v, err := normalize.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if v.IsNull() {
			continue
		}
		counts[v]++
	}
	var out []ValueCount
	for v, n := range counts {
		if n > 1 {
			out = append(out, ValueCount{Value: v, Count: n})
		}
	}
	slices.SortFunc(out, func(a, b ValueCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value.String(), b.Value.String())
	})
	return out, nil
}

// Widths is the largest number of digits seen either side of the decimal
// point.
type Widths struct {
	Whole    int
	Fraction int
}

// DecimalWidths measures the numeric values of column, which is how a
// DECIMAL(p,s) target type is sized. Missing values are skipped; any
// non-numeric value is an error.
func DecimalWidths(t *source.Table, column string) (Widths, error) {
	vals, err := t.Column(column)
	if err != nil {
		return Widths{}, err
	}
	var w Widths
	for row, raw := range vals {
		v, err := normalize.Normalize(raw)
		if err != nil {
			return Widths{}, fmt.Errorf("row %d: %w", row, err)
		}
		var s string
		switch v.Kind() { //nolint:exhaustive
		case normalize.Null:
			continue
		case normalize.Int:
			s = strconv.FormatInt(v.Int(), 10)
		case normalize.Float:
			s = strconv.FormatFloat(v.Float(), 'f', -1, 64)
		default:
			return Widths{}, fmt.Errorf("row %d: column %s holds %s, not a number", row, column, v.Kind())
		}
		s = strings.TrimPrefix(s, "-")
		whole, frac, _ := strings.Cut(s, ".")
		w.Whole = max(w.Whole, len(whole))
		w.Fraction = max(w.Fraction, len(frac))
	}
	return w, nil
}
