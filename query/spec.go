// Package query holds the immutable description of the query a cursor pages over.
package query

import (
	"strconv"
	"strings"

	"github.com/squareup/lazyrows/errors"
)

// Source is the state that source-shaping operations act on.
type Source struct {
	Tables   string
	Distinct bool
	Where    []string
}

// Operation shapes the Source of a Spec. Operations run once, in order, when the Spec is created.
type Operation func(s *Source)

func SetTables(tables string) Operation {
	return func(s *Source) {
		s.Tables = tables
	}
}

func SetDistinct(distinct bool) Operation {
	return func(s *Source) {
		s.Distinct = distinct
	}
}

// AppendWhere adds a clause that is ANDed with the selection.
func AppendWhere(clause string) Operation {
	return func(s *Source) {
		s.Where = append(s.Where, clause)
	}
}

type Params struct {
	Columns       []string
	Selection     string
	SelectionArgs []interface{}
	GroupBy       string
	Having        string
	OrderBy       string
	// Limit is "<count>" or "<offset>,<count>", empty for none
	Limit string
}

// Spec is shared read-only by a cursor and all of its windows.
type Spec struct {
	params Params
	limit  *Limit
	source Source
}

func NewSpec(params Params, ops ...Operation) (*Spec, error) {
	limit, err := ParseLimit(params.Limit)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.GroupBy) == "" && strings.TrimSpace(params.Having) != "" {
		return nil, errors.NewInvalidQueryError("HAVING clauses are only permitted when using a GROUP BY clause")
	}
	p := params
	p.Columns = append([]string(nil), params.Columns...)
	p.SelectionArgs = append([]interface{}(nil), params.SelectionArgs...)
	spec := &Spec{params: p, limit: limit}
	for _, op := range ops {
		op(&spec.source)
	}
	if spec.source.Tables == "" {
		return nil, errors.NewInvalidQueryError("no tables set")
	}
	return spec, nil
}

func MustNewSpec(params Params, ops ...Operation) *Spec {
	spec, err := NewSpec(params, ops...)
	if err != nil {
		panic(err)
	}
	return spec
}

// Columns returns the projection, nil meaning all columns.
func (s *Spec) Columns() []string {
	if s.params.Columns == nil {
		return nil
	}
	return append([]string(nil), s.params.Columns...)
}

func (s *Spec) Selection() string { return s.params.Selection }
func (s *Spec) SelectionArgs() []interface{} { return append([]interface{}(nil), s.params.SelectionArgs...) }
func (s *Spec) GroupBy() string { return s.params.GroupBy }
func (s *Spec) Having() string { return s.params.Having }
func (s *Spec) OrderBy() string { return s.params.OrderBy }
func (s *Spec) Tables() string { return s.source.Tables }
func (s *Spec) Distinct() bool { return s.source.Distinct }
func (s *Spec) Where() []string { return append([]string(nil), s.source.Where...) }

// Limit returns the absolute limit of the query, or nil.
func (s *Spec) Limit() *Limit {
	if s.limit == nil {
		return nil
	}
	l := *s.limit
	return &l
}

// WindowLimit returns the limit selecting rows [offset, offset+size) of the query's result,
// composed with the query's own absolute limit.
func (s *Spec) WindowLimit(offset int, size int) Limit {
	if s.limit == nil {
		return Limit{Offset: offset, Count: size}
	}
	remaining := s.limit.Count - offset
	if remaining < 0 {
		remaining = 0
	}
	if size > remaining {
		size = remaining
	}
	return Limit{Offset: s.limit.Offset + offset, Count: size}
}

type Limit struct {
	Offset int
	Count  int
}

// String renders the limit in "<offset>,<count>" form.
func (l Limit) String() string {
	return strconv.Itoa(l.Offset) + "," + strconv.Itoa(l.Count)
}

// Apply returns the rows of [0, n) selected by the limit as a half open range.
func (l *Limit) Apply(n int) (int, int) {
	if l == nil {
		return 0, n
	}
	start := l.Offset
	if start > n {
		start = n
	}
	end := start + l.Count
	if end > n {
		end = n
	}
	return start, end
}

// ParseLimit parses "<count>" or "<offset>,<count>". An empty string is no limit.
func ParseLimit(s string) (*Limit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return nil, errors.NewInvalidLimitError(s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, errors.NewInvalidLimitError(s)
		}
		nums[i] = n
	}
	if len(nums) == 1 {
		return &Limit{Count: nums[0]}, nil
	}
	return &Limit{Offset: nums[0], Count: nums[1]}, nil
}

// SplitAlias splits a projected column "<expr> <alias>" at its last space.
// A column without a space is its own alias.
func SplitAlias(column string) (string, string) {
	pos := strings.LastIndex(column, " ")
	if pos < 0 {
		return column, column
	}
	expr := strings.TrimSpace(column[:pos])
	if strings.HasSuffix(strings.ToUpper(expr), " AS") {
		expr = strings.TrimSpace(expr[:len(expr)-3])
	}
	return expr, column[pos+1:]
}

// ColumnNamesFromProjection derives result column names from the projection strings. The alias
// wins, a column with no alias is named by its raw expression.
func ColumnNamesFromProjection(columns []string) []string {
	if columns == nil {
		return nil
	}
	names := make([]string, len(columns))
	for i, col := range columns {
		_, names[i] = SplitAlias(col)
	}
	return names
}
