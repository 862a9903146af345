package query

import (
	"sort"
	"strings"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
)

// Plan evaluates a Spec against rows of a single table held outside a SQL engine.
type Plan struct {
	filter     Predicate
	order      []orderKey
	projection []int
	names      []string
	distinct   bool
}

type orderKey struct {
	colIndex int
	desc     bool
}

func NewPlan(spec *Spec, table *common.TableInfo) (*Plan, error) {
	if strings.TrimSpace(spec.GroupBy()) != "" {
		return nil, errors.NewInvalidQueryError("GROUP BY is not supported for table " + table.Name)
	}
	resolve := func(name string) (int, bool) {
		idx := table.ColumnIndex(name)
		return idx, idx >= 0
	}
	filter, err := CompilePredicate(whereClause(spec), spec.SelectionArgs(), resolve)
	if err != nil {
		return nil, err
	}
	projection, names, err := project(spec.Columns(), table)
	if err != nil {
		return nil, err
	}
	terms, err := ParseOrderBy(spec.OrderBy())
	if err != nil {
		return nil, err
	}
	order := make([]orderKey, len(terms))
	for i, term := range terms {
		idx, ok := resolve(term.Column)
		if !ok {
			// an alias from the projection
			for pi, name := range names {
				if strings.EqualFold(name, term.Column) {
					idx, ok = projection[pi], true
					break
				}
			}
		}
		if !ok {
			return nil, errors.NewUnknownColumnError(term.Column)
		}
		order[i] = orderKey{colIndex: idx, desc: term.Desc}
	}
	return &Plan{
		filter:     filter,
		order:      order,
		projection: projection,
		names:      names,
		distinct:   spec.Distinct(),
	}, nil
}

func project(columns []string, table *common.TableInfo) ([]int, []string, error) {
	var projection []int
	var names []string
	if columns == nil {
		columns = []string{"*"}
	}
	for _, col := range columns {
		expr, alias := SplitAlias(col)
		if expr == "*" {
			for i, ci := range table.Columns {
				projection = append(projection, i)
				names = append(names, ci.Name)
			}
			continue
		}
		idx := table.ColumnIndex(unquoteIdent(expr))
		if idx < 0 {
			return nil, nil, errors.NewUnknownColumnError(expr)
		}
		projection = append(projection, idx)
		names = append(names, unquoteIdent(alias))
	}
	return projection, names, nil
}

func (p *Plan) ColumnNames() []string {
	return append([]string(nil), p.names...)
}

// Streamable reports whether the plan's output order is the storage order, so a source can stop
// scanning as soon as it has the rows it needs.
func (p *Plan) Streamable() bool {
	return len(p.order) == 0 && !p.distinct
}

func (p *Plan) Match(row *common.Row) bool {
	return p.filter(row)
}

func (p *Plan) Project(row *common.Row) common.Row {
	return row.Project(p.projection)
}

// Execute filters, orders, projects and deduplicates rows given in storage order.
func (p *Plan) Execute(rows []common.Row) []common.Row {
	var selected []common.Row
	for i := range rows {
		if p.filter(&rows[i]) {
			selected = append(selected, rows[i])
		}
	}
	if len(p.order) != 0 {
		sort.SliceStable(selected, func(i, j int) bool {
			for _, key := range p.order {
				c := common.Compare(selected[i].Value(key.colIndex), selected[j].Value(key.colIndex))
				if c == 0 {
					continue
				}
				if key.desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	res := make([]common.Row, 0, len(selected))
	seen := map[string]struct{}{}
	for i := range selected {
		row := p.Project(&selected[i])
		if p.distinct {
			key := string(common.EncodeRow(&row, nil))
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		res = append(res, row)
	}
	return res
}

// SingleTable returns the table a spec selects from, failing for joins and subqueries.
func SingleTable(spec *Spec) (string, error) {
	tables := strings.TrimSpace(spec.Tables())
	if strings.ContainsAny(tables, " ,()") {
		return "", errors.NewInvalidQueryError("only single table queries are supported, got " + tables)
	}
	return unquoteIdent(tables), nil
}

// Scan iterates a table's rows in storage order, stopping when yield returns false.
type Scan func(yield func(row *common.Row) bool) error

// Select runs the plan over scan and returns the rows selected by limit, every row when limit is nil.
func (p *Plan) Select(scan Scan, limit *Limit) ([]common.Row, error) {
	if !p.Streamable() {
		var all []common.Row
		if err := scan(func(row *common.Row) bool {
			all = append(all, *row)
			return true
		}); err != nil {
			return nil, err
		}
		res := p.Execute(all)
		start, end := limit.Apply(len(res))
		return res[start:end], nil
	}
	skip, want := 0, -1
	if limit != nil {
		skip, want = limit.Offset, limit.Count
	}
	if want == 0 {
		return nil, nil
	}
	var res []common.Row
	err := scan(func(row *common.Row) bool {
		if !p.filter(row) {
			return true
		}
		if skip > 0 {
			skip--
			return true
		}
		res = append(res, p.Project(row))
		return want < 0 || len(res) < want
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CountRows returns the number of rows the plan selects, restricted by limit.
func (p *Plan) CountRows(scan Scan, limit *Limit) (int, error) {
	n := 0
	if p.Streamable() {
		if err := scan(func(row *common.Row) bool {
			if p.filter(row) {
				n++
			}
			return true
		}); err != nil {
			return 0, err
		}
	} else {
		rows, err := p.Select(scan, nil)
		if err != nil {
			return 0, err
		}
		n = len(rows)
	}
	start, end := limit.Apply(n)
	return end - start, nil
}
