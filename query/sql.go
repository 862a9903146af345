package query

import (
	"fmt"
	"strconv"
	"strings"
)

// CountQueryBuilder builds the SQL that counts the rows of a spec. Sources that are given one
// derive column names by running a zero row query instead of parsing the projection.
type CountQueryBuilder interface {
	BuildCountQuery(spec *Spec, limit *Limit) string
}

// CountQueryBuilderFunc adapts a function to CountQueryBuilder.
type CountQueryBuilderFunc func(spec *Spec, limit *Limit) string

func (f CountQueryBuilderFunc) BuildCountQuery(spec *Spec, limit *Limit) string {
	return f(spec, limit)
}

// BuildSelect renders the spec as a SELECT statement over the given projection and limit.
func BuildSelect(spec *Spec, columns []string, limit *Limit) string {
	sb := strings.Builder{}
	sb.WriteString("SELECT ")
	if spec.Distinct() {
		sb.WriteString("DISTINCT ")
	}
	if len(columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(spec.Tables())
	if where := whereClause(spec); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	appendClause(&sb, " GROUP BY ", spec.GroupBy())
	appendClause(&sb, " HAVING ", spec.Having())
	appendClause(&sb, " ORDER BY ", spec.OrderBy())
	if limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(limit.Count))
		if limit.Offset != 0 {
			sb.WriteString(" OFFSET ")
			sb.WriteString(strconv.Itoa(limit.Offset))
		}
	}
	return sb.String()
}

// BuildCount wraps the spec's select in a single row COUNT query.
func BuildCount(spec *Spec, limit *Limit) string {
	return fmt.Sprintf("SELECT COUNT('X') COUNT FROM (%s) LIMIT 1", BuildSelect(spec, spec.Columns(), limit))
}

func whereClause(spec *Spec) string {
	var clauses []string
	for _, w := range spec.Where() {
		if strings.TrimSpace(w) != "" {
			clauses = append(clauses, w)
		}
	}
	if sel := strings.TrimSpace(spec.Selection()); sel != "" {
		clauses = append(clauses, sel)
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	for i, c := range clauses {
		clauses[i] = "(" + c + ")"
	}
	return strings.Join(clauses, " AND ")
}

func appendClause(sb *strings.Builder, name string, clause string) {
	if strings.TrimSpace(clause) != "" {
		sb.WriteString(name)
		sb.WriteString(clause)
	}
}
