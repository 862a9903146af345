package shell

import (
	"regexp"
	"strings"

	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/query"
)

var selectStatement = regexp.MustCompile(`(?is)^select\s+(distinct\s+)?(.+?)\s+from\s+(.+?)` +
	`(?:\s+where\s+(.+?))?` +
	`(?:\s+group\s+by\s+(.+?))?` +
	`(?:\s+having\s+(.+?))?` +
	`(?:\s+order\s+by\s+(.+?))?` +
	`(?:\s+limit\s+(\d+(?:\s*,\s*\d+)?))?\s*;?\s*$`)

// ParseSelect turns a SELECT statement into the spec a cursor is opened over.
func ParseSelect(stmt string) (*query.Spec, error) {
	m := selectStatement.FindStringSubmatch(strings.TrimSpace(stmt))
	if m == nil {
		return nil, errors.NewInvalidCommandError("cannot parse select statement: " + stmt)
	}
	var columns []string
	if projection := strings.TrimSpace(m[2]); projection != "*" {
		columns = splitColumns(projection)
	}
	return query.NewSpec(query.Params{
		Columns:   columns,
		Selection: m[4],
		GroupBy:   m[5],
		Having:    m[6],
		OrderBy:   m[7],
		Limit:     strings.ReplaceAll(m[8], " ", ""),
	}, query.SetTables(strings.TrimSpace(m[3])), query.SetDistinct(m[1] != ""))
}

// splitColumns splits a projection on the commas that are not nested in parentheses or quotes.
func splitColumns(projection string) []string {
	var columns []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range projection {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			columns = append(columns, strings.TrimSpace(projection[start:i]))
			start = i + 1
		}
	}
	return append(columns, strings.TrimSpace(projection[start:]))
}
