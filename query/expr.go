package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/alecthomas/participle/v2/lexer/stateful"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
)

var (
	lex = stateful.MustSimple([]stateful.Rule{
		{`Ident`, "((?i)[a-zA-Z_][a-zA-Z_0-9]*)|`[^`]*`", nil},
		{`Number`, `[-+]?\d*\.?\d+([eE][-+]?\d+)?`, nil},
		{`String`, `'[^']*'|"[^"]*"`, nil},
		{`Punct`, `<>|!=|<=|>=|[-+*/%,.()=<>?]`, nil},
		{`Whitespace`, `\s+`, nil},
	})
	stripQuotes = participle.Map(func(token lexer.Token) (lexer.Token, error) {
		token.Value = token.Value[1 : len(token.Value)-1]
		return token, nil
	}, "String")
	exprParser = participle.MustBuild(&Expr{},
		participle.Lexer(lex),
		participle.CaseInsensitive("Ident"),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
		stripQuotes,
	)
	orderByParser = participle.MustBuild(&OrderBy{},
		participle.Lexer(lex),
		participle.CaseInsensitive("Ident"),
		participle.Elide("Whitespace"),
		stripQuotes,
	)
)

// Expr is a boolean selection: comparisons combined with AND, OR, NOT and parentheses.
type Expr struct {
	Or []*AndExpr `@@ ( "OR" @@ )*`
}

type AndExpr struct {
	And []*NotExpr `@@ ( "AND" @@ )*`
}

type NotExpr struct {
	Not  bool  `@"NOT"?`
	Term *Term `@@`
}

type Term struct {
	Sub *Expr       `  "(" @@ ")"`
	Cmp *Comparison `| @@`
}

// Comparison with no operator tests the truth of its operand.
type Comparison struct {
	Left   *Operand `@@`
	Op     string   `( @( "<>" | "!=" | "<=" | ">=" | "=" | "<" | ">" )`
	Right  *Operand `  @@`
	IsNull *IsNull  `| @@`
	Like   *Like    `| @@ )?`
}

type IsNull struct {
	Not bool `"IS" @"NOT"? "NULL"`
}

type Like struct {
	Not     bool     `@"NOT"? "LIKE"`
	Pattern *Operand `@@`
}

type Operand struct {
	Placeholder bool    `  @"?"`
	Null        bool    `| @"NULL"`
	Number      *string `| @Number`
	String      *string `| @String`
	Column      string  `| @Ident`
}

type OrderBy struct {
	Terms []*OrderTerm `@@ ( "," @@ )*`
}

type OrderTerm struct {
	Column string `@Ident`
	Desc   bool   `( @"DESC" | "ASC" )?`
}

// ColumnResolver maps a column name to its index in a row.
type ColumnResolver func(name string) (int, bool)

// Predicate reports whether a row is selected.
type Predicate func(row *common.Row) bool

// CompilePredicate parses a selection and binds its placeholders to args, in order. An empty
// selection selects every row.
func CompilePredicate(selection string, args []interface{}, resolve ColumnResolver) (Predicate, error) {
	if strings.TrimSpace(selection) == "" {
		if len(args) != 0 {
			return nil, errors.NewInvalidQueryError("selection args given without a selection")
		}
		return func(*common.Row) bool { return true }, nil
	}
	ast := &Expr{}
	if err := exprParser.ParseString("", selection, ast); err != nil {
		return nil, errors.NewInvalidQueryError(err.Error())
	}
	c := &compiler{args: args, resolve: resolve}
	eval, err := c.expr(ast)
	if err != nil {
		return nil, err
	}
	if c.argIndex != len(args) {
		return nil, errors.NewInvalidQueryError(fmt.Sprintf("selection has %d placeholders but %d args were given", c.argIndex, len(args)))
	}
	return func(row *common.Row) bool {
		return eval(row) == tTrue
	}, nil
}

func ParseOrderBy(orderBy string) ([]*OrderTerm, error) {
	if strings.TrimSpace(orderBy) == "" {
		return nil, nil
	}
	ast := &OrderBy{}
	if err := orderByParser.ParseString("", orderBy, ast); err != nil {
		return nil, errors.NewInvalidQueryError(err.Error())
	}
	for _, term := range ast.Terms {
		term.Column = unquoteIdent(term.Column)
	}
	return ast.Terms, nil
}

type truth int8

const (
	tFalse truth = iota
	tTrue
	tUnknown
)

func truthOf(b bool) truth {
	if b {
		return tTrue
	}
	return tFalse
}

type evalFunc func(row *common.Row) truth

type valueFunc func(row *common.Row) interface{}

type compiler struct {
	args     []interface{}
	argIndex int
	resolve  ColumnResolver
}

func (c *compiler) expr(e *Expr) (evalFunc, error) {
	var terms []evalFunc
	for _, a := range e.Or {
		f, err := c.and(a)
		if err != nil {
			return nil, err
		}
		terms = append(terms, f)
	}
	return func(row *common.Row) truth {
		res := tFalse
		for _, f := range terms {
			switch f(row) {
			case tTrue:
				return tTrue
			case tUnknown:
				res = tUnknown
			}
		}
		return res
	}, nil
}

func (c *compiler) and(a *AndExpr) (evalFunc, error) {
	var terms []evalFunc
	for _, n := range a.And {
		f, err := c.not(n)
		if err != nil {
			return nil, err
		}
		terms = append(terms, f)
	}
	return func(row *common.Row) truth {
		res := tTrue
		for _, f := range terms {
			switch f(row) {
			case tFalse:
				return tFalse
			case tUnknown:
				res = tUnknown
			}
		}
		return res
	}, nil
}

func (c *compiler) not(n *NotExpr) (evalFunc, error) {
	var f evalFunc
	var err error
	if n.Term.Sub != nil {
		f, err = c.expr(n.Term.Sub)
	} else {
		f, err = c.comparison(n.Term.Cmp)
	}
	if err != nil || !n.Not {
		return f, err
	}
	return func(row *common.Row) truth {
		return negate(f(row))
	}, nil
}

func negate(t truth) truth {
	switch t {
	case tTrue:
		return tFalse
	case tFalse:
		return tTrue
	default:
		return tUnknown
	}
}

func (c *compiler) comparison(cmp *Comparison) (evalFunc, error) {
	left, err := c.operand(cmp.Left)
	if err != nil {
		return nil, err
	}
	switch {
	case cmp.IsNull != nil:
		not := cmp.IsNull.Not
		return func(row *common.Row) truth {
			return truthOf((left(row) == nil) != not)
		}, nil
	case cmp.Like != nil:
		return c.like(left, cmp.Like)
	case cmp.Op != "":
		right, err := c.operand(cmp.Right)
		if err != nil {
			return nil, err
		}
		test, err := comparator(cmp.Op)
		if err != nil {
			return nil, err
		}
		return func(row *common.Row) truth {
			l, r := left(row), right(row)
			if l == nil || r == nil {
				return tUnknown
			}
			return truthOf(test(common.Compare(l, r)))
		}, nil
	default:
		return func(row *common.Row) truth {
			v := left(row)
			if v == nil {
				return tUnknown
			}
			return truthOf(common.ToFloat64(v) != 0)
		}, nil
	}
}

func comparator(op string) (func(int) bool, error) {
	switch op {
	case "=":
		return func(c int) bool { return c == 0 }, nil
	case "<>", "!=":
		return func(c int) bool { return c != 0 }, nil
	case "<":
		return func(c int) bool { return c < 0 }, nil
	case "<=":
		return func(c int) bool { return c <= 0 }, nil
	case ">":
		return func(c int) bool { return c > 0 }, nil
	case ">=":
		return func(c int) bool { return c >= 0 }, nil
	default:
		return nil, errors.NewInvalidQueryError("unknown operator " + op)
	}
}

func (c *compiler) like(left valueFunc, like *Like) (evalFunc, error) {
	if like.Pattern.Column != "" {
		return nil, errors.NewInvalidQueryError("LIKE pattern must be a constant")
	}
	pv, err := c.operand(like.Pattern)
	if err != nil {
		return nil, err
	}
	pattern := pv(nil)
	if pattern == nil {
		return func(*common.Row) truth { return tUnknown }, nil
	}
	re, err := likeToRegexp(common.ToString(pattern))
	if err != nil {
		return nil, err
	}
	not := like.Not
	return func(row *common.Row) truth {
		v := left(row)
		if v == nil {
			return tUnknown
		}
		return truthOf(re.MatchString(common.ToString(v)) != not)
	}, nil
}

// likeToRegexp translates a LIKE pattern, % matching any run and _ any single character, ignoring case.
func likeToRegexp(pattern string) (*regexp.Regexp, error) {
	sb := strings.Builder{}
	sb.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, errors.NewInvalidQueryError(err.Error())
	}
	return re, nil
}

func (c *compiler) operand(o *Operand) (valueFunc, error) {
	switch {
	case o.Placeholder:
		if c.argIndex >= len(c.args) {
			return nil, errors.NewInvalidQueryError("not enough selection args")
		}
		v, err := common.Normalize(c.args[c.argIndex])
		if err != nil {
			return nil, errors.NewInvalidQueryError(err.Error())
		}
		c.argIndex++
		return constant(v), nil
	case o.Null:
		return constant(nil), nil
	case o.Number != nil:
		if i, err := strconv.ParseInt(*o.Number, 10, 64); err == nil {
			return constant(i), nil
		}
		f, err := strconv.ParseFloat(*o.Number, 64)
		if err != nil {
			return nil, errors.NewInvalidQueryError("invalid number " + *o.Number)
		}
		return constant(f), nil
	case o.String != nil:
		return constant(*o.String), nil
	default:
		name := unquoteIdent(o.Column)
		idx, ok := c.resolve(name)
		if !ok {
			return nil, errors.NewUnknownColumnError(name)
		}
		return func(row *common.Row) interface{} {
			return row.Value(idx)
		}, nil
	}
}

func constant(v interface{}) valueFunc {
	return func(*common.Row) interface{} { return v }
}

func unquoteIdent(ident string) string {
	if len(ident) >= 2 && strings.HasPrefix(ident, "`") && strings.HasSuffix(ident, "`") {
		return ident[1 : len(ident)-1]
	}
	return ident
}
