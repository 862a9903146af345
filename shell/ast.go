//nolint:govet
package shell

import (
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
)

// AST of a shell command. SELECT, DELETE and statements passed through to a SQL source are matched
// before the grammar runs and are kept as raw text.
type AST struct {
	Select      string // Unaltered SELECT statement, if any.
	Passthrough string // Unaltered write statement for a source that executes SQL.
	Delete      *Delete

	Create   *CreateTable `(  "CREATE" "TABLE" @@`
	Insert   *Insert      ` | "INSERT" "INTO" @@`
	Count    bool         ` | @"COUNT"`
	Move     *Move        ` | "MOVE" @@`
	Show     *Show        ` | "SHOW" @@`
	Next     bool         ` | @"NEXT"`
	Previous bool         ` | @( "PREV" | "PREVIOUS" )`
	First    bool         ` | @"FIRST"`
	Last     bool         ` | @"LAST"`
	Row      bool         ` | @"ROW"`
	Columns  bool         ` | @"COLUMNS"`
	Requery  bool         ` | @"REQUERY"`
	Stats    bool         ` | @"STATS"`
	Tables   bool         ` | @"TABLES"`
	Close    bool         ` | @"CLOSE" ) ";"?`
}

type ColumnDef struct {
	Pos lexer.Position

	Name string      `@Ident`
	Type common.Type `@Ident` // Conversion done by common.Type.Capture()
}

type CreateTable struct {
	Name    string       `@Ident`
	Columns []*ColumnDef `"(" @@ ( "," @@ )* ")"`
}

func (c *CreateTable) ColumnInfos() []common.ColumnInfo {
	infos := make([]common.ColumnInfo, len(c.Columns))
	for i, def := range c.Columns {
		infos[i] = common.ColumnInfo{Name: unquote(def.Name), Type: def.Type}
	}
	return infos
}

type Insert struct {
	Table string   `@Ident "VALUES"`
	Rows  []*Tuple `@@ ( "," @@ )*`
}

type Tuple struct {
	Values []*Value `"(" @@ ( "," @@ )* ")"`
}

type Value struct {
	Null   bool    `  @"NULL"`
	Number *string `| @Number`
	String *string `| @String`
}

func (v *Value) ToValue() (interface{}, error) {
	switch {
	case v.Null:
		return nil, nil
	case v.Number != nil:
		if i, err := strconv.ParseInt(*v.Number, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(*v.Number, 64)
		if err != nil {
			return nil, errors.NewInvalidCommandError("invalid number " + *v.Number)
		}
		return f, nil
	default:
		return *v.String, nil
	}
}

func (i *Insert) Values() ([][]interface{}, error) {
	rows := make([][]interface{}, len(i.Rows))
	for r, tuple := range i.Rows {
		row := make([]interface{}, len(tuple.Values))
		for c, val := range tuple.Values {
			v, err := val.ToValue()
			if err != nil {
				return nil, err
			}
			row[c] = v
		}
		rows[r] = row
	}
	return rows, nil
}

type Move struct {
	Position int `@Number`
}

// Show prints Count rows starting at Position.
type Show struct {
	Position int  `@Number`
	Count    *int `@Number?`
}

type Delete struct {
	Table     string
	Selection string
}
