package shell

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/cursor"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/source"
)

const defaultShowCount = 10

// TableStore is implemented by sources that define and write their own tables.
type TableStore interface {
	CreateTable(name string, columns []common.ColumnInfo) (*common.TableInfo, error)
	Tables() []*common.TableInfo
	Insert(tableName string, rows ...[]interface{}) error
	Delete(tableName string, selection string, args ...interface{}) (int, error)
}

// Execer is implemented by sources that execute SQL writes themselves.
type Execer interface {
	Exec(stmt string, args ...interface{}) (sql.Result, error)
}

// Executor runs shell commands against one data source, keeping at most one cursor open.
type Executor struct {
	src    source.DataSource
	opts   cursor.Options
	out    io.Writer
	cursor *cursor.Cursor
}

func NewExecutor(src source.DataSource, opts cursor.Options, out io.Writer) *Executor {
	return &Executor{
		src:  src,
		opts: opts,
		out:  out,
	}
}

// Cursor returns the open cursor, or nil.
func (e *Executor) Cursor() *cursor.Cursor {
	return e.cursor
}

// Execute runs a single command, writing its output.
func (e *Executor) Execute(command string) error {
	execer, passthrough := e.src.(Execer)
	ast, err := Parse(command, passthrough)
	if err != nil {
		return err
	}
	log.Debugf("executing command %q", command)
	switch {
	case ast.Select != "":
		return e.open(ast.Select)
	case ast.Passthrough != "":
		res, err := execer.Exec(ast.Passthrough)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		e.printf("%d rows affected\n", n)
		return nil
	case ast.Create != nil, ast.Insert != nil, ast.Delete != nil, ast.Tables:
		return e.executeTableCommand(ast)
	}
	if e.cursor == nil {
		return errors.NewInvalidCommandError("no cursor is open, run a SELECT first")
	}
	switch {
	case ast.Count:
		count, err := e.cursor.Count()
		if err != nil {
			return err
		}
		e.printf("%d rows\n", count)
	case ast.Move != nil:
		return e.moveAndPrint(func() (bool, error) { return e.cursor.MoveToPosition(ast.Move.Position) })
	case ast.Show != nil:
		return e.show(ast.Show)
	case ast.Next:
		return e.moveAndPrint(e.cursor.MoveToNext)
	case ast.Previous:
		return e.moveAndPrint(e.cursor.MoveToPrevious)
	case ast.First:
		return e.moveAndPrint(e.cursor.MoveToFirst)
	case ast.Last:
		return e.moveAndPrint(e.cursor.MoveToLast)
	case ast.Row:
		// the active window may have been invalidated since the last move
		pos := e.cursor.Position()
		return e.moveAndPrint(func() (bool, error) { return e.cursor.MoveToPosition(pos) })
	case ast.Columns:
		names, err := e.cursor.ColumnNames()
		if err != nil {
			return err
		}
		e.printf("%s\n", strings.Join(names, "|"))
	case ast.Requery:
		if err := e.cursor.Requery(); err != nil {
			return err
		}
		count, err := e.cursor.Count()
		if err != nil {
			return err
		}
		e.printf("requeried, %d rows\n", count)
	case ast.Stats:
		s := e.cursor.Stats()
		e.printf("epoch=%d count=%d windows=%d materialized=%d count_queries=%d fetches=%d hits=%d evictions=%d invalidations=%d\n",
			s.Epoch, s.Count, s.Windows, s.MaterializedWindows, s.CountQueries, s.WindowFetches, s.ActiveWindowHits,
			s.Evictions, s.Invalidations)
	case ast.Close:
		err := e.cursor.Close()
		e.cursor = nil
		if err != nil {
			return err
		}
		e.printf("closed\n")
	default:
		return errors.NewInvalidCommandError("unsupported command " + command)
	}
	return nil
}

func (e *Executor) open(stmt string) error {
	spec, err := ParseSelect(stmt)
	if err != nil {
		return err
	}
	c, err := cursor.New(e.src, spec, e.opts)
	if err != nil {
		return err
	}
	if err := e.Close(); err != nil {
		log.Warnf("failed to close previous cursor %v", err)
	}
	e.cursor = c
	e.printf("opened cursor on %s\n", spec.Tables())
	return nil
}

func (e *Executor) executeTableCommand(ast *AST) error {
	store, ok := e.src.(TableStore)
	if !ok {
		return errors.NewInvalidCommandError("the data source does not manage its own tables")
	}
	switch {
	case ast.Create != nil:
		info, err := store.CreateTable(unquote(ast.Create.Name), ast.Create.ColumnInfos())
		if err != nil {
			return err
		}
		e.printf("created %s\n", info.Name)
	case ast.Insert != nil:
		rows, err := ast.Insert.Values()
		if err != nil {
			return err
		}
		if err := store.Insert(unquote(ast.Insert.Table), rows...); err != nil {
			return err
		}
		e.printf("%d rows affected\n", len(rows))
	case ast.Delete != nil:
		n, err := store.Delete(ast.Delete.Table, ast.Delete.Selection)
		if err != nil {
			return err
		}
		e.printf("%d rows affected\n", n)
	case ast.Tables:
		for _, info := range store.Tables() {
			cols := make([]string, len(info.Columns))
			for i, col := range info.Columns {
				cols[i] = col.Name + " " + col.Type.String()
			}
			e.printf("%s(%s)\n", info.Name, strings.Join(cols, ", "))
		}
	}
	return nil
}

func (e *Executor) moveAndPrint(move func() (bool, error)) error {
	ok, err := move()
	if err != nil {
		return err
	}
	if !ok {
		e.printf("no row at position %d\n", e.cursor.Position())
		return nil
	}
	e.printRow()
	return nil
}

func (e *Executor) show(show *Show) error {
	n := defaultShowCount
	if show.Count != nil {
		n = *show.Count
	}
	names, err := e.cursor.ColumnNames()
	if err != nil {
		return err
	}
	e.printf("%s\n", strings.Join(names, "|"))
	for pos := show.Position; pos < show.Position+n; pos++ {
		ok, err := e.cursor.MoveToPosition(pos)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		e.printRow()
	}
	return nil
}

func (e *Executor) printRow() {
	c := e.cursor
	cells := make([]string, c.ColumnCount())
	for i := range cells {
		cells[i] = formatCell(c, i)
	}
	e.printf("%d: %s\n", c.Position(), strings.Join(cells, "|"))
}

func formatCell(c *cursor.Cursor, colIndex int) string {
	switch c.GetType(colIndex) {
	case common.TypeNull:
		return "NULL"
	case common.TypeBigInt:
		return strconv.FormatInt(c.GetInt64(colIndex), 10)
	case common.TypeDouble:
		return strconv.FormatFloat(c.GetFloat64(colIndex), 'g', -1, 64)
	case common.TypeBlob:
		return "x'" + hex.EncodeToString(c.GetBytes(colIndex)) + "'"
	default:
		return c.GetString(colIndex)
	}
}

func (e *Executor) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(e.out, format, args...); err != nil {
		log.Warnf("failed to write output %v", err)
	}
}

// Close closes the open cursor, if any.
func (e *Executor) Close() error {
	if e.cursor == nil {
		return nil
	}
	err := e.cursor.Close()
	e.cursor = nil
	return err
}
