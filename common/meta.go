package common

import (
	"fmt"
	"strings"

	"github.com/squareup/lazyrows/errors"
)

type Type int

const (
	TypeNull Type = iota
	TypeBigInt
	TypeDouble
	TypeVarchar
	TypeBlob
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeBigInt:
		return "BIGINT"
	case TypeDouble:
		return "DOUBLE"
	case TypeVarchar:
		return "VARCHAR"
	case TypeBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Capture lets a Type be parsed directly from a column definition.
func (t *Type) Capture(tokens []string) error {
	text := strings.ToUpper(strings.Join(tokens, " "))
	switch text {
	case "BIGINT", "INT", "INTEGER":
		*t = TypeBigInt
	case "DOUBLE", "FLOAT", "REAL":
		*t = TypeDouble
	case "VARCHAR", "TEXT":
		*t = TypeVarchar
	case "BLOB":
		*t = TypeBlob
	default:
		return errors.Errorf("unknown column type %s", text)
	}
	return nil
}

// TypeOf returns the storage type of a normalized cell value.
func TypeOf(value interface{}) Type {
	switch value.(type) {
	case nil:
		return TypeNull
	case int64:
		return TypeBigInt
	case float64:
		return TypeDouble
	case string:
		return TypeVarchar
	case []byte:
		return TypeBlob
	default:
		panic(fmt.Sprintf("not a normalized cell value %T", value))
	}
}

type ColumnInfo struct {
	Name string
	Type Type
}

// Accepts reports whether a normalized value can be stored in the column. NULL is accepted by every column.
func (c ColumnInfo) Accepts(value interface{}) bool {
	vt := TypeOf(value)
	if vt == TypeNull || vt == c.Type {
		return true
	}
	// integers widen into DOUBLE columns
	return c.Type == TypeDouble && vt == TypeBigInt
}

type TableInfo struct {
	ID      uint64
	Name    string
	Columns []ColumnInfo
}

func (t *TableInfo) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIndex returns the index of the named column, ignoring case, or -1.
func (t *TableInfo) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return i
		}
	}
	return -1
}

func (t *TableInfo) String() string {
	return fmt.Sprintf("table[id=%d,name=%s]", t.ID, t.Name)
}
