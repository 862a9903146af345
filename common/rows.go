package common

import "github.com/squareup/lazyrows/errors"

type Row struct {
	vals []interface{}
}

type Rows struct {
	numCols int
	rows    []Row
}

func NewRows(numCols int, capacity int) *Rows {
	return &Rows{numCols: numCols, rows: make([]Row, 0, capacity)}
}

// NewRow normalizes vals into a Row. It panics on values that have no cell representation.
func NewRow(vals ...interface{}) Row {
	norm := make([]interface{}, len(vals))
	for i, v := range vals {
		nv, err := Normalize(v)
		if err != nil {
			panic(err)
		}
		norm[i] = nv
	}
	return Row{vals: norm}
}

func (r *Rows) GetRow(rowIndex int) Row {
	return r.rows[rowIndex]
}

func (r *Rows) RowCount() int {
	return len(r.rows)
}

func (r *Rows) ColumnCount() int {
	return r.numCols
}

func (r *Rows) AppendRow(row Row) {
	if len(row.vals) != r.numCols {
		panic("row has wrong number of columns")
	}
	r.rows = append(r.rows, row)
}

// AppendValues normalizes vals and appends them as a row.
func (r *Rows) AppendValues(vals ...interface{}) error {
	if len(vals) != r.numCols {
		return errors.Errorf("expected %d values, got %d", r.numCols, len(vals))
	}
	norm := make([]interface{}, len(vals))
	for i, v := range vals {
		nv, err := Normalize(v)
		if err != nil {
			return err
		}
		norm[i] = nv
	}
	r.rows = append(r.rows, Row{vals: norm})
	return nil
}

func (r *Rows) AppendAll(other *Rows) {
	for _, row := range other.rows {
		r.AppendRow(row)
	}
}

func (r *Row) ColCount() int {
	return len(r.vals)
}

func (r *Row) Value(colIndex int) interface{} {
	return r.vals[colIndex]
}

func (r *Row) GetType(colIndex int) Type {
	return TypeOf(r.vals[colIndex])
}

func (r *Row) IsNull(colIndex int) bool {
	return r.vals[colIndex] == nil
}

func (r *Row) GetInt64(colIndex int) int64 {
	return ToInt64(r.vals[colIndex])
}

func (r *Row) GetFloat64(colIndex int) float64 {
	return ToFloat64(r.vals[colIndex])
}

func (r *Row) GetString(colIndex int) string {
	return ToString(r.vals[colIndex])
}

func (r *Row) GetBytes(colIndex int) []byte {
	return ToBytes(r.vals[colIndex])
}

// Project returns a new row holding the given columns of r, in order.
func (r *Row) Project(colIndexes []int) Row {
	vals := make([]interface{}, len(colIndexes))
	for i, ci := range colIndexes {
		vals[i] = r.vals[ci]
	}
	return Row{vals: vals}
}
