package source

import (
	"github.com/squareup/lazyrows/common"
)

// RowsResultSet is a ResultSet over rows already held in memory.
type RowsResultSet struct {
	Observers
	names   []string
	rows    *common.Rows
	pos     int
	closed  bool
	onClose func()
}

// NewRowsResultSet creates a result set positioned before its first row. onClose, if not nil, is called once
// when the result set is closed.
func NewRowsResultSet(names []string, rows *common.Rows, onClose func()) *RowsResultSet {
	return &RowsResultSet{
		names:   names,
		rows:    rows,
		pos:     -1,
		onClose: onClose,
	}
}

func (r *RowsResultSet) Count() int {
	if r.closed {
		return 0
	}
	return r.rows.RowCount()
}

// MoveToPosition positions the result set on row pos. A position outside the rows leaves the result set
// before the first or after the last row and returns false.
func (r *RowsResultSet) MoveToPosition(pos int) bool {
	count := r.Count()
	switch {
	case pos < 0:
		r.pos = -1
		return false
	case pos >= count:
		r.pos = count
		return false
	}
	r.pos = pos
	return true
}

func (r *RowsResultSet) Position() int {
	return r.pos
}

func (r *RowsResultSet) ColumnNames() []string {
	return r.names
}

func (r *RowsResultSet) ColumnCount() int {
	return len(r.names)
}

func (r *RowsResultSet) current() *common.Row {
	if r.closed {
		panic("result set is closed")
	}
	if r.pos < 0 || r.pos >= r.rows.RowCount() {
		panic("result set is not positioned on a row")
	}
	row := r.rows.GetRow(r.pos)
	return &row
}

func (r *RowsResultSet) GetType(colIndex int) common.Type {
	return r.current().GetType(colIndex)
}

func (r *RowsResultSet) IsNull(colIndex int) bool {
	return r.current().IsNull(colIndex)
}

func (r *RowsResultSet) GetInt64(colIndex int) int64 {
	return r.current().GetInt64(colIndex)
}

func (r *RowsResultSet) GetFloat64(colIndex int) float64 {
	return r.current().GetFloat64(colIndex)
}

func (r *RowsResultSet) GetString(colIndex int) string {
	return r.current().GetString(colIndex)
}

func (r *RowsResultSet) GetBytes(colIndex int) []byte {
	return r.current().GetBytes(colIndex)
}

func (r *RowsResultSet) Deactivate() {
	r.NotifyInvalidated()
}

func (r *RowsResultSet) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.rows = nil
	if r.onClose != nil {
		r.onClose()
	}
	return nil
}

func (r *RowsResultSet) IsClosed() bool {
	return r.closed
}
