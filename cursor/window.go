package cursor

import (
	log "github.com/sirupsen/logrus"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/query"
	"github.com/squareup/lazyrows/source"
)

// columnList is the column name list a cursor resolves once and shares with its windows.
type columnList struct {
	names    []string
	resolved bool
}

// observerSets is the cursor's canonical set of observers. Windows read it when they materialize.
type observerSets struct {
	content source.ObserverSet[source.ContentObserver]
	dataSet source.ObserverSet[source.DataSetObserver]
}

func (o *observerSets) publishTo(target source.Observable) {
	for _, observer := range o.content.Items() {
		target.RegisterContentObserver(observer)
	}
	for _, observer := range o.dataSet.Items() {
		target.RegisterDataSetObserver(observer)
	}
}

// window covers rows [offset, offset+size) of the query result and fetches them on first use.
type window struct {
	src        source.DataSource
	spec       *query.Spec
	columns    *columnList
	observers  *observerSets
	index      int
	offset     int
	size       int
	rs         source.ResultSet
	positioned bool
}

var _ RowSource = (*window)(nil)

func newWindow(src source.DataSource, spec *query.Spec, columns *columnList, observers *observerSets, index int,
	offset int, size int) *window {
	return &window{
		src:       src,
		spec:      spec,
		columns:   columns,
		observers: observers,
		index:     index,
		offset:    offset,
		size:      size,
	}
}

func (w *window) covers(pos int) bool {
	return pos >= w.offset && pos < w.offset+w.size
}

func (w *window) materialized() bool {
	return w.rs != nil
}

func (w *window) materialize() error {
	if w.rs != nil {
		return nil
	}
	rs, err := w.src.Fetch(w.spec, w.offset, w.size)
	if err != nil {
		return errors.Wrapf(err, "fetching window %d [%d, %d)", w.index, w.offset, w.offset+w.size)
	}
	log.Debugf("materialized window %d [%d, %d) with %d rows", w.index, w.offset, w.offset+w.size, rs.Count())
	w.rs = rs
	w.observers.publishTo(rs)
	return nil
}

// MoveToPosition positions the window on the absolute row pos, fetching the window's rows if needed.
func (w *window) MoveToPosition(pos int) (bool, error) {
	if err := w.materialize(); err != nil {
		return false, err
	}
	w.positioned = w.rs.MoveToPosition(pos - w.offset)
	return w.positioned, nil
}

func (w *window) ColumnNames() ([]string, error) {
	return append([]string(nil), w.columns.names...), nil
}

func (w *window) cells() source.Cells {
	if !w.positioned {
		panic("window read before it was positioned on a row")
	}
	return w.rs
}

func (w *window) ColumnCount() int {
	return w.cells().ColumnCount()
}

func (w *window) GetType(colIndex int) common.Type {
	return w.cells().GetType(colIndex)
}

func (w *window) IsNull(colIndex int) bool {
	return w.cells().IsNull(colIndex)
}

func (w *window) GetInt64(colIndex int) int64 {
	return w.cells().GetInt64(colIndex)
}

func (w *window) GetFloat64(colIndex int) float64 {
	return w.cells().GetFloat64(colIndex)
}

func (w *window) GetString(colIndex int) string {
	return w.cells().GetString(colIndex)
}

func (w *window) GetBytes(colIndex int) []byte {
	return w.cells().GetBytes(colIndex)
}

func (w *window) deactivate() {
	if w.rs != nil {
		w.rs.Deactivate()
	}
}

// release closes the fetched rows, if any. A released window fetches again on its next move.
func (w *window) release() error {
	w.positioned = false
	if w.rs == nil {
		return nil
	}
	rs := w.rs
	w.rs = nil
	return rs.Close()
}
