// Package cursor presents the result of an expensive query as one randomly addressable set of rows while
// fetching only the windows of it that are actually visited. Windows start at a base size and double up to a
// cap, so the first rows arrive quickly and long scans issue few queries.
//
// A Cursor is not safe for concurrent use.
package cursor

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/conf"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/partition"
	"github.com/squareup/lazyrows/query"
	"github.com/squareup/lazyrows/source"
)

// RowSource is what the cursor and each of its windows provide: a positionable row with typed cells.
type RowSource interface {
	source.Cells
	MoveToPosition(pos int) (bool, error)
	ColumnNames() ([]string, error)
}

type Options struct {
	BlockSize    int
	MaxBlockSize int
	// MaxResidentWindows bounds the windows holding fetched rows at once, 0 for no bound
	MaxResidentWindows int
	Metrics            *Metrics
}

func OptionsFromConfig(cfg *conf.Config) Options {
	return Options{
		BlockSize:          cfg.BlockSize,
		MaxBlockSize:       cfg.MaxBlockSize,
		MaxResidentWindows: cfg.MaxResidentWindows,
	}
}

type Cursor struct {
	src       source.DataSource
	spec      *query.Spec
	part      partition.Partition
	maxWins   int
	metrics   *Metrics
	columns   columnList
	observers observerSets

	counter       source.CountResult
	countObserver *countObserver
	count         int
	countKnown    bool
	epoch         uint64
	windows       []*window
	active        int
	pos           int
	resident      *residency
	stats         Stats
	closed        bool
}

var _ RowSource = (*Cursor)(nil)

// New creates a cursor over spec. No query runs until the cursor is first counted or moved.
func New(src source.DataSource, spec *query.Spec, opts Options) (*Cursor, error) {
	maxBlockSize := opts.MaxBlockSize
	if maxBlockSize == 0 {
		maxBlockSize = partition.DefaultMaxBlockSize
	}
	part, err := partition.New(opts.BlockSize, maxBlockSize)
	if err != nil {
		return nil, err
	}
	if opts.MaxResidentWindows < 0 {
		return nil, errors.NewInvalidConfigurationError("MaxResidentWindows must be >= 0")
	}
	m := opts.Metrics
	if m == nil {
		m = nopMetrics()
	}
	c := &Cursor{
		src:     src,
		spec:    spec,
		part:    part,
		maxWins: opts.MaxResidentWindows,
		metrics: m,
		active:  -1,
		pos:     -1,
	}
	c.countObserver = &countObserver{cursor: c}
	return c, nil
}

// countObserver turns invalidation of the count result into invalidation of the cursor.
type countObserver struct {
	cursor *Cursor
}

func (o *countObserver) OnChanged() {
}

func (o *countObserver) OnInvalidated() {
	o.cursor.invalidate()
}

func (c *Cursor) checkOpen() error {
	if c.closed {
		return errors.NewCursorClosedError()
	}
	return nil
}

func (c *Cursor) ensureCount() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.countKnown {
		return nil
	}
	counter, err := c.src.Count(c.spec, c.spec.Limit())
	if err != nil {
		return errors.Wrap(err, "counting rows of "+c.spec.Tables())
	}
	c.stats.CountQueries++
	c.metrics.countQueries.Inc()
	c.replaceCounter(counter)
	count, _ := counter.Count()
	return c.allocate(count)
}

func (c *Cursor) replaceCounter(counter source.CountResult) {
	if c.counter != nil {
		c.counter.UnregisterDataSetObserver(c.countObserver)
		if err := c.counter.Close(); err != nil {
			log.Warnf("failed to close count result %v", err)
		}
	}
	c.counter = counter
	counter.RegisterDataSetObserver(c.countObserver)
	c.observers.publishTo(counter)
}

// allocate starts a new epoch of count rows with an empty window for every block of the partition. Windows of
// the previous epoch are released.
func (c *Cursor) allocate(count int) error {
	blocks, err := c.part.Count(count)
	if err != nil {
		return err
	}
	c.releaseWindows()
	resident, err := newResidency(c.maxWins, c.evict)
	if err != nil {
		return err
	}
	c.windows = make([]*window, blocks)
	c.resident = resident
	c.active = -1
	c.count = count
	c.countKnown = true
	c.epoch++
	log.Debugf("cursor epoch %d over %s has %d rows in %d windows", c.epoch, c.spec.Tables(), count, blocks)
	return nil
}

func (c *Cursor) releaseWindows() {
	for _, w := range c.windows {
		if w == nil {
			continue
		}
		if err := w.release(); err != nil {
			log.Warnf("failed to release window %d %v", w.index, err)
		}
	}
	c.windows = nil
}

func (c *Cursor) evict(index int, w *window) {
	if c.active == index {
		c.active = -1
	}
	c.stats.Evictions++
	c.metrics.evictions.Inc()
	log.Debugf("evicting window %d", index)
	if err := w.release(); err != nil {
		log.Warnf("failed to release window %d %v", index, err)
	}
}

// invalidate forgets the row count. The next access issues a new count query and starts a new epoch.
func (c *Cursor) invalidate() {
	if c.closed || !c.countKnown {
		return
	}
	log.Debugf("cursor over %s invalidated in epoch %d", c.spec.Tables(), c.epoch)
	c.countKnown = false
	c.active = -1
	c.stats.Invalidations++
}

// Count returns the number of rows, running the count query if the count is not known.
func (c *Cursor) Count() (int, error) {
	if err := c.ensureCount(); err != nil {
		return 0, err
	}
	if _, err := c.ColumnNames(); err != nil {
		return 0, err
	}
	return c.count, nil
}

// ColumnNames returns the names of the result columns. They are resolved once and never change.
func (c *Cursor) ColumnNames() ([]string, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if !c.columns.resolved {
		names, err := c.src.ColumnNames(c.spec)
		if err != nil {
			return nil, errors.Wrap(err, "resolving column names of "+c.spec.Tables())
		}
		c.columns.names = names
		c.columns.resolved = true
	}
	return append([]string(nil), c.columns.names...), nil
}

func (c *Cursor) ColumnCount() int {
	names, err := c.ColumnNames()
	if err != nil {
		return 0
	}
	return len(names)
}

// ColumnIndex returns the index of the named column. The name may be qualified with a table name and is
// matched ignoring case.
func (c *Cursor) ColumnIndex(name string) (int, error) {
	names, err := c.ColumnNames()
	if err != nil {
		return -1, err
	}
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[dot+1:]
	}
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return -1, errors.NewUnknownColumnError(name)
}

// MoveToPosition positions the cursor on row pos. Moving before the first row or after the last row returns
// false and fetches nothing.
func (c *Cursor) MoveToPosition(pos int) (bool, error) {
	if err := c.ensureCount(); err != nil {
		return false, err
	}
	if pos < 0 {
		c.pos = -1
		return false, nil
	}
	if pos >= c.count {
		c.pos = c.count
		return false, nil
	}
	index := c.locate(pos)
	if index < 0 {
		c.pos = -1
		return false, nil
	}
	w := c.windows[index]
	if !w.materialized() {
		if err := w.materialize(); err != nil {
			return false, err
		}
		c.stats.WindowFetches++
		c.metrics.windowFetches.Inc()
		c.resident.add(w)
	} else {
		c.resident.touch(index)
	}
	ok, err := w.MoveToPosition(pos)
	if err != nil {
		return false, err
	}
	if !ok {
		c.pos = -1
		return false, nil
	}
	c.active = index
	c.pos = pos
	return true, nil
}

// locate returns the index of the window covering pos, creating windows up to it as needed.
func (c *Cursor) locate(pos int) int {
	if c.active >= 0 && c.windows[c.active].covers(pos) {
		c.stats.ActiveWindowHits++
		c.metrics.activeWindowHits.Inc()
		return c.active
	}
	offset := 0
	for i, w := range c.windows {
		if w == nil {
			w = newWindow(c.src, c.spec, &c.columns, &c.observers, i, offset, c.part.Size(i))
			c.windows[i] = w
		}
		if w.covers(pos) {
			return i
		}
		offset += w.size
	}
	return -1
}

func (c *Cursor) Move(offset int) (bool, error) {
	return c.MoveToPosition(c.pos + offset)
}

func (c *Cursor) MoveToFirst() (bool, error) {
	return c.MoveToPosition(0)
}

func (c *Cursor) MoveToLast() (bool, error) {
	count, err := c.Count()
	if err != nil {
		return false, err
	}
	return c.MoveToPosition(count - 1)
}

func (c *Cursor) MoveToNext() (bool, error) {
	return c.MoveToPosition(c.pos + 1)
}

func (c *Cursor) MoveToPrevious() (bool, error) {
	return c.MoveToPosition(c.pos - 1)
}

// Position returns the current row, -1 before the first row and the count after the last.
func (c *Cursor) Position() int {
	return c.pos
}

func (c *Cursor) IsFirst() (bool, error) {
	count, err := c.Count()
	return err == nil && count != 0 && c.pos == 0, err
}

func (c *Cursor) IsLast() (bool, error) {
	count, err := c.Count()
	return err == nil && count != 0 && c.pos == count-1, err
}

func (c *Cursor) IsBeforeFirst() (bool, error) {
	count, err := c.Count()
	return err == nil && (count == 0 || c.pos == -1), err
}

func (c *Cursor) IsAfterLast() (bool, error) {
	count, err := c.Count()
	return err == nil && (count == 0 || c.pos == count), err
}

func (c *Cursor) current() *window {
	if c.closed {
		panic("cursor is closed")
	}
	if !c.countKnown || c.active < 0 || c.pos < 0 || c.pos >= c.count {
		panic("cursor is not positioned on a row")
	}
	return c.windows[c.active]
}

func (c *Cursor) GetType(colIndex int) common.Type {
	return c.current().GetType(colIndex)
}

func (c *Cursor) IsNull(colIndex int) bool {
	return c.current().IsNull(colIndex)
}

func (c *Cursor) GetInt64(colIndex int) int64 {
	return c.current().GetInt64(colIndex)
}

func (c *Cursor) GetInt32(colIndex int) int32 {
	return int32(c.current().GetInt64(colIndex))
}

func (c *Cursor) GetInt16(colIndex int) int16 {
	return int16(c.current().GetInt64(colIndex))
}

func (c *Cursor) GetFloat64(colIndex int) float64 {
	return c.current().GetFloat64(colIndex)
}

func (c *Cursor) GetFloat32(colIndex int) float32 {
	return float32(c.current().GetFloat64(colIndex))
}

func (c *Cursor) GetString(colIndex int) string {
	return c.current().GetString(colIndex)
}

func (c *Cursor) GetBytes(colIndex int) []byte {
	return c.current().GetBytes(colIndex)
}

// Requery runs the count query again and starts a new epoch positioned before the first row. If the query
// fails the cursor is left exactly as it was. A count query that returns no row counts as zero rows.
func (c *Cursor) Requery() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.counter == nil {
		c.pos = -1
		return c.ensureCount()
	}
	if err := c.counter.Requery(); err != nil {
		log.Debugf("requery of cursor over %s failed %v", c.spec.Tables(), err)
		return errors.Wrap(err, "requerying rows of "+c.spec.Tables())
	}
	c.stats.CountQueries++
	c.metrics.countQueries.Inc()
	count, ok := c.counter.Count()
	if !ok {
		log.Debugf("count query over %s returned no row", c.spec.Tables())
		count = 0
	}
	if err := c.allocate(count); err != nil {
		return err
	}
	c.pos = -1
	return nil
}

// Deactivate deactivates every fetched window and the count result. The count result reports itself invalid,
// so the next access counts again.
func (c *Cursor) Deactivate() {
	if c.closed {
		return
	}
	for _, w := range c.windows {
		if w != nil {
			w.deactivate()
		}
	}
	if c.counter != nil {
		c.counter.Deactivate()
	}
}

// Close releases every window and the count result. Closing a closed cursor does nothing.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var firstErr error
	for _, w := range c.windows {
		if w == nil {
			continue
		}
		if err := w.release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.windows = nil
	c.resident = nil
	c.active = -1
	if c.counter != nil {
		c.counter.UnregisterDataSetObserver(c.countObserver)
		if err := c.counter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.counter = nil
	}
	c.countKnown = false
	return errors.MaybeAddStack(firstErr)
}

func (c *Cursor) IsClosed() bool {
	return c.closed
}

func (c *Cursor) RegisterContentObserver(observer source.ContentObserver) {
	if !c.observers.content.Add(observer) {
		return
	}
	c.eachObservable(func(o source.Observable) {
		o.RegisterContentObserver(observer)
	})
}

func (c *Cursor) UnregisterContentObserver(observer source.ContentObserver) {
	if !c.observers.content.Remove(observer) {
		return
	}
	c.eachObservable(func(o source.Observable) {
		o.UnregisterContentObserver(observer)
	})
}

func (c *Cursor) RegisterDataSetObserver(observer source.DataSetObserver) {
	if !c.observers.dataSet.Add(observer) {
		return
	}
	c.eachObservable(func(o source.Observable) {
		o.RegisterDataSetObserver(observer)
	})
}

func (c *Cursor) UnregisterDataSetObserver(observer source.DataSetObserver) {
	if !c.observers.dataSet.Remove(observer) {
		return
	}
	c.eachObservable(func(o source.Observable) {
		o.UnregisterDataSetObserver(observer)
	})
}

// eachObservable calls f with every fetched window result and the count result.
func (c *Cursor) eachObservable(f func(o source.Observable)) {
	for _, w := range c.windows {
		if w != nil && w.materialized() {
			f(w.rs)
		}
	}
	if c.counter != nil {
		f(c.counter)
	}
}

// Epoch increases each time the cursor counts its rows.
func (c *Cursor) Epoch() uint64 {
	return c.epoch
}

func (c *Cursor) Stats() Stats {
	s := c.stats
	s.Epoch = c.epoch
	s.Count = -1
	if c.countKnown {
		s.Count = c.count
	}
	s.Windows = len(c.windows)
	for _, w := range c.windows {
		if w != nil && w.materialized() {
			s.MaterializedWindows++
		}
	}
	return s
}
