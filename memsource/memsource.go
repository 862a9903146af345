// Package memsource is an in-memory DataSource. Each table keeps its rows in a btree ordered by row id.
package memsource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/btree"
	log "github.com/sirupsen/logrus"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/failinject"
	"github.com/squareup/lazyrows/query"
	"github.com/squareup/lazyrows/source"
)

const (
	CountFailpoint = "memsource_count"
	FetchFailpoint = "memsource_fetch"
)

// Stats counts the queries a Source has run.
type Stats struct {
	CountQueries     int
	Fetches          int
	ColumnQueries    int
	ResultSetsClosed int
}

type Source struct {
	mu        sync.RWMutex
	tables    map[string]*table
	tableSeq  uint64
	countFP   failinject.Failpoint
	fetchFP   failinject.Failpoint
	notifier  *source.Notifier
	statsLock sync.Mutex
	stats     Stats
}

var _ source.DataSource = (*Source)(nil)

type table struct {
	info  *common.TableInfo
	rows  *btree.BTree
	rowID uint64
}

type rowItem struct {
	id  uint64
	row common.Row
}

func (r *rowItem) Less(than btree.Item) bool {
	return r.id < than.(*rowItem).id
}

// New creates an empty source. Its count and fetch failpoints are registered with injector, which may be nil.
func New(injector failinject.Injector) (*Source, error) {
	if injector == nil {
		injector = failinject.NewDummyInjector()
	}
	countFP, err := injector.RegisterFailpoint(CountFailpoint)
	if err != nil {
		return nil, err
	}
	fetchFP, err := injector.RegisterFailpoint(FetchFailpoint)
	if err != nil {
		return nil, err
	}
	return &Source{
		tables:   make(map[string]*table),
		countFP:  countFP,
		fetchFP:  fetchFP,
		notifier: source.NewNotifier(),
	}, nil
}

func (s *Source) CreateTable(name string, columns []common.ColumnInfo) (*common.TableInfo, error) {
	if len(columns) == 0 {
		return nil, errors.NewInvalidQueryError("table " + name + " must have at least one column")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := s.tables[key]; ok {
		return nil, errors.NewInvalidQueryError("table " + name + " already exists")
	}
	s.tableSeq++
	info := &common.TableInfo{ID: s.tableSeq, Name: name, Columns: append([]common.ColumnInfo(nil), columns...)}
	s.tables[key] = &table{info: info, rows: btree.New(3)}
	return info, nil
}

func (s *Source) Tables() []*common.TableInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*common.TableInfo, 0, len(s.tables))
	for _, t := range s.tables {
		res = append(res, t.info)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Insert appends rows to a table and notifies live count results once.
func (s *Source) Insert(tableName string, rows ...[]interface{}) error {
	if err := s.insert(tableName, rows); err != nil {
		return err
	}
	s.notifier.Notify()
	return nil
}

func (s *Source) insert(tableName string, rows [][]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.getTable(tableName)
	if err != nil {
		return err
	}
	items := make([]*rowItem, len(rows))
	for i, vals := range rows {
		row, err := normalizeRow(t.info, vals)
		if err != nil {
			return err
		}
		items[i] = &rowItem{row: row}
	}
	for _, item := range items {
		t.rowID++
		item.id = t.rowID
		t.rows.ReplaceOrInsert(item)
	}
	return nil
}

func normalizeRow(info *common.TableInfo, vals []interface{}) (common.Row, error) {
	if len(vals) != len(info.Columns) {
		return common.Row{}, errors.NewInvalidQueryError(fmt.Sprintf("table %s expects %d values, got %d",
			info.Name, len(info.Columns), len(vals)))
	}
	norm := make([]interface{}, len(vals))
	for i, v := range vals {
		nv, err := common.Normalize(v)
		if err != nil {
			return common.Row{}, err
		}
		if !info.Columns[i].Accepts(nv) {
			return common.Row{}, errors.NewTypeMismatchError(info.Name, info.Columns[i].Name, v)
		}
		norm[i] = nv
	}
	return common.NewRow(norm...), nil
}

// Delete removes the rows a selection matches and returns how many were removed.
func (s *Source) Delete(tableName string, selection string, args ...interface{}) (int, error) {
	n, err := s.delete(tableName, selection, args)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.notifier.Notify()
	}
	return n, nil
}

func (s *Source) delete(tableName string, selection string, args []interface{}) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.getTable(tableName)
	if err != nil {
		return 0, err
	}
	pred, err := query.CompilePredicate(selection, args, func(name string) (int, bool) {
		idx := t.info.ColumnIndex(name)
		return idx, idx >= 0
	})
	if err != nil {
		return 0, err
	}
	var doomed []btree.Item
	t.rows.Ascend(func(i btree.Item) bool {
		if pred(&i.(*rowItem).row) {
			doomed = append(doomed, i)
		}
		return true
	})
	for _, item := range doomed {
		t.rows.Delete(item)
	}
	return len(doomed), nil
}

func (s *Source) getTable(name string) (*table, error) {
	t, ok := s.tables[strings.ToLower(name)]
	if !ok {
		return nil, errors.NewUnknownTableError(name)
	}
	return t, nil
}

// plan resolves the spec's table and plans the query against it. Callers hold the read lock.
func (s *Source) plan(spec *query.Spec) (*table, *query.Plan, error) {
	name, err := query.SingleTable(spec)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.getTable(name)
	if err != nil {
		return nil, nil, err
	}
	plan, err := query.NewPlan(spec, t.info)
	if err != nil {
		return nil, nil, err
	}
	return t, plan, nil
}

func (t *table) scan(yield func(row *common.Row) bool) error {
	t.rows.Ascend(func(i btree.Item) bool {
		return yield(&i.(*rowItem).row)
	})
	return nil
}

func (s *Source) Count(spec *query.Spec, limit *query.Limit) (source.CountResult, error) {
	return source.NewCounter(func() (int, bool, error) {
		return s.count(spec, limit)
	}, s.notifier)
}

func (s *Source) count(spec *query.Spec, limit *query.Limit) (int, bool, error) {
	s.updateStats(func(stats *Stats) { stats.CountQueries++ })
	if err := s.countFP.CheckFail(); err != nil {
		return 0, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, plan, err := s.plan(spec)
	if err != nil {
		return 0, false, err
	}
	n, err := plan.CountRows(t.scan, limit)
	if err != nil {
		return 0, false, err
	}
	log.Debugf("counted %d rows in %s", n, t.info.Name)
	return n, true, nil
}

func (s *Source) Fetch(spec *query.Spec, offset int, size int) (source.ResultSet, error) {
	s.updateStats(func(stats *Stats) { stats.Fetches++ })
	if err := s.fetchFP.CheckFail(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, plan, err := s.plan(spec)
	if err != nil {
		return nil, err
	}
	limit := spec.WindowLimit(offset, size)
	selected, err := plan.Select(t.scan, &limit)
	if err != nil {
		return nil, err
	}
	names := plan.ColumnNames()
	rows := common.NewRows(len(names), len(selected))
	for _, row := range selected {
		rows.AppendRow(row)
	}
	return source.NewRowsResultSet(names, rows, func() {
		s.updateStats(func(stats *Stats) { stats.ResultSetsClosed++ })
	}), nil
}

func (s *Source) ColumnNames(spec *query.Spec) ([]string, error) {
	s.updateStats(func(stats *Stats) { stats.ColumnQueries++ })
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, plan, err := s.plan(spec)
	if err != nil {
		return nil, err
	}
	return plan.ColumnNames(), nil
}

func (s *Source) updateStats(f func(stats *Stats)) {
	s.statsLock.Lock()
	defer s.statsLock.Unlock()
	f(&s.stats)
}

func (s *Source) Stats() Stats {
	s.statsLock.Lock()
	defer s.statsLock.Unlock()
	return s.stats
}
