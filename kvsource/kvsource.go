// Package kvsource is a DataSource over tables stored in a pebble database.
//
// Every key is a table id followed by a row id, both 8 byte big endian, so a table's rows sort in insertion
// order. Values are rows in the common row encoding. Table 0 is the catalog: its row ids are table ids and its
// rows hold the table name followed by a (name, type) pair per column.
package kvsource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	log "github.com/sirupsen/logrus"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/query"
	"github.com/squareup/lazyrows/source"
)

const catalogTableID = 0

type Source struct {
	mu          sync.RWMutex
	db          *pebble.DB
	tables      map[string]*table
	nextTableID uint64
	notifier    *source.Notifier
}

var _ source.DataSource = (*Source)(nil)

type table struct {
	info      *common.TableInfo
	lastRowID uint64
}

// Open opens or creates the database in dir. fs may be nil for the local filesystem.
func Open(dir string, fs vfs.FS) (*Source, error) {
	if fs == nil {
		fs = vfs.Default
	}
	db, err := pebble.Open(dir, &pebble.Options{FS: fs})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s := &Source{
		db:          db,
		tables:      make(map[string]*table),
		nextTableID: catalogTableID + 1,
		notifier:    source.NewNotifier(),
	}
	if err := s.loadCatalog(); err != nil {
		common.InvokeCloser(db)
		return nil, err
	}
	return s, nil
}

func (s *Source) Close() error {
	return errors.WithStack(s.db.Close())
}

func rowKey(tableID uint64, rowID uint64) []byte {
	key := make([]byte, 0, 16)
	key = common.AppendUint64ToBufferBE(key, tableID)
	return common.AppendUint64ToBufferBE(key, rowID)
}

func tableBounds(tableID uint64) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: rowKey(tableID, 0),
		UpperBound: rowKey(tableID+1, 0),
	}
}

func (s *Source) loadCatalog() error {
	iter := s.db.NewIter(tableBounds(catalogTableID))
	for iter.First(); iter.Valid(); iter.Next() {
		tableID, _ := common.ReadUint64FromBufferBE(iter.Key(), 8)
		row, err := common.DecodeRow(iter.Value())
		if err != nil {
			common.InvokeCloser(iter)
			return err
		}
		info, err := decodeTableInfo(tableID, &row)
		if err != nil {
			common.InvokeCloser(iter)
			return err
		}
		s.tables[strings.ToLower(info.Name)] = &table{info: info}
		if tableID >= s.nextTableID {
			s.nextTableID = tableID + 1
		}
	}
	if err := iter.Close(); err != nil {
		return errors.WithStack(err)
	}
	for _, t := range s.tables {
		lastRowID, err := s.lastRowID(t.info.ID)
		if err != nil {
			return err
		}
		t.lastRowID = lastRowID
		log.Debugf("loaded %s with last row id %d", t.info, lastRowID)
	}
	return nil
}

func (s *Source) lastRowID(tableID uint64) (uint64, error) {
	iter := s.db.NewIter(tableBounds(tableID))
	var rowID uint64
	if iter.Last() {
		rowID, _ = common.ReadUint64FromBufferBE(iter.Key(), 8)
	}
	return rowID, errors.WithStack(iter.Close())
}

func encodeTableInfo(info *common.TableInfo) []byte {
	vals := []interface{}{info.Name}
	for _, col := range info.Columns {
		vals = append(vals, col.Name, int64(col.Type))
	}
	row := common.NewRow(vals...)
	return common.EncodeRow(&row, nil)
}

func decodeTableInfo(tableID uint64, row *common.Row) (*common.TableInfo, error) {
	if row.ColCount()%2 != 1 {
		return nil, errors.Errorf("corrupt catalog entry for table %d", tableID)
	}
	info := &common.TableInfo{ID: tableID, Name: row.GetString(0)}
	for i := 1; i < row.ColCount(); i += 2 {
		info.Columns = append(info.Columns, common.ColumnInfo{
			Name: row.GetString(i),
			Type: common.Type(row.GetInt64(i + 1)),
		})
	}
	return info, nil
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
	info := &common.TableInfo{ID: s.nextTableID, Name: name, Columns: append([]common.ColumnInfo(nil), columns...)}
	if err := s.db.Set(rowKey(catalogTableID, info.ID), encodeTableInfo(info), pebble.Sync); err != nil {
		return nil, errors.WithStack(err)
	}
	s.nextTableID++
	s.tables[key] = &table{info: info}
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

// Insert writes rows to a table in one batch and notifies live count results.
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
	batch := s.db.NewBatch()
	rowID := t.lastRowID
	for _, vals := range rows {
		row, err := normalizeRow(t.info, vals)
		if err != nil {
			common.InvokeCloser(batch)
			return err
		}
		rowID++
		if err := batch.Set(rowKey(t.info.ID, rowID), common.EncodeRow(&row, nil), nil); err != nil {
			common.InvokeCloser(batch)
			return errors.WithStack(err)
		}
	}
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		return errors.WithStack(err)
	}
	t.lastRowID = rowID
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
	batch := s.db.NewBatch()
	n := 0
	iter := s.db.NewIter(tableBounds(t.info.ID))
	for iter.First(); iter.Valid(); iter.Next() {
		row, err := common.DecodeRow(iter.Value())
		if err != nil {
			common.InvokeCloser(iter)
			common.InvokeCloser(batch)
			return 0, err
		}
		if pred(&row) {
			if err := batch.Delete(common.CopyByteSlice(iter.Key()), nil); err != nil {
				common.InvokeCloser(iter)
				common.InvokeCloser(batch)
				return 0, errors.WithStack(err)
			}
			n++
		}
	}
	if err := iter.Close(); err != nil {
		common.InvokeCloser(batch)
		return 0, errors.WithStack(err)
	}
	if n == 0 {
		return 0, errors.WithStack(batch.Close())
	}
	return n, errors.WithStack(s.db.Apply(batch, pebble.Sync))
}

func (s *Source) getTable(name string) (*table, error) {
	t, ok := s.tables[strings.ToLower(name)]
	if !ok {
		return nil, errors.NewUnknownTableError(name)
	}
	return t, nil
}

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

// scanner returns a Scan over a table's rows in row id order.
func (s *Source) scanner(tableID uint64) query.Scan {
	return func(yield func(row *common.Row) bool) error {
		iter := s.db.NewIter(tableBounds(tableID))
		for iter.First(); iter.Valid(); iter.Next() {
			row, err := common.DecodeRow(iter.Value())
			if err != nil {
				common.InvokeCloser(iter)
				return err
			}
			if !yield(&row) {
				break
			}
		}
		return errors.WithStack(iter.Close())
	}
}

func (s *Source) Count(spec *query.Spec, limit *query.Limit) (source.CountResult, error) {
	return source.NewCounter(func() (int, bool, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		t, plan, err := s.plan(spec)
		if err != nil {
			return 0, false, err
		}
		n, err := plan.CountRows(s.scanner(t.info.ID), limit)
		if err != nil {
			return 0, false, err
		}
		return n, true, nil
	}, s.notifier)
}

func (s *Source) Fetch(spec *query.Spec, offset int, size int) (source.ResultSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, plan, err := s.plan(spec)
	if err != nil {
		return nil, err
	}
	limit := spec.WindowLimit(offset, size)
	selected, err := plan.Select(s.scanner(t.info.ID), &limit)
	if err != nil {
		return nil, err
	}
	names := plan.ColumnNames()
	rows := common.NewRows(len(names), len(selected))
	for _, row := range selected {
		rows.AppendRow(row)
	}
	return source.NewRowsResultSet(names, rows, nil), nil
}

func (s *Source) ColumnNames(spec *query.Spec) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, plan, err := s.plan(spec)
	if err != nil {
		return nil, err
	}
	return plan.ColumnNames(), nil
}
