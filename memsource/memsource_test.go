package memsource

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/cursor"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/failinject"
	"github.com/squareup/lazyrows/query"
)

var peopleColumns = []common.ColumnInfo{
	{Name: "id", Type: common.TypeBigInt},
	{Name: "name", Type: common.TypeVarchar},
	{Name: "score", Type: common.TypeDouble},
}

func setupSource(t *testing.T, injector failinject.Injector, numRows int) *Source {
	t.Helper()
	src, err := New(injector)
	require.NoError(t, err)
	_, err = src.CreateTable("people", peopleColumns)
	require.NoError(t, err)
	rows := make([][]interface{}, numRows)
	for i := range rows {
		rows[i] = []interface{}{i, fmt.Sprintf("person-%d", i), float64(i % 7)}
	}
	require.NoError(t, src.Insert("people", rows...))
	return src
}

func openCursor(t *testing.T, src *Source, params query.Params) *cursor.Cursor {
	t.Helper()
	spec, err := query.NewSpec(params, query.SetTables("people"))
	require.NoError(t, err)
	c, err := cursor.New(src, spec, cursor.Options{BlockSize: 10})
	require.NoError(t, err)
	return c
}

func TestCreateTable(t *testing.T) {
	src, err := New(nil)
	require.NoError(t, err)
	info, err := src.CreateTable("people", peopleColumns)
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.ID)
	_, err = src.CreateTable("PEOPLE", peopleColumns)
	require.True(t, errors.HasCode(err, errors.InvalidQuery))
	_, err = src.CreateTable("empty", nil)
	require.True(t, errors.HasCode(err, errors.InvalidQuery))
	_, err = src.CreateTable("pets", []common.ColumnInfo{{Name: "name", Type: common.TypeVarchar}})
	require.NoError(t, err)
	tables := src.Tables()
	require.Equal(t, 2, len(tables))
	require.Equal(t, "people", tables[0].Name)
	require.Equal(t, "pets", tables[1].Name)
}

func TestInsertValidation(t *testing.T) {
	src := setupSource(t, nil, 0)
	err := src.Insert("people", []interface{}{1, "a"})
	require.True(t, errors.HasCode(err, errors.InvalidQuery))
	err = src.Insert("people", []interface{}{"one", "a", 1.0})
	require.True(t, errors.HasCode(err, errors.TypeMismatch))
	err = src.Insert("nobody", []interface{}{1})
	require.True(t, errors.HasCode(err, errors.UnknownTable))
	// integers widen into DOUBLE columns and NULL fits anywhere
	require.NoError(t, src.Insert("people", []interface{}{1, nil, 3}))
}

func TestScanMatchesDirectFetch(t *testing.T) {
	src := setupSource(t, nil, 700)
	c := openCursor(t, src, query.Params{})
	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 700, count)

	direct, err := src.Fetch(query.MustNewSpec(query.Params{}, query.SetTables("people")), 0, 700)
	require.NoError(t, err)
	for i := 0; i < count; i++ {
		ok, err := c.MoveToNext()
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, direct.MoveToPosition(i))
		require.Equal(t, direct.GetInt64(0), c.GetInt64(0))
		require.Equal(t, direct.GetString(1), c.GetString(1))
		require.Equal(t, direct.GetFloat64(2), c.GetFloat64(2))
	}
	stats := src.Stats()
	require.Equal(t, 1, stats.CountQueries)
	// seven windows from the cursor and one direct fetch
	require.Equal(t, 8, stats.Fetches)
	require.NoError(t, c.Close())
	require.NoError(t, direct.Close())
	require.Equal(t, 8, src.Stats().ResultSetsClosed)
}

func TestQueryShapes(t *testing.T) {
	src := setupSource(t, nil, 100)
	c := openCursor(t, src, query.Params{
		Columns:       []string{"name who", "score"},
		Selection:     "score = ? AND id < 50",
		SelectionArgs: []interface{}{3},
		OrderBy:       "id DESC",
	})
	names, err := c.ColumnNames()
	require.NoError(t, err)
	require.Equal(t, []string{"who", "score"}, names)
	count, err := c.Count()
	require.NoError(t, err)
	// 3, 10, 17, 24, 31, 38, 45
	require.Equal(t, 7, count)
	ok, err := c.MoveToFirst()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "person-45", c.GetString(0))
	ok, err = c.MoveToLast()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "person-3", c.GetString(0))
}

func TestLimitedQuery(t *testing.T) {
	src := setupSource(t, nil, 100)
	c := openCursor(t, src, query.Params{Selection: "id >= 20", Limit: "5,12"})
	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 12, count)
	ok, err := c.MoveToPosition(11)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(36), c.GetInt64(0))
	ok, err = c.MoveToPosition(12)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWritesInvalidateCursor(t *testing.T) {
	src := setupSource(t, nil, 30)
	c := openCursor(t, src, query.Params{})
	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 30, count)
	require.Equal(t, uint64(1), c.Epoch())

	require.NoError(t, src.Insert("people", []interface{}{30, "late", 1.5}))
	count, err = c.Count()
	require.NoError(t, err)
	require.Equal(t, 31, count)
	require.Equal(t, uint64(2), c.Epoch())
	require.Equal(t, 2, src.Stats().CountQueries)

	n, err := src.Delete("people", "id >= ?", 10)
	require.NoError(t, err)
	require.Equal(t, 21, n)
	count, err = c.Count()
	require.NoError(t, err)
	require.Equal(t, 10, count)
	require.Equal(t, 3, src.Stats().CountQueries)

	// deleting nothing does not invalidate
	n, err = src.Delete("people", "id > 1000")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	_, err = c.Count()
	require.NoError(t, err)
	require.Equal(t, 3, src.Stats().CountQueries)
	require.NoError(t, c.Close())
}

func TestRequeryFailureKeepsSnapshot(t *testing.T) {
	injector := failinject.NewInjector()
	src := setupSource(t, injector, 200)
	c := openCursor(t, src, query.Params{})
	ok, err := c.MoveToPosition(150)
	require.NoError(t, err)
	require.True(t, ok)

	injector.GetFailpoint(CountFailpoint).SetFailAction(failinject.ReturnError(errors.New("count unavailable")))
	require.Error(t, c.Requery())
	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 200, count)
	require.Equal(t, 150, c.Position())
	require.Equal(t, "person-150", c.GetString(1))

	injector.GetFailpoint(CountFailpoint).Deactivate()
	_, err = src.Delete("people", "id < 100")
	require.NoError(t, err)
	require.NoError(t, c.Requery())
	count, err = c.Count()
	require.NoError(t, err)
	require.Equal(t, 100, count)
	require.Equal(t, -1, c.Position())
}

func TestFetchFailpoint(t *testing.T) {
	injector := failinject.NewInjector()
	src := setupSource(t, injector, 20)
	c := openCursor(t, src, query.Params{})
	injector.GetFailpoint(FetchFailpoint).SetFailAction(failinject.ReturnError(errors.New("fetch unavailable")))
	_, err := c.MoveToPosition(3)
	require.Error(t, err)
	injector.GetFailpoint(FetchFailpoint).Deactivate()
	ok, err := c.MoveToPosition(3)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestUnknownTableAndColumn(t *testing.T) {
	src := setupSource(t, nil, 5)
	spec := query.MustNewSpec(query.Params{}, query.SetTables("nobody"))
	_, err := src.Count(spec, nil)
	require.True(t, errors.HasCode(err, errors.UnknownTable))
	_, err = src.ColumnNames(query.MustNewSpec(query.Params{Columns: []string{"age"}}, query.SetTables("people")))
	require.True(t, errors.HasCode(err, errors.UnknownColumn))
	_, err = src.Fetch(query.MustNewSpec(query.Params{GroupBy: "name"}, query.SetTables("people")), 0, 10)
	require.True(t, errors.HasCode(err, errors.InvalidQuery))
}
