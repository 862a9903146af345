package kvsource

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/cursor"
	"github.com/squareup/lazyrows/errors"
	"github.com/squareup/lazyrows/query"
)

var eventColumns = []common.ColumnInfo{
	{Name: "seq", Type: common.TypeBigInt},
	{Name: "kind", Type: common.TypeVarchar},
	{Name: "payload", Type: common.TypeBlob},
}

func openWithEvents(t *testing.T, fs vfs.FS, numRows int) *Source {
	t.Helper()
	src, err := Open("lazyrows-test", fs)
	require.NoError(t, err)
	_, err = src.CreateTable("events", eventColumns)
	require.NoError(t, err)
	rows := make([][]interface{}, numRows)
	for i := range rows {
		kind := "click"
		if i%3 == 0 {
			kind = "view"
		}
		rows[i] = []interface{}{i, kind, []byte(fmt.Sprintf("p%d", i))}
	}
	require.NoError(t, src.Insert("events", rows...))
	return src
}

func TestCursorOverPebble(t *testing.T) {
	src := openWithEvents(t, vfs.NewMem(), 1500)
	defer func() {
		require.NoError(t, src.Close())
	}()
	spec := query.MustNewSpec(query.Params{}, query.SetTables("events"))
	c, err := cursor.New(src, spec, cursor.Options{BlockSize: 16})
	require.NoError(t, err)
	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 1500, count)

	for _, pos := range []int{1499, 0, 700, 701, 16} {
		ok, err := c.MoveToPosition(pos)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(pos), c.GetInt64(0))
		require.Equal(t, []byte(fmt.Sprintf("p%d", pos)), c.GetBytes(2))
	}
	require.Equal(t, 4, c.Stats().WindowFetches)
	require.NoError(t, c.Close())
}

func TestFilteredAndOrdered(t *testing.T) {
	src := openWithEvents(t, vfs.NewMem(), 30)
	defer func() {
		require.NoError(t, src.Close())
	}()
	spec := query.MustNewSpec(query.Params{
		Columns:   []string{"seq", "kind"},
		Selection: "kind = 'view'",
		OrderBy:   "seq DESC",
	}, query.SetTables("events"))
	c, err := cursor.New(src, spec, cursor.Options{BlockSize: 4})
	require.NoError(t, err)
	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 10, count)
	var seqs []int64
	for {
		ok, err := c.MoveToNext()
		require.NoError(t, err)
		if !ok {
			break
		}
		seqs = append(seqs, c.GetInt64(0))
	}
	require.Equal(t, []int64{27, 24, 21, 18, 15, 12, 9, 6, 3, 0}, seqs)
}

func TestReopenLoadsCatalog(t *testing.T) {
	fs := vfs.NewMem()
	src := openWithEvents(t, fs, 5)
	_, err := src.CreateTable("users", []common.ColumnInfo{{Name: "name", Type: common.TypeVarchar}})
	require.NoError(t, err)
	require.NoError(t, src.Close())

	src, err = Open("lazyrows-test", fs)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, src.Close())
	}()
	tables := src.Tables()
	require.Equal(t, 2, len(tables))
	require.Equal(t, "events", tables[0].Name)
	require.Equal(t, eventColumns, tables[0].Columns)
	require.Equal(t, uint64(2), tables[1].ID)

	// row ids continue after the stored rows
	require.NoError(t, src.Insert("events", []interface{}{5, "view", nil}))
	info, err := src.CreateTable("orders", []common.ColumnInfo{{Name: "id", Type: common.TypeBigInt}})
	require.NoError(t, err)
	require.Equal(t, uint64(3), info.ID)

	spec := query.MustNewSpec(query.Params{Columns: []string{"seq"}}, query.SetTables("events"))
	rs, err := src.Fetch(spec, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 6, rs.Count())
	require.True(t, rs.MoveToPosition(5))
	require.Equal(t, int64(5), rs.GetInt64(0))
}

func TestWritesInvalidate(t *testing.T) {
	src := openWithEvents(t, vfs.NewMem(), 12)
	defer func() {
		require.NoError(t, src.Close())
	}()
	spec := query.MustNewSpec(query.Params{}, query.SetTables("events"))
	c, err := cursor.New(src, spec, cursor.Options{BlockSize: 4})
	require.NoError(t, err)
	count, err := c.Count()
	require.NoError(t, err)
	require.Equal(t, 12, count)

	n, err := src.Delete("events", "kind = ?", "click")
	require.NoError(t, err)
	require.Equal(t, 8, n)
	count, err = c.Count()
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.Equal(t, uint64(2), c.Epoch())

	n, err = src.Delete("events", "seq > 100")
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, uint64(2), c.Epoch())
}

func TestErrors(t *testing.T) {
	src := openWithEvents(t, vfs.NewMem(), 1)
	defer func() {
		require.NoError(t, src.Close())
	}()
	_, err := src.CreateTable("Events", eventColumns)
	require.True(t, errors.HasCode(err, errors.InvalidQuery))
	err = src.Insert("events", []interface{}{1, 2, nil})
	require.True(t, errors.HasCode(err, errors.TypeMismatch))
	err = src.Insert("nope", []interface{}{1})
	require.True(t, errors.HasCode(err, errors.UnknownTable))
	_, err = src.Count(query.MustNewSpec(query.Params{}, query.SetTables("nope")), nil)
	require.True(t, errors.HasCode(err, errors.UnknownTable))
	_, err = src.ColumnNames(query.MustNewSpec(query.Params{}, query.SetTables("events, nope")))
	require.True(t, errors.HasCode(err, errors.InvalidQuery))
}
