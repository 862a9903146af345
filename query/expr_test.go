package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
)

var exprTable = &common.TableInfo{
	ID:   1,
	Name: "people",
	Columns: []common.ColumnInfo{
		{Name: "id", Type: common.TypeBigInt},
		{Name: "name", Type: common.TypeVarchar},
		{Name: "score", Type: common.TypeDouble},
	},
}

func resolveExprTable(name string) (int, bool) {
	idx := exprTable.ColumnIndex(name)
	return idx, idx >= 0
}

func TestCompilePredicate(t *testing.T) {
	rows := []common.Row{
		common.NewRow(1, "alice", 3.5),
		common.NewRow(2, "bob", nil),
		common.NewRow(3, "carol", 9.0),
		common.NewRow(4, nil, 1.0),
	}
	cases := []struct {
		selection string
		args      []interface{}
		expected  []int64
	}{
		{"", nil, []int64{1, 2, 3, 4}},
		{"id = 2", nil, []int64{2}},
		{"id >= ? AND id < ?", []interface{}{2, 4}, []int64{2, 3}},
		{"id = 1 OR name = 'carol'", nil, []int64{1, 3}},
		{"NOT id = 1", nil, []int64{2, 3, 4}},
		{"score IS NULL", nil, []int64{2}},
		{"name IS NOT NULL AND score > 2", nil, []int64{1, 3}},
		{"name LIKE 'a%'", nil, []int64{1}},
		{"name LIKE '_o_'", nil, []int64{2}},
		{"name NOT LIKE ?", []interface{}{"%o%"}, []int64{1}},
		{"(id = 1 OR id = 2) AND score > 1", nil, []int64{1}},
		{"score <> 1.0", nil, []int64{1, 3}},
		{"NOT score > 2", nil, []int64{4}},
		{"ID = 3", nil, []int64{3}},
		{"`name` = \"bob\"", nil, []int64{2}},
		{"id", nil, []int64{1, 2, 3, 4}},
		{"score = NULL", nil, nil},
	}
	for _, c := range cases {
		pred, err := CompilePredicate(c.selection, c.args, resolveExprTable)
		require.NoError(t, err, c.selection)
		var ids []int64
		for i := range rows {
			if pred(&rows[i]) {
				ids = append(ids, rows[i].GetInt64(0))
			}
		}
		require.Equal(t, c.expected, ids, c.selection)
	}
}

func TestCompilePredicateErrors(t *testing.T) {
	cases := []struct {
		selection string
		args      []interface{}
		code      errors.ErrorCode
	}{
		{"id = ", nil, errors.InvalidQuery},
		{"id = ?", nil, errors.InvalidQuery},
		{"id = ?", []interface{}{1, 2}, errors.InvalidQuery},
		{"", []interface{}{1}, errors.InvalidQuery},
		{"missing = 1", nil, errors.UnknownColumn},
		{"name LIKE name", nil, errors.InvalidQuery},
	}
	for _, c := range cases {
		_, err := CompilePredicate(c.selection, c.args, resolveExprTable)
		require.Error(t, err, c.selection)
		require.True(t, errors.HasCode(err, c.code), "%s: %v", c.selection, err)
	}
}

func TestParseOrderBy(t *testing.T) {
	terms, err := ParseOrderBy("")
	require.NoError(t, err)
	require.Nil(t, terms)

	terms, err = ParseOrderBy("name DESC, id asc, `score`")
	require.NoError(t, err)
	require.Equal(t, []*OrderTerm{
		{Column: "name", Desc: true},
		{Column: "id"},
		{Column: "score"},
	}, terms)

	_, err = ParseOrderBy("name DESC DESC")
	require.True(t, errors.HasCode(err, errors.InvalidQuery))
}
