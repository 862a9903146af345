package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	require.Equal(t, "NULL", TypeNull.String())
	require.Equal(t, "BIGINT", TypeBigInt.String())
	require.Equal(t, "DOUBLE", TypeDouble.String())
	require.Equal(t, "VARCHAR", TypeVarchar.String())
	require.Equal(t, "BLOB", TypeBlob.String())
	require.Equal(t, "Type(42)", Type(42).String())
}

func TestTypeCapture(t *testing.T) {
	tests := []struct {
		tokens []string
		want   Type
	}{
		{[]string{"int"}, TypeBigInt},
		{[]string{"BIGINT"}, TypeBigInt},
		{[]string{"Integer"}, TypeBigInt},
		{[]string{"real"}, TypeDouble},
		{[]string{"text"}, TypeVarchar},
		{[]string{"blob"}, TypeBlob},
	}
	for _, tt := range tests {
		var typ Type
		require.NoError(t, typ.Capture(tt.tokens))
		require.Equal(t, tt.want, typ, tt.tokens)
	}
	var typ Type
	require.Error(t, typ.Capture([]string{"TIMESTAMP"}))
}

func TestColumnAccepts(t *testing.T) {
	dbl := ColumnInfo{Name: "score", Type: TypeDouble}
	require.True(t, dbl.Accepts(1.5))
	require.True(t, dbl.Accepts(int64(2)))
	require.True(t, dbl.Accepts(nil))
	require.False(t, dbl.Accepts("x"))

	bi := ColumnInfo{Name: "id", Type: TypeBigInt}
	require.True(t, bi.Accepts(int64(2)))
	require.False(t, bi.Accepts(1.5))
	require.False(t, bi.Accepts([]byte{1}))
}

func TestTableColumnIndex(t *testing.T) {
	info := &TableInfo{ID: 3, Name: "people", Columns: []ColumnInfo{
		{Name: "id", Type: TypeBigInt},
		{Name: "Name", Type: TypeVarchar},
	}}
	require.Equal(t, []string{"id", "Name"}, info.ColumnNames())
	require.Equal(t, 1, info.ColumnIndex("NAME"))
	require.Equal(t, -1, info.ColumnIndex("age"))
	require.Equal(t, "table[id=3,name=people]", info.String())
}
