package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	spec := MustNewSpec(Params{
		Columns:   []string{"id", "name"},
		Selection: "id > ?",
		OrderBy:   "name DESC",
	}, SetTables("people"))
	require.Equal(t, "SELECT id, name FROM people WHERE id > ? ORDER BY name DESC",
		BuildSelect(spec, spec.Columns(), nil))
	require.Equal(t, "SELECT id, name FROM people WHERE id > ? ORDER BY name DESC LIMIT 10 OFFSET 30",
		BuildSelect(spec, spec.Columns(), &Limit{Offset: 30, Count: 10}))
	require.Equal(t, "SELECT id, name FROM people WHERE id > ? ORDER BY name DESC LIMIT 0",
		BuildSelect(spec, spec.Columns(), &Limit{}))
}

func TestBuildSelectAllClauses(t *testing.T) {
	spec := MustNewSpec(Params{
		Columns:   []string{"kind", "count(*) c"},
		Selection: "price < 10",
		GroupBy:   "kind",
		Having:    "count(*) > 1",
	}, SetTables("items"), SetDistinct(true), AppendWhere("deleted = 0"))
	require.Equal(t, "SELECT DISTINCT kind, count(*) c FROM items WHERE (deleted = 0) AND (price < 10) GROUP BY kind HAVING count(*) > 1",
		BuildSelect(spec, spec.Columns(), nil))
}

func TestBuildCount(t *testing.T) {
	spec := MustNewSpec(Params{}, SetTables("people"))
	require.Equal(t, "SELECT COUNT('X') COUNT FROM (SELECT * FROM people) LIMIT 1", BuildCount(spec, nil))
	require.Equal(t, "SELECT COUNT('X') COUNT FROM (SELECT * FROM people LIMIT 5 OFFSET 2) LIMIT 1",
		BuildCount(spec, &Limit{Offset: 2, Count: 5}))
}

func TestCountQueryBuilderFunc(t *testing.T) {
	var b CountQueryBuilder = CountQueryBuilderFunc(func(spec *Spec, limit *Limit) string {
		return "SELECT n FROM counts WHERE t = '" + spec.Tables() + "'"
	})
	spec := MustNewSpec(Params{}, SetTables("people"))
	require.Equal(t, "SELECT n FROM counts WHERE t = 'people'", b.BuildCountQuery(spec, nil))
}
