// Package source defines what a cursor needs from the engine that runs its queries.
package source

import (
	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/query"
)

// DataSource executes the count and ranged fetch queries of a Spec. Implementations must be safe for use by
// many cursors at once.
type DataSource interface {
	// Count runs the count query of spec, restricted to limit when it is not nil.
	Count(spec *query.Spec, limit *query.Limit) (CountResult, error)

	// Fetch returns rows [offset, offset+size) of the spec's result.
	Fetch(spec *query.Spec, offset int, size int) (ResultSet, error)

	ColumnNames(spec *query.Spec) ([]string, error)
}

// Cells gives typed access to the columns of the current row.
type Cells interface {
	ColumnCount() int
	GetType(colIndex int) common.Type
	IsNull(colIndex int) bool
	GetInt64(colIndex int) int64
	GetFloat64(colIndex int) float64
	GetString(colIndex int) string
	GetBytes(colIndex int) []byte
}

type Observable interface {
	RegisterContentObserver(observer ContentObserver)
	UnregisterContentObserver(observer ContentObserver)
	RegisterDataSetObserver(observer DataSetObserver)
	UnregisterDataSetObserver(observer DataSetObserver)
}

// ResultSet is a positionable set of rows returned by a fetch. Positions are relative to the start of the set.
type ResultSet interface {
	Cells
	Observable
	Count() int
	MoveToPosition(pos int) bool
	ColumnNames() []string
	Deactivate()
	Close() error
}

// CountResult holds the result of a count query. It can be re-executed and notifies its data set observers
// with OnInvalidated when the rows it counted change.
type CountResult interface {
	Observable
	// Count returns false if the query produced no row.
	Count() (int, bool)
	Requery() error
	Deactivate()
	Close() error
}
