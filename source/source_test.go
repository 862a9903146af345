package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/squareup/lazyrows/common"
	"github.com/squareup/lazyrows/errors"
)

type recordingObserver struct {
	changes     []bool
	changed     int
	invalidated int
}

func (r *recordingObserver) OnChange(selfChange bool) {
	r.changes = append(r.changes, selfChange)
}

func (r *recordingObserver) OnChanged() {
	r.changed++
}

func (r *recordingObserver) OnInvalidated() {
	r.invalidated++
}

func TestObserverSetOrderAndDuplicates(t *testing.T) {
	o1, o2, o3 := &recordingObserver{}, &recordingObserver{}, &recordingObserver{}
	var set ObserverSet[DataSetObserver]
	require.True(t, set.Add(o1))
	require.True(t, set.Add(o2))
	require.False(t, set.Add(o1))
	require.True(t, set.Add(o3))
	require.Equal(t, []DataSetObserver{o1, o2, o3}, set.Items())

	require.True(t, set.Remove(o2))
	require.False(t, set.Remove(o2))
	require.Equal(t, []DataSetObserver{o1, o3}, set.Items())
	require.Equal(t, 2, set.Len())
	require.False(t, set.Contains(o2))
}

func TestObserversNotify(t *testing.T) {
	o := &recordingObserver{}
	var obs Observers
	obs.RegisterContentObserver(o)
	obs.RegisterContentObserver(o)
	obs.RegisterDataSetObserver(o)
	obs.NotifyChange(true)
	obs.NotifyChanged()
	obs.NotifyInvalidated()
	require.Equal(t, []bool{true}, o.changes)
	require.Equal(t, 1, o.changed)
	require.Equal(t, 1, o.invalidated)

	obs.UnregisterContentObserver(o)
	obs.UnregisterDataSetObserver(o)
	obs.NotifyChange(false)
	obs.NotifyInvalidated()
	require.Equal(t, []bool{true}, o.changes)
	require.Equal(t, 1, o.invalidated)
}

func TestRowsResultSet(t *testing.T) {
	rows := common.NewRows(2, 3)
	require.NoError(t, rows.AppendValues(1, "a"))
	require.NoError(t, rows.AppendValues(2, nil))
	closes := 0
	rs := NewRowsResultSet([]string{"id", "name"}, rows, func() { closes++ })
	require.Equal(t, 2, rs.Count())
	require.Equal(t, 2, rs.ColumnCount())
	require.Equal(t, -1, rs.Position())
	require.Panics(t, func() { rs.GetInt64(0) })

	require.True(t, rs.MoveToPosition(1))
	require.Equal(t, int64(2), rs.GetInt64(0))
	require.True(t, rs.IsNull(1))
	require.Equal(t, common.TypeNull, rs.GetType(1))

	require.False(t, rs.MoveToPosition(2))
	require.Equal(t, 2, rs.Position())
	require.False(t, rs.MoveToPosition(-5))
	require.Equal(t, -1, rs.Position())

	require.True(t, rs.MoveToPosition(0))
	require.Equal(t, "a", rs.GetString(1))
	require.Equal(t, 1.0, rs.GetFloat64(0))

	o := &recordingObserver{}
	rs.RegisterDataSetObserver(o)
	rs.Deactivate()
	require.Equal(t, 1, o.invalidated)

	require.NoError(t, rs.Close())
	require.NoError(t, rs.Close())
	require.Equal(t, 1, closes)
	require.True(t, rs.IsClosed())
	require.Equal(t, 0, rs.Count())
}

func TestCounter(t *testing.T) {
	n := 5
	var failWith error
	query := func() (int, bool, error) {
		if failWith != nil {
			return 0, false, failWith
		}
		return n, n >= 0, nil
	}
	notifier := NewNotifier()
	c, err := NewCounter(query, notifier)
	require.NoError(t, err)
	require.Equal(t, 1, notifier.SubscriberCount())
	count, ok := c.Count()
	require.True(t, ok)
	require.Equal(t, 5, count)

	o := &recordingObserver{}
	c.RegisterContentObserver(o)
	c.RegisterDataSetObserver(o)

	n = 7
	notifier.Notify()
	require.Equal(t, []bool{false}, o.changes)
	require.Equal(t, 1, o.invalidated)
	count, _ = c.Count()
	require.Equal(t, 5, count)

	require.NoError(t, c.Requery())
	require.Equal(t, 1, o.changed)
	count, _ = c.Count()
	require.Equal(t, 7, count)

	failWith = errors.New("boom")
	require.Error(t, c.Requery())
	count, ok = c.Count()
	require.True(t, ok)
	require.Equal(t, 7, count)
	require.Equal(t, 1, o.changed)

	failWith = nil
	n = -1
	require.NoError(t, c.Requery())
	_, ok = c.Count()
	require.False(t, ok)

	c.Deactivate()
	require.Equal(t, 2, o.invalidated)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Equal(t, 0, notifier.SubscriberCount())
	notifier.Notify()
	require.Equal(t, 2, o.invalidated)
	err = c.Requery()
	require.True(t, errors.HasCode(err, errors.CursorClosed))
}

func TestNewCounterFails(t *testing.T) {
	notifier := NewNotifier()
	_, err := NewCounter(func() (int, bool, error) {
		return 0, false, errors.New("no database")
	}, notifier)
	require.Error(t, err)
	require.Equal(t, 0, notifier.SubscriberCount())
}
