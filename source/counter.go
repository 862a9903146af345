package source

import (
	log "github.com/sirupsen/logrus"

	"github.com/squareup/lazyrows/errors"
)

// CountFunc runs a count query. It returns false if the query produced no row.
type CountFunc func() (int, bool, error)

// Counter is a CountResult that runs its query through a CountFunc and invalidates itself when its
// Notifier fires.
type Counter struct {
	Observers
	query       CountFunc
	count       int
	hasRow      bool
	unsubscribe func()
	closed      bool
}

// NewCounter runs the query once. notifier may be nil for results that never change.
func NewCounter(query CountFunc, notifier *Notifier) (*Counter, error) {
	c := &Counter{query: query}
	if err := c.run(); err != nil {
		return nil, err
	}
	if notifier != nil {
		c.unsubscribe = notifier.Subscribe(c.Invalidate)
	}
	return c, nil
}

func (c *Counter) run() error {
	count, hasRow, err := c.query()
	if err != nil {
		return err
	}
	c.count, c.hasRow = count, hasRow
	return nil
}

func (c *Counter) Count() (int, bool) {
	return c.count, c.hasRow
}

// Requery runs the query again. On failure the previous result is kept.
func (c *Counter) Requery() error {
	if c.closed {
		return errors.NewCursorClosedError()
	}
	if err := c.run(); err != nil {
		return err
	}
	c.NotifyChanged()
	return nil
}

// Invalidate tells observers that the counted rows changed.
func (c *Counter) Invalidate() {
	if c.closed {
		return
	}
	log.Debugf("count result invalidated, count was %d", c.count)
	c.NotifyChange(false)
	c.NotifyInvalidated()
}

func (c *Counter) Deactivate() {
	c.NotifyInvalidated()
}

func (c *Counter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	return nil
}

func (c *Counter) IsClosed() bool {
	return c.closed
}
