package cursor

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/squareup/lazyrows/errors"
)

// residency bounds the number of windows holding fetched rows in one epoch. The least recently used window
// is handed to onEvict when the bound is exceeded. A nil residency is unbounded.
type residency struct {
	cache *lru.Cache[int, *window]
}

func newResidency(maxWindows int, onEvict func(index int, w *window)) (*residency, error) {
	if maxWindows <= 0 {
		return nil, nil
	}
	cache, err := lru.NewWithEvict[int, *window](maxWindows, onEvict)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &residency{cache: cache}, nil
}

func (r *residency) add(w *window) {
	if r == nil {
		return
	}
	r.cache.Add(w.index, w)
}

func (r *residency) touch(index int) {
	if r == nil {
		return
	}
	r.cache.Get(index)
}
