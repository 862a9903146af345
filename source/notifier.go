package source

import (
	"sort"
	"sync"
)

// Notifier delivers data change notifications from a source to the count results it has handed out.
// Notifications run on the goroutine that changed the data.
type Notifier struct {
	lock        sync.Mutex
	nextID      uint64
	subscribers map[uint64]func()
}

func NewNotifier() *Notifier {
	return &Notifier{subscribers: make(map[uint64]func())}
}

// Subscribe registers f and returns the function that removes it.
func (n *Notifier) Subscribe(f func()) func() {
	n.lock.Lock()
	defer n.lock.Unlock()
	id := n.nextID
	n.nextID++
	n.subscribers[id] = f
	return func() {
		n.lock.Lock()
		defer n.lock.Unlock()
		delete(n.subscribers, id)
	}
}

func (n *Notifier) Notify() {
	n.lock.Lock()
	ids := make([]uint64, 0, len(n.subscribers))
	for id := range n.subscribers {
		ids = append(ids, id)
	}
	n.lock.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		n.lock.Lock()
		f, ok := n.subscribers[id]
		n.lock.Unlock()
		if ok {
			f()
		}
	}
}

func (n *Notifier) SubscriberCount() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return len(n.subscribers)
}
