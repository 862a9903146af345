package source

// ContentObserver is told when the content behind a result changes.
type ContentObserver interface {
	OnChange(selfChange bool)
}

// DataSetObserver is told when a result is re-executed (OnChanged) or becomes invalid (OnInvalidated).
type DataSetObserver interface {
	OnChanged()
	OnInvalidated()
}

// ObserverSet is an ordered set of observers. Adding an observer that is already present is a no-op.
// Observers must be comparable, pointers in practice.
type ObserverSet[T comparable] struct {
	observers []T
}

func (s *ObserverSet[T]) Add(observer T) bool {
	if s.Contains(observer) {
		return false
	}
	s.observers = append(s.observers, observer)
	return true
}

func (s *ObserverSet[T]) Remove(observer T) bool {
	for i, o := range s.observers {
		if o == observer {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return true
		}
	}
	return false
}

func (s *ObserverSet[T]) Contains(observer T) bool {
	for _, o := range s.observers {
		if o == observer {
			return true
		}
	}
	return false
}

func (s *ObserverSet[T]) Len() int {
	return len(s.observers)
}

// Items returns the observers in registration order. The slice is not shared with the set, so callbacks may
// modify the set while it is iterated.
func (s *ObserverSet[T]) Items() []T {
	return append([]T(nil), s.observers...)
}

// Observers holds both observer kinds and implements Observable.
type Observers struct {
	content ObserverSet[ContentObserver]
	dataSet ObserverSet[DataSetObserver]
}

func (o *Observers) RegisterContentObserver(observer ContentObserver) {
	o.content.Add(observer)
}

func (o *Observers) UnregisterContentObserver(observer ContentObserver) {
	o.content.Remove(observer)
}

func (o *Observers) RegisterDataSetObserver(observer DataSetObserver) {
	o.dataSet.Add(observer)
}

func (o *Observers) UnregisterDataSetObserver(observer DataSetObserver) {
	o.dataSet.Remove(observer)
}

func (o *Observers) NotifyChange(selfChange bool) {
	for _, observer := range o.content.Items() {
		observer.OnChange(selfChange)
	}
}

func (o *Observers) NotifyChanged() {
	for _, observer := range o.dataSet.Items() {
		observer.OnChanged()
	}
}

func (o *Observers) NotifyInvalidated() {
	for _, observer := range o.dataSet.Items() {
		observer.OnInvalidated()
	}
}
