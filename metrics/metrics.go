package metrics

type Counter interface {
	Inc()
}

type Factory interface {
	// CreateCounter returns the counter with the given name, creating it on first use.
	CreateCounter(name string, description string) (Counter, error)

	Start() error

	Stop() error
}

// NewNopFactory returns a Factory whose counters discard every increment.
func NewNopFactory() Factory {
	return nopFactory{}
}

type nopFactory struct{}

func (nopFactory) CreateCounter(string, string) (Counter, error) {
	return nopCounter{}, nil
}

func (nopFactory) Start() error {
	return nil
}

func (nopFactory) Stop() error {
	return nil
}

type nopCounter struct{}

func (nopCounter) Inc() {}
