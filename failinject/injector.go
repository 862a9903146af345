package failinject

import (
	"fmt"
	"sync"

	"github.com/squareup/lazyrows/errors"
)

func NewInjector() Injector {
	return &defaultInjector{failpoints: make(map[string]*defaultFailpoint)}
}

type Injector interface {
	// RegisterFailpoint returns the failpoint with the given name, creating it inactive on first use.
	RegisterFailpoint(name string) (Failpoint, error)
	GetFailpoint(name string) Failpoint
}

type Failpoint interface {
	CheckFail() error
	SetFailAction(action FailAction)
	Deactivate()
}

type FailAction func() error

// ReturnError is a FailAction that fails with err.
func ReturnError(err error) FailAction {
	return func() error {
		return err
	}
}

type defaultInjector struct {
	failpoints map[string]*defaultFailpoint
	lock       sync.Mutex
}

type defaultFailpoint struct {
	name       string
	lock       sync.Mutex
	active     bool
	failAction FailAction
}

func (i *defaultInjector) RegisterFailpoint(name string) (Failpoint, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	if fp, ok := i.failpoints[name]; ok {
		return fp, nil
	}
	fp := &defaultFailpoint{
		name: name,
	}
	i.failpoints[name] = fp
	return fp, nil
}

func (i *defaultInjector) GetFailpoint(name string) Failpoint {
	i.lock.Lock()
	defer i.lock.Unlock()
	fp, ok := i.failpoints[name]
	if !ok {
		panic(fmt.Sprintf("no failpoint registered with name %s", name))
	}
	return fp
}

func (f *defaultFailpoint) CheckFail() error {
	f.lock.Lock()
	active, action := f.active, f.failAction
	f.lock.Unlock()
	if !active {
		return nil
	}
	if action == nil {
		return errors.Errorf("no fail action specified for failpoint %s", f.name)
	}
	return action()
}

func (f *defaultFailpoint) SetFailAction(action FailAction) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.active = true
	f.failAction = action
}

func (f *defaultFailpoint) Deactivate() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.active = false
	f.failAction = nil
}
