package backendfake

import (
	"sync"

	"github.com/jrsteele09/teamtrack/session"
)

var _ session.Backend = (*FakeBackend)(nil)

type FakeBackend struct {
	values     map[string]string
	writes     int
	failRemove map[string]error
	lock       sync.RWMutex
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		values:     make(map[string]string),
		failRemove: make(map[string]error),
	}
}

func (b *FakeBackend) Get(key string) (string, bool, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *FakeBackend) Set(key, value string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.values[key] = value
	b.writes++
	return nil
}

func (b *FakeBackend) Remove(key string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failRemove[key]; err != nil {
		return err
	}
	delete(b.values, key)
	b.writes++
	return nil
}

// Raw returns the stored value for key without decoding.
func (b *FakeBackend) Raw(key string) (string, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	v, ok := b.values[key]
	return v, ok
}

// Writes counts Set and Remove calls.
func (b *FakeBackend) Writes() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.writes
}

// FailRemove makes every Remove of key return err. A nil err clears it.
func (b *FakeBackend) FailRemove(key string, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err == nil {
		delete(b.failRemove, key)
		return
	}
	b.failRemove[key] = err
}
