package utils

import (
	"sync"
)

// OptionalMutex is a mutex that only locks when UseMutex is set. Objects that are
// externally synchronized by their owner skip the locking entirely.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}
