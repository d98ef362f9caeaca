package lockout

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Store.
type Memory struct {
	until sync.Map // map[uint32]time.Time
	now   func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Locked(_ context.Context, clientAddress uint32) (bool, error) {
	v, ok := m.until.Load(clientAddress)
	if !ok {
		return false, nil
	}
	until := v.(time.Time)
	if m.now().Before(until) {
		return true, nil
	}
	m.until.CompareAndDelete(clientAddress, until)
	return false, nil
}

func (m *Memory) Lock(_ context.Context, clientAddress uint32, d time.Duration) error {
	m.until.Store(clientAddress, m.now().Add(d))
	return nil
}
