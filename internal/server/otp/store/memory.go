package store

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/credcore/internal/common"
)

type record struct {
	code    string
	expires time.Time
}

// Memory is an owned, mutex-guarded map. Expired records are dropped lazily
// on access or by Sweep.
type Memory struct {
	mu      sync.Mutex
	records map[string]record
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]record),
		now:     time.Now,
	}
}

func (m *Memory) Store(ctx context.Context, identity, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[identity] = record{code: code, expires: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Verify(ctx context.Context, identity, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[identity]
	if !ok {
		return false, nil
	}
	if !m.now().Before(r.expires) {
		delete(m.records, identity)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(r.code), []byte(code)) != 1 {
		return false, nil
	}

	delete(m.records, identity)
	return true, nil
}

// Sweep drops every expired record and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for id, r := range m.records {
		if !now.Before(r.expires) {
			delete(m.records, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Sweep()
		}
	}
}

// Len reports the number of records held, live or not yet swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *Memory) Ping(context.Context) error { return nil }
