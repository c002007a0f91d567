package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaydocs/document-events/pkg/persistence"
)

type memoryKey struct {
	consumerName string
	eventID      string
}

// Memory is a process-local Ledger. Claims do not survive restarts and are
// not shared between instances.
type Memory struct {
	mu      sync.Mutex
	records map[memoryKey]Record
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[memoryKey]Record),
		now:     time.Now,
	}
}

func (m *Memory) Claim(ctx context.Context, c Claim) (bool, error) {
	if err := c.validate(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("failed to claim event %s: %w", c.EventID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{consumerName: c.ConsumerName, eventID: c.EventID}
	if _, exists := m.records[key]; exists {
		return false, nil
	}
	m.records[key] = c.record(m.now())
	return true, nil
}

func (m *Memory) Count(_ context.Context, consumerName, eventID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[memoryKey{consumerName: consumerName, eventID: eventID}]; ok {
		return 1, nil
	}
	return 0, nil
}

func (m *Memory) Lookup(_ context.Context, consumerName, eventID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[memoryKey{consumerName: consumerName, eventID: eventID}]
	if !ok {
		return nil, persistence.ErrEntityNotFound
	}
	return &r, nil
}

// Len returns the number of stored records across all consumers.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
