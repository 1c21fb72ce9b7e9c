package users

import (
	"context"
	"sync"
)

// Memory is an in-process directory used for offline runs and tests.
type Memory struct {
	mu      sync.RWMutex
	records []User
}

// NewMemory returns a directory holding records.
func NewMemory(records ...User) *Memory {
	return &Memory{records: append([]User(nil), records...)}
}

// SampleRecords mirrors the first two records of the public directory.
func SampleRecords() []User {
	return []User{
		{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"},
		{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv"},
	}
}

// Add stores another record.
func (m *Memory) Add(user User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, user)
}

// GetUser returns the record with id or ErrNotFound.
func (m *Memory) GetUser(ctx context.Context, id int) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, record := range m.records {
		if record.ID == id {
			return record, nil
		}
	}
	return User{}, ErrNotFound
}

// FindByEmail returns the records whose email matches exactly.
func (m *Memory) FindByEmail(ctx context.Context, email string) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []User
	for _, record := range m.records {
		if record.Email == email {
			out = append(out, record)
		}
	}
	return out, nil
}
