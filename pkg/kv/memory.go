package kv

import "context"

// Memory is an in-process Store used by tests and the default demo wiring.
type Memory struct {
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: map[string][]byte{}}
}

// Seed pre-populates a key, bypassing Save. Test helper.
func (m *Memory) Seed(key string, blob []byte) {
	m.blobs[key] = append([]byte(nil), blob...)
}

func (m *Memory) Load(ctx context.Context, key string) ([]byte, bool, error) {
	blob, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), blob...), true, nil
}

func (m *Memory) Save(ctx context.Context, key string, blob []byte) error {
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}
