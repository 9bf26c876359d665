package content

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kailas-cloud/grounder/internal/db"
)

// mockStore implements the consumer interface for tests: an in-memory map of
// JSON values plus membership sets, with per-call overrides for errors.
type mockStore struct {
	json map[string][]byte
	sets map[string][]string

	jsonGetFn  func(ctx context.Context, key string, paths ...string) ([]byte, error)
	jsonSetFn  func(ctx context.Context, key, path string, data []byte) error
	smembersFn func(ctx context.Context, key string) ([]string, error)
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	data, ok := m.json[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockStore) JSONGetMulti(_ context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		if data, ok := m.json[key]; ok {
			out[i] = data
		}
	}
	return out, nil
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	m.json[key] = data
	return nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if m.smembersFn != nil {
		return m.smembersFn(ctx, key)
	}
	return m.sets[key], nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{
		json: make(map[string][]byte),
		sets: make(map[string][]string),
	}
	return New(ms, "grounder:"), ms
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}
