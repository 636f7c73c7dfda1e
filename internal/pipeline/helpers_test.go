package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"resumeflow/internal/blob"
	"resumeflow/internal/models"
	"resumeflow/internal/profile"
	"resumeflow/internal/providers"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *blob.LocalStore {
	t.Helper()
	s, err := blob.NewLocalStore(t.TempDir(), "https://blobs.test")
	require.NoError(t, err)
	return s
}

// flakyStore fails Put for any path containing failOn.
type flakyStore struct {
	blob.Store
	failOn string
}

func (f flakyStore) Put(ctx context.Context, path string, body io.Reader, opts blob.PutOptions) (blob.Object, error) {
	if f.failOn != "" && strings.Contains(path, f.failOn) {
		return blob.Object{}, errors.New("storage unavailable")
	}
	return f.Store.Put(ctx, path, body, opts)
}

type visionFunc func(ctx context.Context, req providers.VisionRequest) (providers.VisionResponse, error)

func (f visionFunc) ExtractImage(ctx context.Context, req providers.VisionRequest) (providers.VisionResponse, providers.ProviderInfo, error) {
	resp, err := f(ctx, req)
	return resp, providers.ProviderInfo{Name: "fake", Model: "fake-vision"}, err
}

type structuredFunc func(ctx context.Context, req providers.StructuredRequest) (providers.StructuredResponse, error)

func (f structuredFunc) GenerateStructured(ctx context.Context, req providers.StructuredRequest) (providers.StructuredResponse, providers.ProviderInfo, error) {
	resp, err := f(ctx, req)
	return resp, providers.ProviderInfo{Name: "fake", Model: "fake-structured"}, err
}

type memPageCache struct {
	mu   sync.Mutex
	data map[string]models.PageExtractionResult
}

func newMemPageCache() *memPageCache {
	return &memPageCache{data: map[string]models.PageExtractionResult{}}
}

func (c *memPageCache) Get(_ context.Context, key string) (models.PageExtractionResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.data[key]
	return r, ok, nil
}

func (c *memPageCache) Put(_ context.Context, key string, res models.PageExtractionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = res
	return nil
}

// memProfileStore mimics the sparse column writes of the profile table.
type memProfileStore struct {
	mu      sync.Mutex
	rows    map[string]map[string]any // profile id -> columns
	byOwner map[string]string
	err     error
	nextID  int
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{rows: map[string]map[string]any{}, byOwner: map[string]string{}}
}

func (m *memProfileStore) FindProfileIDByOwner(_ context.Context, ownerID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	id, ok := m.byOwner[ownerID]
	return id, ok, nil
}

func (m *memProfileStore) UpdateProfile(_ context.Context, profileID string, values []profile.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, v := range values {
		m.rows[profileID][v.Key] = v.Value
	}
	return nil
}

func (m *memProfileStore) InsertProfile(_ context.Context, ownerID string, values []profile.Value, placeholder string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if id, ok := m.byOwner[ownerID]; ok {
		for _, v := range values {
			m.rows[id][v.Key] = v.Value
		}
		return id, nil
	}
	m.nextID++
	id := fmt.Sprintf("profile-%d", m.nextID)
	row := map[string]any{"display_name": placeholder}
	for _, v := range values {
		row[v.Key] = v.Value
	}
	m.rows[id] = row
	m.byOwner[ownerID] = id
	return id, nil
}

func strp(s string) *string { return &s }
