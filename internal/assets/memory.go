package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memoryObject struct {
	id          string
	contentType string
	data        []byte
	uploadedAt  time.Time
}

// MemoryStore keeps assets in process memory. It backs local development
// (GALLERY_STORE=memory) and tests; everything is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	opts    Options
	objects []memoryObject
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{opts: opts}
}

// Seed adds objects with the given ids as if they had been uploaded outside
// this process.
func (m *MemoryStore) Seed(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.objects = append(m.objects, memoryObject{id: id, uploadedAt: time.Now()})
	}
}

// Remove drops an object without going through Delete, as an operator
// working directly in the store console would.
func (m *MemoryStore) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(id)
}

// Object returns the stored bytes and content type for id.
func (m *MemoryStore) Object(id string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.objects {
		if o.id == id {
			return o.data, o.contentType, true
		}
	}
	return nil, "", false
}

func (m *MemoryStore) List(ctx context.Context, max int) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, upstream("list objects", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Asset, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, m.asset(o))
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Upload(ctx context.Context, r io.Reader, size int64, contentType string) (Asset, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return Asset{}, upstream("put object", err)
	}
	if size >= 0 && int64(buf.Len()) != size {
		return Asset{}, upstream("put object", fmt.Errorf("short body: got %d bytes, want %d", buf.Len(), size))
	}

	o := memoryObject{
		id:          newPublicID(),
		contentType: contentType,
		data:        buf.Bytes(),
		uploadedAt:  time.Now(),
	}

	m.mu.Lock()
	m.objects = append(m.objects, o)
	m.mu.Unlock()

	return m.asset(o), nil
}

func (m *MemoryStore) Delete(ctx context.Context, publicID string) error {
	if err := ctx.Err(); err != nil {
		return upstream("remove object", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(publicID)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) remove(id string) {
	for i, o := range m.objects {
		if o.id == id {
			m.objects = append(m.objects[:i], m.objects[i+1:]...)
			return
		}
	}
}

func (m *MemoryStore) asset(o memoryObject) Asset {
	key := m.opts.key(o.id)
	u := m.opts.publicURL(key)
	if u == "" {
		u = "memory:///" + key
	}
	return Asset{PublicID: o.id, URL: u, UploadedAt: o.uploadedAt}
}
