package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yoockh/audition/internal/utils"
)

// MemoryStore keeps objects in process. Used by tests and local runs
// without a bucket.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memObject
}

type memObject struct {
	contentType string
	data        []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memObject{}}
}

func (m *MemoryStore) Upload(_ context.Context, objectName, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = memObject{contentType: contentType, data: buf.Bytes()}
	return objectName, nil
}

func (m *MemoryStore) Read(_ context.Context, objectName string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[objectName]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return append([]byte(nil), o.data...), nil
}

func (m *MemoryStore) SignedGetURL(_ context.Context, objectName string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectName]; !ok {
		return "", utils.ErrNotFound
	}
	return fmt.Sprintf("memory://%s?ttl=%d", objectName, int(ttl.Seconds())), nil
}

func (m *MemoryStore) ContentType(objectName string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[objectName].contentType
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
