package recorder

import (
	"context"
	"sync"
)

// MemoryDevice hands out a canned payload for every capture. It backs dry runs
// and tests.
type MemoryDevice struct {
	Payload   []byte
	MediaType string
	OpenErr   error
	BeginErr  error

	mu     sync.Mutex
	opens  int
	closes int
	begins int
}

func NewMemoryDevice(payload []byte, contentType string) *MemoryDevice {
	return &MemoryDevice{Payload: payload, MediaType: contentType}
}

func (d *MemoryDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.opens++
	return &memoryStream{d: d}, nil
}

func (d *MemoryDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *MemoryDevice) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *MemoryDevice) Begins() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.begins
}

type memoryStream struct {
	d      *MemoryDevice
	active bool
}

func (s *memoryStream) Begin() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.d.BeginErr != nil {
		return s.d.BeginErr
	}
	s.d.begins++
	s.active = true
	return nil
}

func (s *memoryStream) End() ([]byte, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.active = false
	out := make([]byte, len(s.d.Payload))
	copy(out, s.d.Payload)
	return out, nil
}

func (s *memoryStream) ContentType() string {
	if s.d.MediaType == "" {
		return "audio/wav"
	}
	return s.d.MediaType
}

func (s *memoryStream) Close() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.active = false
	s.d.closes++
	return nil
}
