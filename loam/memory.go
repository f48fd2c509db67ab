package loam

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store.
//
// It mirrors object-store semantics closely enough for the adapter's
// contract tests: multipart sessions are tracked server-side style
// (upload ID to part map) and assembled by part index on completion, and
// per-operation fault hooks allow failure paths to be exercised
// deterministically without a live service.
//
// Consistency: immediate. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	uploads  map[string]map[int32][]byte
	uploadID int

	// Call counters for test assertions.
	PutObjectCalls  int
	InitiateCalls   int
	UploadPartCalls int
	CompleteCalls   int
	AbortCalls      int

	// Fault injection: a non-nil error fails the corresponding operation.
	FailPutObject error
	FailInitiate  error
	FailComplete  error
	FailGetRange  error
	FailHead      error

	// FailUploadPartOnCall fails UploadPart from the Nth call on
	// (1-based). Zero disables.
	FailUploadPartOnCall int
}

// NewMemoryStore creates an in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		uploads: make(map[string]map[int32][]byte),
	}
}

// PutObject implements Store.
func (m *MemoryStore) PutObject(_ context.Context, uri string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutObjectCalls++
	if m.FailPutObject != nil {
		return m.FailPutObject
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[uri] = stored
	return nil
}

// InitiateMultipart implements Store.
func (m *MemoryStore) InitiateMultipart(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitiateCalls++
	if m.FailInitiate != nil {
		return "", m.FailInitiate
	}

	m.uploadID++
	id := fmt.Sprintf("upload-%d", m.uploadID)
	m.uploads[id] = make(map[int32][]byte)
	return id, nil
}

// UploadPart implements Store.
func (m *MemoryStore) UploadPart(_ context.Context, _, uploadID string, number int32, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UploadPartCalls++
	if m.FailUploadPartOnCall > 0 && m.UploadPartCalls >= m.FailUploadPartOnCall {
		return "", fmt.Errorf("injected upload part failure")
	}

	upload, ok := m.uploads[uploadID]
	if !ok {
		return "", fmt.Errorf("no such upload %q", uploadID)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	upload[number] = stored

	return fmt.Sprintf("%s-part-%d", uploadID, number), nil
}

// CompleteMultipart implements Store. Parts are assembled in the order
// listed, which callers provide in index order.
func (m *MemoryStore) CompleteMultipart(_ context.Context, uri, uploadID string, parts []CompletedPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteCalls++
	if m.FailComplete != nil {
		return m.FailComplete
	}

	upload, ok := m.uploads[uploadID]
	if !ok {
		return fmt.Errorf("no such upload %q", uploadID)
	}
	if len(parts) != len(upload) {
		return fmt.Errorf("completion lists %d parts, upload has %d", len(parts), len(upload))
	}

	var assembled []byte
	for _, p := range parts {
		data, ok := upload[p.Number]
		if !ok {
			return fmt.Errorf("completion references unknown part %d", p.Number)
		}
		assembled = append(assembled, data...)
	}

	m.objects[uri] = assembled
	delete(m.uploads, uploadID)
	return nil
}

// AbortMultipart implements Store.
func (m *MemoryStore) AbortMultipart(_ context.Context, _, uploadID string) error {
	m.mu.Lock()
	m.AbortCalls++
	delete(m.uploads, uploadID)
	m.mu.Unlock()
	return nil
}

// GetRange implements Store.
func (m *MemoryStore) GetRange(_ context.Context, uri string, offset, length int64) ([]byte, error) {
	if m.FailGetRange != nil {
		return nil, m.FailGetRange
	}
	if offset < 0 || length < 0 {
		return nil, ErrInvalidRange
	}

	m.mu.Lock()
	data, ok := m.objects[uri]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	if length > int64(len(data))-offset {
		return nil, ErrInvalidRange
	}

	out := make([]byte, length)
	copy(out, data[offset:offset+length])
	return out, nil
}

// HeadObject implements Store.
func (m *MemoryStore) HeadObject(_ context.Context, uri string) (int64, error) {
	if m.FailHead != nil {
		return 0, m.FailHead
	}

	m.mu.Lock()
	data, ok := m.objects[uri]
	m.mu.Unlock()

	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(data)), nil
}

// DeleteObject implements Store.
func (m *MemoryStore) DeleteObject(_ context.Context, uri string) error {
	m.mu.Lock()
	delete(m.objects, uri)
	m.mu.Unlock()
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var uris []string
	for uri := range m.objects {
		if strings.HasPrefix(uri, prefix) {
			uris = append(uris, uri)
		}
	}
	return uris, nil
}

// OpenUploads returns the number of multipart sessions not yet completed
// or aborted. Test observability helper.
func (m *MemoryStore) OpenUploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}
