package store

import (
	"context"
	"errors"
	"sync"
)

// ErrObjectNotFound is returned by object stores for a missing key.
var ErrObjectNotFound = errors.New("object not found")

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryObjectStore keeps objects in process memory. It stands in for MinIO
// in development and tests.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]memoryObject)}
}

// Upload stores a copy of data under key.
func (s *MemoryObjectStore) Upload(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{data: append([]byte(nil), data...), contentType: contentType}
	return nil
}

// Download returns the object bytes and content type.
func (s *MemoryObjectStore) Download(_ context.Context, key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

// Remove deletes an object. Removing a missing key is not an error, matching S3.
func (s *MemoryObjectStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
