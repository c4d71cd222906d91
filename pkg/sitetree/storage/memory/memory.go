package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/openpublish/sitetree/pkg/sitetree"
)

// Store is an in-memory implementation of the sitetree.BlobStore interface
type Store struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
}

// New creates a new in-memory storage backend
func New() sitetree.BlobStore {
	return &Store{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
	}
}

// Upload stores the object bytes under the given key
func (s *Store) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[objectKey] = data
	if _, exists := s.mimeTypes[objectKey]; !exists {
		s.mimeTypes[objectKey] = "application/octet-stream"
	}
	return nil
}

// UploadWithParams stores the object bytes and records the MIME type
func (s *Store) UploadWithParams(ctx context.Context, reader io.Reader, params sitetree.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[params.ObjectKey] = data
	s.mimeTypes[params.ObjectKey] = params.MimeType
	return nil
}

// Download returns a reader over the stored bytes
func (s *Store) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the stored object
func (s *Store) Delete(ctx context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[objectKey]; !exists {
		return errors.New("object not found")
	}

	delete(s.objects, objectKey)
	delete(s.mimeTypes, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for a stored object
func (s *Store) GetObjectMeta(ctx context.Context, objectKey string) (*sitetree.ObjectMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	mimeType := s.mimeTypes[objectKey]
	meta := &sitetree.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: mimeType,
		Metadata:    map[string]string{"mime_type": mimeType},
	}

	return meta, nil
}

// GetDownloadURL returns an error: the in-memory backend has no URLs
func (s *Store) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return "", errors.New("direct download required for memory backend")
}
