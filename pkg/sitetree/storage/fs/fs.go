package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/openpublish/sitetree/pkg/sitetree"
)

// Store is a filesystem implementation of the sitetree.BlobStore interface
type Store struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing attachments
	URLPrefix string // Optional URL prefix for download URLs
}

// New creates a new filesystem storage backend
func New(config Config) (sitetree.BlobStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir:   config.BaseDir,
		urlPrefix: config.URLPrefix,
	}, nil
}

// resolve maps an object key onto the base directory, refusing keys that
// would escape it.
func (s *Store) resolve(objectKey string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(objectKey))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

// Upload writes the object bytes to the filesystem
func (s *Store) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	filePath, err := s.resolve(objectKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// UploadWithParams writes the object bytes; the MIME type is detected on
// read rather than stored
func (s *Store) UploadWithParams(ctx context.Context, reader io.Reader, params sitetree.UploadParams) error {
	return s.Upload(ctx, params.ObjectKey, reader)
}

// Download opens the stored file
func (s *Store) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	filePath, err := s.resolve(objectKey)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, errors.New("object not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes the stored file and prunes empty directories
func (s *Store) Delete(ctx context.Context, objectKey string) error {
	filePath, err := s.resolve(objectKey)
	if err != nil {
		return err
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.New("object not found")
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	s.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// GetObjectMeta retrieves metadata for a stored file
func (s *Store) GetObjectMeta(ctx context.Context, objectKey string) (*sitetree.ObjectMeta, error) {
	filePath, err := s.resolve(objectKey)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, errors.New("object not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	meta := &sitetree.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
		Metadata:    map[string]string{"content_type": contentType},
	}

	return meta, nil
}

// GetDownloadURL returns a URL under the configured prefix, when one is set
func (s *Store) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	if s.urlPrefix == "" {
		return "", errors.New("direct download required for filesystem backend")
	}

	if downloadFilename != "" {
		return fmt.Sprintf("%s/download/%s?filename=%s", s.urlPrefix, objectKey, url.QueryEscape(downloadFilename)), nil
	}
	return fmt.Sprintf("%s/download/%s", s.urlPrefix, objectKey), nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (s *Store) cleanupEmptyDirectories(dir string) {
	if dir == s.baseDir {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			s.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
