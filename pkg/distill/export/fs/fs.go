package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/content-distill/pkg/distill/export"
)

// Store is a filesystem implementation of export.Store
type Store struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem store
type Config struct {
	BaseDir   string // Base directory for exported documents
	URLPrefix string // Optional URL prefix the base directory is served under
}

// New creates a new filesystem store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

// path maps key below the base directory
func (s *Store) path(key string) (string, error) {
	p := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return p, nil
}

// Put writes the content of reader to the file of key
func (s *Store) Put(ctx context.Context, key string, reader io.Reader, contentType string) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temporary file so readers never see a partial document
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}

// Get opens the file of key
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, export.ErrObjectNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the file of key
func (s *Store) Delete(ctx context.Context, key string) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if os.IsNotExist(err) {
		return export.ErrObjectNotFound
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// URL returns URLPrefix/key, or export.ErrURLUnavailable without a prefix
func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if s.urlPrefix == "" {
		return "", export.ErrURLUnavailable
	}
	return s.urlPrefix + "/" + key, nil
}
