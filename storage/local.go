package storage

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LocalStore keeps media on a filesystem and serves it under BaseURL.
type LocalStore struct {
	fs      afero.Fs
	dir     string
	baseURL string
}

func NewLocalStore(fs afero.Fs, dir, baseURL string) *LocalStore {
	return &LocalStore{fs: fs, dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// BaseURL is the URL prefix the stored files are served under.
func (s *LocalStore) BaseURL() string { return s.baseURL }

// FileSystem exposes the media directory for static serving.
func (s *LocalStore) FileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs).Dir(s.dir)
}

func (s *LocalStore) Upload(_ context.Context, obj Object) (string, error) {
	key := NewKey(obj.Folder, obj.Filename)
	p := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	if err := afero.WriteReader(s.fs, p, obj.Body); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStore) Delete(_ context.Context, mediaURL string) error {
	key, err := KeyFromURL(s.baseURL, mediaURL)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
