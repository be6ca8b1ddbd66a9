package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type localStore struct {
	log *logger.Logger
	dir string
}

func NewLocal(dir string, log *logger.Logger) (Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	storeLog := log.With("service", "LocalFileStore")
	storeLog.Info("Upload store initialized", "mode", ModeLocal, "dir", abs)
	return &localStore{log: storeLog, dir: abs}, nil
}

func (s *localStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}

func (s *localStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	path, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return f, err
}

func (s *localStore) Delete(ctx context.Context, location string) error {
	path, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resolve accepts a bare name or a location previously returned by Save and
// refuses anything outside the store root.
func (s *localStore) resolve(location string) (string, error) {
	path := location
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	path = filepath.Clean(path)
	if path != s.dir && !strings.HasPrefix(path, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("location %q is outside the upload dir", location)
	}
	return path, nil
}
