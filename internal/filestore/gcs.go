package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

const gcsScheme = "gs://"

type gcsStore struct {
	log          *logger.Logger
	client       *storage.Client
	bucket       string
	emulatorHost string
}

func NewGCS(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	storeLog := log.With("service", "GCSFileStore")
	storeLog.Info("Upload store initialized", "mode", cfg.Mode, "bucket", cfg.Bucket, "emulator_host", cfg.EmulatorHost)
	return &gcsStore{
		log:          storeLog,
		client:       client,
		bucket:       cfg.Bucket,
		emulatorHost: strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"),
	}, nil
}

func newStorageClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	if cfg.Mode == ModeGCSEmulator {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := clientOptions(cfg.Credentials)
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func clientOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *gcsStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return gcsScheme + s.bucket + "/" + name, nil
}

func (s *gcsStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	// the reader outlives this call; cancel runs on Close
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	if s.emulatorHost != "" {
		rc, err := s.openEmulator(ctx2, bucket, key)
		if err != nil {
			cancel()
			return nil, err
		}
		return &readCloserWithCancel{ReadCloser: rc, cancel: cancel}, nil
	}
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx2)
	if errors.Is(err, storage.ErrObjectNotExist) {
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open GCS reader: %w", err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

// openEmulator downloads through the JSON API media endpoint, which fake-gcs
// serves more reliably than the XML reader path.
func (s *gcsStore) openEmulator(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	mediaURL := fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", s.emulatorHost, url.PathEscape(bucket), url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed creating emulator download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed emulator download request: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, bucket, key)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("emulator download failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

func (s *gcsStore) Delete(ctx context.Context, location string) error {
	bucket, key, err := splitLocation(location)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err = s.client.Bucket(bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bucket, err)
	}
	return nil
}

func splitLocation(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("not a gcs location: %q", location)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed gcs location: %q", location)
	}
	return bucket, key, nil
}

type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}
