package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

var ErrNotFound = errors.New("stored file not found")

// Store keeps uploaded spreadsheets until the ETL worker reads them. Locations
// returned by Save are opaque to callers and are what gets recorded on the task.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (location string, err error)
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Delete(ctx context.Context, location string) error
}

func New(ctx context.Context, cfg Config, log *logger.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == ModeLocal {
		return NewLocal(cfg.Dir, log)
	}
	return NewGCS(ctx, cfg, log)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// MaxBaseName bounds the client part of an object name. Locations end up in
// varchar(255) columns together with the task id and the store prefix.
const MaxBaseName = 100

// ObjectName is the stored name of an uploaded file: {task_id}_{file_type}_{filename}.
// The client filename is reduced to its base name with unsafe characters replaced,
// and cut to MaxBaseName keeping its extension.
func ObjectName(taskID string, ft domaintasks.FileType, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload.xlsx"
	}
	return fmt.Sprintf("%s_%s_%s", taskID, ft, capBase(base))
}

func capBase(base string) string {
	if len(base) <= MaxBaseName {
		return base
	}
	ext := filepath.Ext(base)
	if len(ext) >= MaxBaseName/2 {
		ext = ""
	}
	return base[:MaxBaseName-len(ext)] + ext
}
