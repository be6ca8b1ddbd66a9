package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/kpi-visual-backend/internal/filestore"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

var newFileStore = filestore.New

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingDir          StorageProviderBootstrapErrorCode = "missing_dir"
	StorageProviderBootstrapErrorMissingBucket       StorageProviderBootstrapErrorCode = "missing_bucket"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "upload store bootstrap failed"
	}
	return fmt.Sprintf(
		"upload store bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveFileStore picks the upload store for UPLOAD_STORE and reports
// misconfiguration with a stable error code.
func resolveFileStore(ctx context.Context, log *logger.Logger, cfg Config) (filestore.Store, error) {
	storeCfg := cfg.Upload
	log.Info(
		"Selecting upload store",
		"mode", storeCfg.Mode,
		"dir", storeCfg.Dir,
		"bucket", storeCfg.Bucket,
		"emulator_host", storeCfg.EmulatorHost,
	)

	store, err := newFileStore(ctx, storeCfg, log)
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storeCfg, err)
		log.Error(
			"Upload store bootstrap failed",
			"mode", storeCfg.Mode,
			"emulator_host", storeCfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return store, nil
}

func classifyStorageProviderBootstrapError(storeCfg filestore.Config, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *filestore.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case filestore.ConfigErrorInvalidMode:
			code = StorageProviderBootstrapErrorInvalidMode
		case filestore.ConfigErrorMissingDir:
			code = StorageProviderBootstrapErrorMissingDir
		case filestore.ConfigErrorMissingBucket:
			code = StorageProviderBootstrapErrorMissingBucket
		case filestore.ConfigErrorMissingEmulatorHost:
			code = StorageProviderBootstrapErrorMissingEmulatorHost
		case filestore.ConfigErrorInvalidEmulatorHost:
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         string(storeCfg.Mode),
		EmulatorHost: storeCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) {
		if bootstrapErr.Code != "" {
			return bootstrapErr.Code
		}
	}
	return StorageProviderBootstrapErrorConnectFailed
}
