package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/kpi-visual-backend/internal/data/repos"
	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/filestore"
	"github.com/yungbote/kpi-visual-backend/internal/platform/apierr"
	"github.com/yungbote/kpi-visual-backend/internal/platform/ctxutil"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

var (
	ErrNoFiles       = errors.New("at least one file is required")
	ErrTaskNotFound  = errors.New("task not found")
	ErrDuplicateSlot = errors.New("file type uploaded twice")
)

// TaskNotifier wakes the ETL worker after a task is queued.
type TaskNotifier interface {
	Notify()
}

type UploadFile struct {
	Type     domaintasks.FileType
	Filename string
	Body     io.Reader
}

type FileInfo struct {
	Filename string  `json:"filename"`
	Status   string  `json:"status"`
	Rows     *int    `json:"rows"`
	Error    *string `json:"error"`
}

type TaskStatus struct {
	TaskID       string     `json:"task_id"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	IfirDetail   *FileInfo  `json:"ifir_detail,omitempty"`
	IfirRow      *FileInfo  `json:"ifir_row,omitempty"`
	RaDetail     *FileInfo  `json:"ra_detail,omitempty"`
	RaRow        *FileInfo  `json:"ra_row,omitempty"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

type UploadService interface {
	Submit(ctx context.Context, files []UploadFile) (*TaskStatus, error)
	Status(ctx context.Context, taskID string) (*TaskStatus, error)
	RecoverStale(ctx context.Context) (int64, error)
}

type uploadService struct {
	log      *logger.Logger
	tasks    repos.UploadTaskRepo
	store    filestore.Store
	notifier TaskNotifier
}

func NewUploadService(baseLog *logger.Logger, tasks repos.UploadTaskRepo, store filestore.Store, notifier TaskNotifier) UploadService {
	return &uploadService{
		log:      baseLog.With("service", "UploadService"),
		tasks:    tasks,
		store:    store,
		notifier: notifier,
	}
}

// Submit stores every file, records a queued task and wakes the worker. Files
// already stored are removed again when the task cannot be created.
func (s *uploadService) Submit(ctx context.Context, files []UploadFile) (*TaskStatus, error) {
	if len(files) == 0 {
		return nil, apierr.BadRequest("no_files", ErrNoFiles)
	}
	seen := map[domaintasks.FileType]bool{}
	for _, f := range files {
		if seen[f.Type] {
			return nil, apierr.BadRequest("duplicate_file", fmt.Errorf("%w: %s", ErrDuplicateSlot, f.Type))
		}
		seen[f.Type] = true
	}

	taskID := uuid.New().String()
	task := &types.UploadTask{TaskID: taskID, Status: domaintasks.StatusQueued}
	if p := ctxutil.GetPrincipal(ctx); p != nil {
		by := p.Username
		task.CreatedBy = &by
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		raw, _ := json.Marshal(domaintasks.Payload{TraceID: td.TraceID, RequestID: td.RequestID})
		task.Payload = datatypes.JSON(raw)
	}

	var saved []string
	cleanup := func() {
		for _, loc := range saved {
			if err := s.store.Delete(context.WithoutCancel(ctx), loc); err != nil {
				s.log.Warn("Failed to remove stored upload", "location", loc, "error", err)
			}
		}
	}
	for _, f := range files {
		loc, err := s.store.Save(ctx, filestore.ObjectName(taskID, f.Type, f.Filename), f.Body)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("store %s: %w", f.Type, err)
		}
		saved = append(saved, loc)
		task.SetFile(f.Type, loc)
	}

	if _, err := s.tasks.Create(dbctx.New(ctx), task); err != nil {
		cleanup()
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.log.Info("Upload queued", append(ctxutil.LogFields(ctx), "task_id", taskID, "files", len(files))...)
	if s.notifier != nil {
		s.notifier.Notify()
	}
	return statusOf(task), nil
}

func (s *uploadService) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	task, err := s.tasks.GetByTaskID(dbctx.New(ctx), taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return nil, apierr.NotFound("task_not_found", ErrTaskNotFound)
	}
	return statusOf(task), nil
}

// RecoverStale fails tasks a previous process left in processing.
func (s *uploadService) RecoverStale(ctx context.Context) (int64, error) {
	n, err := s.tasks.FailStale(dbctx.New(ctx), "interrupted by server restart, please upload again")
	if err != nil {
		return 0, fmt.Errorf("fail stale tasks: %w", err)
	}
	if n > 0 {
		s.log.Warn("Marked interrupted tasks failed", "count", n)
	}
	return n, nil
}

func statusOf(task *types.UploadTask) *TaskStatus {
	st := &TaskStatus{
		TaskID:       task.TaskID,
		Status:       task.Status,
		Progress:     task.Progress,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt,
		StartedAt:    task.StartedAt,
		CompletedAt:  task.CompletedAt,
	}
	for _, ft := range task.PresentFiles() {
		slot := task.Slot(ft)
		info := &FileInfo{Filename: path.Base(*slot.Location), Rows: slot.Rows}
		if slot.Status != nil {
			info.Status = *slot.Status
		}
		if info.Status == domaintasks.FileStatusFailed {
			info.Error = task.ErrorMessage
		}
		switch ft {
		case domaintasks.FileIfirRow:
			st.IfirRow = info
		case domaintasks.FileIfirDetail:
			st.IfirDetail = info
		case domaintasks.FileRaRow:
			st.RaRow = info
		case domaintasks.FileRaDetail:
			st.RaDetail = info
		}
	}
	return st
}
