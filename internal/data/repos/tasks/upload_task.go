package tasks

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/kpi-visual-backend/internal/domain"
	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/platform/dbctx"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
)

type UploadTaskRepo interface {
	Create(dbc dbctx.Context, task *types.UploadTask) (*types.UploadTask, error)
	GetByTaskID(dbc dbctx.Context, taskID string) (*types.UploadTask, error)
	ClaimNextQueued(dbc dbctx.Context) (*types.UploadTask, error)
	UpdateFields(dbc dbctx.Context, taskID string, updates map[string]interface{}) error
	FailStale(dbc dbctx.Context, message string) (int64, error)
}

type uploadTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadTaskRepo(db *gorm.DB, baseLog *logger.Logger) UploadTaskRepo {
	return &uploadTaskRepo{
		db:  db,
		log: baseLog.With("repo", "UploadTaskRepo"),
	}
}

func (r *uploadTaskRepo) Create(dbc dbctx.Context, task *types.UploadTask) (*types.UploadTask, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if task.Status == "" {
		task.Status = domaintasks.StatusQueued
	}
	if task.JobType == "" {
		task.JobType = domaintasks.JobTypeETL
	}
	if err := transaction.WithContext(dbc.Ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// GetByTaskID returns nil, nil when no task matches.
func (r *uploadTaskRepo) GetByTaskID(dbc dbctx.Context, taskID string) (*types.UploadTask, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if taskID == "" {
		return nil, nil
	}
	var task types.UploadTask
	err := transaction.WithContext(dbc.Ctx).
		Where("task_id = ?", taskID).
		Limit(1).
		Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == 0 {
		return nil, nil
	}
	return &task, nil
}

// ClaimNextQueued moves the oldest queued task to processing and returns it.
// The status guard on the update makes the transition single-winner even on
// drivers without row locking.
func (r *uploadTaskRepo) ClaimNextQueued(dbc dbctx.Context) (*types.UploadTask, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	var claimed *types.UploadTask
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var task types.UploadTask
		q := txx
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		qErr := q.Where("status = ?", domaintasks.StatusQueued).
			Order("created_at ASC").
			Order("id ASC").
			First(&task).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		res := txx.Model(&types.UploadTask{}).
			Where("id = ? AND status = ?", task.ID, domaintasks.StatusQueued).
			Updates(map[string]interface{}{
				"status":     domaintasks.StatusProcessing,
				"started_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		task.Status = domaintasks.StatusProcessing
		task.StartedAt = &now
		claimed = &task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *uploadTaskRepo) UpdateFields(dbc dbctx.Context, taskID string, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.UploadTask{}).
		Where("task_id = ?", taskID).
		Updates(updates).Error
}

// FailStale marks tasks stuck in processing as failed. Run once at startup, before
// any worker claims work.
func (r *uploadTaskRepo) FailStale(dbc dbctx.Context, message string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.UploadTask{}).
		Where("status = ?", domaintasks.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        domaintasks.StatusFailed,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		})
	return res.RowsAffected, res.Error
}
