package tasks

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
)

// JobTypeETL is the runtime handler type for upload tasks.
const JobTypeETL = "upload_etl"

// JobTypes lists the job types a worker may run.
var JobTypes = []string{JobTypeETL}

func KnownJobType(s string) bool {
	for _, jt := range JobTypes {
		if jt == s {
			return true
		}
	}
	return false
}

// FileType identifies one of the four spreadsheet slots of an upload.
type FileType string

const (
	FileIfirRow    FileType = "ifir_row"
	FileIfirDetail FileType = "ifir_detail"
	FileRaRow      FileType = "ra_row"
	FileRaDetail   FileType = "ra_detail"
)

// FileOrder is the processing order of a task's files.
var FileOrder = []FileType{FileIfirRow, FileIfirDetail, FileRaRow, FileRaDetail}

func ParseFileType(s string) (FileType, bool) {
	for _, ft := range FileOrder {
		if string(ft) == s {
			return ft, true
		}
	}
	return "", false
}

// UploadTask is one upload batch and its ETL progress.
type UploadTask struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	TaskID   string `gorm:"column:task_id;size:100;uniqueIndex;not null" json:"task_id"`
	JobType  string `gorm:"column:job_type;size:32;not null;default:upload_etl" json:"-"`
	Status   string `gorm:"column:status;size:16;not null;index" json:"status"`
	Progress int    `gorm:"column:progress;not null;default:0" json:"progress"`

	IfirRowFile      *string `gorm:"column:ifir_row_file;size:500" json:"-"`
	IfirRowStatus    *string `gorm:"column:ifir_row_status;size:20" json:"-"`
	IfirRowRows      *int    `gorm:"column:ifir_row_rows" json:"-"`
	IfirDetailFile   *string `gorm:"column:ifir_detail_file;size:500" json:"-"`
	IfirDetailStatus *string `gorm:"column:ifir_detail_status;size:20" json:"-"`
	IfirDetailRows   *int    `gorm:"column:ifir_detail_rows" json:"-"`
	RaRowFile        *string `gorm:"column:ra_row_file;size:500" json:"-"`
	RaRowStatus      *string `gorm:"column:ra_row_status;size:20" json:"-"`
	RaRowRows        *int    `gorm:"column:ra_row_rows" json:"-"`
	RaDetailFile     *string `gorm:"column:ra_detail_file;size:500" json:"-"`
	RaDetailStatus   *string `gorm:"column:ra_detail_status;size:20" json:"-"`
	RaDetailRows     *int    `gorm:"column:ra_detail_rows" json:"-"`

	ErrorMessage *string        `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedBy    *string        `gorm:"column:created_by;size:64" json:"-"`
	Payload      datatypes.JSON `gorm:"column:payload" json:"-"`

	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"-"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (UploadTask) TableName() string { return "upload_task" }

// FileSlot is a read view over the three per-file columns.
type FileSlot struct {
	Location *string
	Status   *string
	Rows     *int
}

func (t *UploadTask) Slot(ft FileType) FileSlot {
	switch ft {
	case FileIfirRow:
		return FileSlot{t.IfirRowFile, t.IfirRowStatus, t.IfirRowRows}
	case FileIfirDetail:
		return FileSlot{t.IfirDetailFile, t.IfirDetailStatus, t.IfirDetailRows}
	case FileRaRow:
		return FileSlot{t.RaRowFile, t.RaRowStatus, t.RaRowRows}
	case FileRaDetail:
		return FileSlot{t.RaDetailFile, t.RaDetailStatus, t.RaDetailRows}
	}
	return FileSlot{}
}

// SetFile records a stored upload in its slot with a pending sub-status.
func (t *UploadTask) SetFile(ft FileType, location string) {
	loc := location
	pending := FileStatusPending
	switch ft {
	case FileIfirRow:
		t.IfirRowFile, t.IfirRowStatus = &loc, &pending
	case FileIfirDetail:
		t.IfirDetailFile, t.IfirDetailStatus = &loc, &pending
	case FileRaRow:
		t.RaRowFile, t.RaRowStatus = &loc, &pending
	case FileRaDetail:
		t.RaDetailFile, t.RaDetailStatus = &loc, &pending
	}
}

// PresentFiles returns the file types that carry a stored upload, in processing order.
func (t *UploadTask) PresentFiles() []FileType {
	out := make([]FileType, 0, len(FileOrder))
	for _, ft := range FileOrder {
		if s := t.Slot(ft); s.Location != nil && *s.Location != "" {
			out = append(out, ft)
		}
	}
	return out
}

// Terminal reports whether the task reached completed or failed.
func (t *UploadTask) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// StatusColumn and RowsColumn name the sub-status columns of a file type.
func StatusColumn(ft FileType) string { return string(ft) + "_status" }
func RowsColumn(ft FileType) string   { return string(ft) + "_rows" }

// Payload carried through the worker for log correlation.
type Payload struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
