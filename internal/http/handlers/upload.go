package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	domaintasks "github.com/yungbote/kpi-visual-backend/internal/domain/tasks"
	"github.com/yungbote/kpi-visual-backend/internal/http/response"
	"github.com/yungbote/kpi-visual-backend/internal/platform/logger"
	"github.com/yungbote/kpi-visual-backend/internal/services"
)

type UploadHandler struct {
	log      *logger.Logger
	uploads  services.UploadService
	maxBytes int64
}

func NewUploadHandler(log *logger.Logger, uploads services.UploadService, maxUploadMB int) *UploadHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &UploadHandler{
		log:      log.With("handler", "UploadHandler"),
		uploads:  uploads,
		maxBytes: int64(maxUploadMB) << 20,
	}
}

// POST /api/upload (multipart: ifir_row, ifir_detail, ra_row, ra_detail)
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	var (
		files   []services.UploadFile
		closers []io.Closer
	)
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()
	for _, ft := range domaintasks.FileOrder {
		fh, err := slotFile(c.Request.MultipartForm, ft)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "duplicate_file", err)
			return
		}
		if fh == nil {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			h.log.Error("cannot open uploaded file", "file_type", string(ft), "error", err)
			response.RespondError(c, http.StatusBadRequest, "could_not_read_file", err)
			return
		}
		closers = append(closers, f)
		files = append(files, services.UploadFile{Type: ft, Filename: fh.Filename, Body: f})
	}

	st, err := h.uploads.Submit(c.Request.Context(), files)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, st)
}

// GET /api/upload/:task_id/status
func (h *UploadHandler) Status(c *gin.Context) {
	st, err := h.uploads.Status(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, st)
}

// slotFile returns the single file sent for ft, or nil when the slot is empty.
func slotFile(form *multipart.Form, ft domaintasks.FileType) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, nil
	}
	fhs := form.File[string(ft)]
	switch len(fhs) {
	case 0:
		return nil, nil
	case 1:
		return fhs[0], nil
	}
	return nil, fmt.Errorf("%w: %s sent %d files", services.ErrDuplicateSlot, ft, len(fhs))
}
