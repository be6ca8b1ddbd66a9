package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kpi-visual-backend/internal/platform/apierr"
)

// RespondErr maps err to its HTTP status. Errors without a status are internal:
// the detail goes to the log and the client gets a generic message.
func RespondErr(c *gin.Context, err error) {
	status := apierr.StatusOf(err, http.StatusInternalServerError)
	code := apierr.CodeOf(err, "internal_error")
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, code, nil)
		return
	}
	RespondError(c, status, code, err)
}
