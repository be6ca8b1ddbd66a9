package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/http/response"
	"github.com/yungbote/kpi-visual-backend/internal/kpi"
	"github.com/yungbote/kpi-visual-backend/internal/services"
)

// AnalyticsHandler serves one family's analytics routes.
type AnalyticsHandler struct {
	family    domainfacts.Family
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(family domainfacts.Family, analytics services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{family: family, analytics: analytics}
}

func (h *AnalyticsHandler) Family() domainfacts.Family { return h.family }

// listQuery accepts both repeated parameters and comma separated values.
func listQuery(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// GET /api/{family}/options and the per-analysis aliases
func (h *AnalyticsHandler) Options(c *gin.Context) {
	raw, err := h.analytics.Options(c.Request.Context(), h.family, kpi.OptionsRequest{
		Segments: listQuery(c, "segments"),
		Odms:     listQuery(c, "odms"),
		Models:   listQuery(c, "models"),
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, raw)
}

// POST /api/{family}/odm-analysis/analyze
func (h *AnalyticsHandler) AnalyzeOdm(c *gin.Context) {
	var req kpi.OdmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raw, err := h.analytics.AnalyzeOdm(c.Request.Context(), h.family, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, raw)
}

// POST /api/{family}/segment-analysis/analyze
func (h *AnalyticsHandler) AnalyzeSegment(c *gin.Context) {
	var req kpi.SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raw, err := h.analytics.AnalyzeSegment(c.Request.Context(), h.family, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, raw)
}

// POST /api/{family}/model-analysis/analyze
func (h *AnalyticsHandler) AnalyzeModel(c *gin.Context) {
	var req kpi.ModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raw, err := h.analytics.AnalyzeModel(c.Request.Context(), h.family, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, raw)
}

// POST /api/{family}/model-analysis/issue-details
func (h *AnalyticsHandler) IssueDetails(c *gin.Context) {
	var req kpi.IssueDetailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raw, err := h.analytics.IssueDetails(c.Request.Context(), h.family, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, raw)
}
