package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"aarogya/internal/ai"
	"aarogya/internal/locale"
	"aarogya/internal/model"
	"aarogya/internal/utils"
)

// analyzeSymptoms handles POST /api/analyze-symptoms
func (h *Handler) analyzeSymptoms(c *gin.Context) {
	requestID := uuid.NewString()

	var req model.SymptomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.analyzer == nil {
		utils.Error(c, http.StatusServiceUnavailable, "analysis service not configured")
		return
	}

	res, err := h.analyzer.Analyze(c.Request.Context(), req.Symptoms, req.Language)
	if err != nil {
		h.logger.Printf("[Symptoms] %s: analysis failed: %v", requestID, err)
		h.aiError(c, err)
		return
	}

	utils.SuccessWithMeta(c, gin.H{
		"analysis":           res.AnalysisText,
		"condition_category": res.Category,
		"severity":           res.Severity,
		"language":           res.Language,
		"recommendations":    h.tables.Recommendations(res.Language),
		"disclaimer":         h.tables.Disclaimer(res.Language),
	}, requestID)
}

// healthInfo handles GET /api/health-info/:topic
func (h *Handler) healthInfo(c *gin.Context) {
	var q model.HealthInfoQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid query")
		return
	}
	if h.analyzer == nil {
		utils.Error(c, http.StatusServiceUnavailable, "analysis service not configured")
		return
	}

	info, err := h.analyzer.HealthInfo(c.Request.Context(), c.Param("topic"), locale.Normalize(q.Lang))
	if err != nil {
		h.logger.Printf("[HealthInfo] topic=%s failed: %v", c.Param("topic"), err)
		h.aiError(c, err)
		return
	}

	utils.Success(c, gin.H{
		"topic":    info.Topic,
		"title":    info.Title,
		"content":  info.Content,
		"language": info.Language,
	})
}

// aiError maps analyzer errors onto HTTP statuses: bad input is the
// client's fault, a timeout is 504, other gateway failures are 502.
func (h *Handler) aiError(c *gin.Context, err error) {
	var aiErr *ai.Error
	if !errors.As(err, &aiErr) {
		details := ""
		if debugRequested(c) {
			details = err.Error()
		}
		utils.ErrorWithDetails(c, http.StatusInternalServerError, "internal server error", details)
		return
	}

	details := ""
	if debugRequested(c) {
		details = aiErr.Detail()
	}

	switch aiErr.Kind {
	case ai.KindInvalidInput:
		utils.Error(c, http.StatusBadRequest, aiErr.Error())
	case ai.KindTimeout:
		utils.ErrorWithDetails(c, http.StatusGatewayTimeout, aiErr.Error(), details)
	default:
		c.JSON(http.StatusBadGateway, upstreamBody(aiErr, details))
	}
}

func upstreamBody(e *ai.Error, details string) gin.H {
	body := gin.H{
		"success": false,
		"error":   e.Error(),
		"kind":    e.Kind.String(),
	}
	if e.Status != 0 {
		body["upstream_status"] = e.Status
	}
	if details != "" {
		body["details"] = details
	}
	return body
}
