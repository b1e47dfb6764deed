package handler

import (
	"datagen-backend/internal/apperr"
	"datagen-backend/internal/model"
	"datagen-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func errorResponse(ae *apperr.Error) *model.ErrorResponse {
	details := ae.Details
	if ae.Err != nil {
		if details == "" {
			details = ae.Err.Error()
		} else {
			details += ": " + ae.Err.Error()
		}
	}
	return &model.ErrorResponse{
		Success:    false,
		Kind:       string(ae.Kind),
		Error:      ae.Label,
		Details:    details,
		Suggestion: ae.Suggestion,
	}
}

// respondError 任何错误都以结构化 JSON 返回，不暴露原始错误
func respondError(c *gin.Context, err error) {
	ae := apperr.From(err)
	if ae.Status() >= 500 {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, ae)
	} else {
		logger.Warnf("%s %s: %v", c.Request.Method, c.Request.URL.Path, ae)
	}
	c.JSON(ae.Status(), errorResponse(ae))
}
