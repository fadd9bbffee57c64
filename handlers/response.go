package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"icarus-backend/lock"
	"icarus-backend/logger"
	"icarus-backend/repository"
	"icarus-backend/service"
	"icarus-backend/vectorstore"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps service and repository errors onto the JSON
// envelope. Unexpected errors are logged and reported without detail.
func respondServiceError(c *gin.Context, log *logger.Logger, err error) {
	var ae *service.AnalysisError
	switch {
	case errors.As(err, &ae):
		switch ae.Message {
		case service.MsgServiceUnavailable:
			respondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ae.Message)
		case service.MsgEmptyContent:
			respondError(c, http.StatusUnprocessableEntity, "EMPTY_CONTENT", ae.Message)
		default:
			respondError(c, http.StatusBadRequest, "ANALYSIS_FAILED", ae.Message)
		}
	case errors.Is(err, repository.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "Assignment not found")
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, vectorstore.ErrEmptyNamespace):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, lock.ErrNotAcquired):
		respondError(c, http.StatusConflict, "BUSY", "Another run for this assignment is in progress")
	default:
		log.Error("request failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
