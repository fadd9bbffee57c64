package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"icarus-backend/logger"
	"icarus-backend/service"
)

// TutorHandler answers tutoring turns
type TutorHandler struct {
	tutor *service.TutorService
	log   *logger.Logger
}

func NewTutorHandler(tutor *service.TutorService, log *logger.Logger) *TutorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TutorHandler{tutor: tutor, log: log.With("handler", "TutorHandler")}
}

// Generate handles POST /generate
func (h *TutorHandler) Generate(c *gin.Context) {
	var req service.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Level == "" {
		req.Level = "L1"
	}
	answer, err := h.tutor.Answer(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, answer)
}
