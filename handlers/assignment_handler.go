package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/service"
)

// AssignmentHandler handles structure review, scoring and analytics for
// assignments
type AssignmentHandler struct {
	structure *service.StructureService
	scoring   *service.ScoringService
	analytics *service.AnalyticsService
	log       *logger.Logger
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(structure *service.StructureService, scoring *service.ScoringService, analytics *service.AnalyticsService, log *logger.Logger) *AssignmentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AssignmentHandler{
		structure: structure,
		scoring:   scoring,
		analytics: analytics,
		log:       log.With("handler", "AssignmentHandler"),
	}
}

func assignmentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid assignment ID format")
		return 0, false
	}
	return uint(id), true
}

// Analyze handles POST /api/assignments/:id/analyze
func (h *AssignmentHandler) Analyze(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}
	res, err := h.structure.Extract(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"structure": res.Review,
		"changed":   res.Changed,
	})
}

// GetStructure handles GET /api/assignments/:id/structure
func (h *AssignmentHandler) GetStructure(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}
	review, err := h.structure.Current(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, review)
}

// UpdateStructure handles PUT /api/assignments/:id/structure
func (h *AssignmentHandler) UpdateStructure(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}
	var req models.StructureUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	review, err := h.structure.Apply(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, review)
}

// Score handles POST /api/assignments/:id/score
func (h *AssignmentHandler) Score(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}
	scores, err := h.scoring.Score(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"assignment_id": id,
		"scores":        scores,
	})
}

// GetAnalytics handles GET /api/assignments/:id/analytics
func (h *AssignmentHandler) GetAnalytics(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}
	out, err := h.analytics.AssignmentAnalytics(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, out)
}
