package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register mounts every route on r.
func Register(r *gin.Engine, assignments *AssignmentHandler, files *FileHandler, tutor *TutorHandler, rag *RAGHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// tutoring
	r.POST("/generate", tutor.Generate)

	api := r.Group("/api")
	{
		// File endpoints
		api.POST("/assignments/:id/files", files.UploadFile)
		api.GET("/assignments/:id/files/:fileId", files.GetFile)

		// Assignment endpoints
		api.POST("/assignments/:id/analyze", assignments.Analyze)
		api.GET("/assignments/:id/structure", assignments.GetStructure)
		api.PUT("/assignments/:id/structure", assignments.UpdateStructure)
		api.POST("/assignments/:id/score", assignments.Score)
		api.GET("/assignments/:id/analytics", assignments.GetAnalytics)

		// Vector namespace endpoints
		api.DELETE("/rag", rag.ClearAll)
		api.DELETE("/rag/:namespace", rag.ClearNamespace)
		api.GET("/rag/:namespace/stats", rag.Stats)
		api.POST("/rag/:namespace/query", rag.Query)
	}
}
