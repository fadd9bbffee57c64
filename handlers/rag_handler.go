package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"icarus-backend/logger"
	"icarus-backend/service"
)

// RAGHandler exposes vector namespace maintenance and a query debug aid
type RAGHandler struct {
	ingest    *service.IngestService
	retriever *service.Retriever
	log       *logger.Logger
}

func NewRAGHandler(ingest *service.IngestService, retriever *service.Retriever, log *logger.Logger) *RAGHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RAGHandler{ingest: ingest, retriever: retriever, log: log.With("handler", "RAGHandler")}
}

// QueryRequest is the body of a namespace query
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
	// Threshold overrides the configured distance threshold when set.
	Threshold *float64 `json:"threshold"`
}

// Query handles POST /api/rag/:namespace/query
func (h *RAGHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	var (
		passages []string
		err      error
	)
	if req.TopK > 0 || req.Threshold != nil {
		topK := req.TopK
		if topK <= 0 {
			topK = h.retriever.TopK()
		}
		threshold := req.Threshold
		if threshold == nil {
			threshold = h.retriever.Threshold()
		}
		hits, searchErr := h.retriever.Search(c.Request.Context(), c.Param("namespace"), req.Query, topK, threshold)
		err = searchErr
		for _, hit := range hits {
			passages = append(passages, hit.Content)
		}
	} else {
		passages, err = h.retriever.Retrieve(c.Request.Context(), c.Param("namespace"), req.Query)
	}
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	if passages == nil {
		passages = []string{}
	}
	respond(c, http.StatusOK, gin.H{
		"namespace": c.Param("namespace"),
		"passages":  passages,
	})
}

// Stats handles GET /api/rag/:namespace/stats
func (h *RAGHandler) Stats(c *gin.Context) {
	n, err := h.ingest.Stats(c.Request.Context(), c.Param("namespace"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"namespace": c.Param("namespace"),
		"chunks":    n,
	})
}

// ClearNamespace handles DELETE /api/rag/:namespace
func (h *RAGHandler) ClearNamespace(c *gin.Context) {
	if err := h.ingest.Clear(c.Request.Context(), c.Param("namespace")); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"namespace": c.Param("namespace"), "cleared": true})
}

// ClearAll handles DELETE /api/rag
func (h *RAGHandler) ClearAll(c *gin.Context) {
	if err := h.ingest.ClearAll(c.Request.Context()); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"cleared": true})
}
