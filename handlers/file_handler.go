package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"icarus-backend/logger"
	"icarus-backend/models"
	"icarus-backend/repository"
	"icarus-backend/service"
	"icarus-backend/storage"
)

// FileHandler handles HTTP requests for assignment files
type FileHandler struct {
	assignments repository.AssignmentRepo
	files       repository.FileRepo
	storage     storage.Storage
	ingest      *service.IngestService
	maxFileSize int64
	log         *logger.Logger
}

// NewFileHandler creates a new file handler. ingest may be nil, in which
// case uploaded PDFs are stored but not indexed.
func NewFileHandler(assignments repository.AssignmentRepo, files repository.FileRepo, st storage.Storage, ingest *service.IngestService, log *logger.Logger) *FileHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &FileHandler{
		assignments: assignments,
		files:       files,
		storage:     st,
		ingest:      ingest,
		maxFileSize: 20 * 1024 * 1024, // 20MB
		log:         log.With("handler", "FileHandler"),
	}
}

func allowedUpload(mimeType string) bool {
	return mimeType == "application/pdf" || strings.HasPrefix(mimeType, "text/") || strings.HasPrefix(mimeType, "image/")
}

// UploadFile handles POST /api/assignments/:id/files
func (h *FileHandler) UploadFile(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.assignments.GetByID(ctx, nil, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileHeader.Filename))); t != "" {
			mimeType = t
		}
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")
	if !allowedUpload(mimeType) {
		respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "File type not allowed. Allowed types: PDF, text, images")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return
	}
	defer file.Close()

	stored, err := h.storage.Upload(ctx, id, fileHeader.Filename, mimeType, file)
	if err != nil {
		h.log.Error("upload failed", "assignment_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload file")
		return
	}

	record := &models.File{
		AssignmentID: id,
		Filename:     fileHeader.Filename,
		Path:         stored.Key,
		URL:          stored.URL,
		MimeType:     mimeType,
		Size:         stored.Size,
	}
	if err := h.files.Create(ctx, nil, record); err != nil {
		if delErr := h.storage.Delete(ctx, stored.Key); delErr != nil {
			h.log.Warn("failed to remove orphaned upload", "key", stored.Key, "error", delErr)
		}
		h.log.Error("failed to save file record", "assignment_id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save file record")
		return
	}

	added := 0
	if mimeType == "application/pdf" && h.ingest != nil {
		data, err := storage.ReadAll(ctx, h.storage, stored.Key)
		if err == nil {
			added, err = h.ingest.IngestPDF(ctx, strconv.FormatUint(uint64(id), 10), "upload:"+fileHeader.Filename, data)
		}
		if err != nil {
			// the file is kept; it can be indexed later with manage-vectors
			h.log.Warn("failed to index uploaded pdf", "assignment_id", id, "file_id", record.ID, "error", err)
		}
	}

	respond(c, http.StatusCreated, gin.H{
		"id":           record.ID,
		"filename":     record.Filename,
		"mime_type":    record.MimeType,
		"size":         record.Size,
		"url":          record.URL,
		"chunks_added": added,
		"created_at":   record.CreatedAt,
	})
}

// GetFile handles GET /api/assignments/:id/files/:fileId
func (h *FileHandler) GetFile(c *gin.Context) {
	id, ok := assignmentID(c)
	if !ok {
		return
	}
	fileID, err := strconv.ParseUint(c.Param("fileId"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid file ID format")
		return
	}

	file, err := h.files.GetByID(c.Request.Context(), nil, uint(fileID))
	if err != nil || file.AssignmentID != id {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "File not found")
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), file.Path)
	if err != nil {
		h.log.Error("download failed", "file_id", file.ID, "error", err)
		respondError(c, http.StatusInternalServerError, "DOWNLOAD_FAILED", "Failed to download file")
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, nil)
}
