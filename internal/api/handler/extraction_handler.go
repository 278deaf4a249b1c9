package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/whisper-go/internal/api/domain"
	"github.com/cuongbtq/whisper-go/internal/api/dto"
	"github.com/cuongbtq/whisper-go/internal/api/model"
	"github.com/cuongbtq/whisper-go/internal/api/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// extractionMessage is the queue payload handed to the worker service.
type extractionMessage struct {
	ExtractionID string `json:"extraction_id"`
}

// CreateExtraction handles POST /api/v1/extractions
// Records a new document-extraction job and queues it for the worker.
func (h *ExtractionHandler) CreateExtraction(c *gin.Context) {
	var req dto.CreateExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	// The same source invariant the whisper client enforces, checked at
	// the API edge so bad jobs never reach the queue.
	if req.SourceURL == "" && req.FilePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "either source_url or file_path is required",
		})
		return
	}
	if req.SourceURL != "" && req.FilePath != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "source_url and file_path are mutually exclusive",
		})
		return
	}

	extraction := model.Extraction{
		ExtractionID:   uuid.New().String(),
		IdempotencyKey: req.IdempotencyKey,
		SourceURL:      req.SourceURL,
		FilePath:       req.FilePath,
		Mode:           req.Mode,
		OutputMode:     req.OutputMode,
		PagesToExtract: req.PagesToExtract,
		Tag:            req.Tag,
		Status:         domain.ExtractionStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := h.storage.CreateExtraction(c.Request.Context(), &extraction); err != nil {
		h.logger.Error("Failed to create extraction", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create extraction",
		})
		return
	}

	message, err := json.Marshal(extractionMessage{ExtractionID: extraction.ExtractionID})
	if err != nil {
		h.logger.Error("Failed to encode queue message", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to queue extraction",
		})
		return
	}

	if err := h.rabbitClient.PublishWithRetry(c.Request.Context(), message, "application/json"); err != nil {
		h.logger.Error("Failed to publish extraction message",
			slog.String("extraction_id", extraction.ExtractionID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to queue extraction",
		})
		return
	}

	h.logger.Info("Extraction queued",
		slog.String("extraction_id", extraction.ExtractionID),
		slog.String("tag", extraction.Tag),
	)

	c.JSON(http.StatusAccepted, toDTO(&extraction))
}

// GetExtraction handles GET /api/v1/extractions/:extraction_id
// Returns the extraction row, including the result text once completed.
func (h *ExtractionHandler) GetExtraction(c *gin.Context) {
	extractionID := c.Param("extraction_id")

	if _, err := uuid.Parse(extractionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "extraction_id must be a valid UUID",
		})
		return
	}

	extraction, err := h.storage.GetExtractionByID(c.Request.Context(), extractionID)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Extraction not found",
			})
			return
		}
		h.logger.Error("Failed to get extraction",
			slog.String("extraction_id", extractionID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get extraction",
		})
		return
	}

	c.JSON(http.StatusOK, toDTO(extraction))
}

// ListExtractions handles GET /api/v1/extractions
// Lists extractions with optional filtering and keyset pagination.
func (h *ExtractionHandler) ListExtractions(c *gin.Context) {
	var req dto.ListExtractionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeExtractionCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.ExtractionFilter{
		Status:   req.Status,
		Tag:      req.Tag,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	extractions, err := h.storage.ListExtractions(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list extractions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list extractions",
		})
		return
	}

	// One extra row was fetched to detect whether more results exist.
	hasMore := len(extractions) > req.PageSize
	if hasMore {
		extractions = extractions[:req.PageSize]
	}

	response := make([]dto.ExtractionDTO, len(extractions))
	for i, extraction := range extractions {
		response[i] = *toDTO(&extraction)
	}

	var nextCursor string
	if hasMore {
		last := extractions[len(extractions)-1]
		nextCursor, err = EncodeExtractionCursor(&storage.ExtractionCursor{
			CreatedAt:    last.CreatedAt,
			ExtractionID: last.ExtractionID,
		})
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListExtractionsResponse{
		Extractions: response,
		NextCursor:  nextCursor,
	})
}

// DeleteExtraction handles DELETE /api/v1/extractions/:extraction_id
// Removes a terminal extraction; in-flight extractions cannot be deleted.
func (h *ExtractionHandler) DeleteExtraction(c *gin.Context) {
	extractionID := c.Param("extraction_id")

	if _, err := uuid.Parse(extractionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "extraction_id must be a valid UUID",
		})
		return
	}

	extraction, err := h.storage.GetExtractionByID(c.Request.Context(), extractionID)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Extraction not found",
			})
			return
		}
		h.logger.Error("Failed to get extraction",
			slog.String("extraction_id", extractionID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get extraction",
		})
		return
	}

	if !domain.IsTerminalStatus(extraction.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Extraction is still in progress",
		})
		return
	}

	if err := h.storage.DeleteExtraction(c.Request.Context(), extractionID); err != nil {
		h.logger.Error("Failed to delete extraction",
			slog.String("extraction_id", extractionID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete extraction",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

func toDTO(extraction *model.Extraction) *dto.ExtractionDTO {
	return &dto.ExtractionDTO{
		ExtractionID:   extraction.ExtractionID,
		IdempotencyKey: extraction.IdempotencyKey,
		SourceURL:      extraction.SourceURL,
		FilePath:       extraction.FilePath,
		Mode:           extraction.Mode,
		OutputMode:     extraction.OutputMode,
		PagesToExtract: extraction.PagesToExtract,
		Tag:            extraction.Tag,
		Status:         extraction.Status,
		WhisperHash:    extraction.WhisperHash,
		ResultText:     extraction.ResultText,
		FailureReason:  extraction.FailureReason,
		CreatedAt:      extraction.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      extraction.UpdatedAt.Format(time.RFC3339),
	}
}
