package handler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spam-detector/internal/apperrors"
	"spam-detector/internal/models"
	"spam-detector/internal/service"
)

// Handler handles HTTP requests
type Handler struct {
	scanner *service.Scanner
	logger  *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(scanner *service.Scanner, logger *zap.Logger) *Handler {
	return &Handler{
		scanner: scanner,
		logger:  logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Classification
		api.POST("/analyze", h.Analyze)
		api.POST("/analyze/batch", h.AnalyzeBatch)

		// Data retrieval
		api.GET("/history", h.GetHistory)
		api.GET("/analytics", h.GetAnalytics)
		api.GET("/model/info", h.GetModelInfo)

		// Export
		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/json", h.ExportJSON)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// analyzeFailure is the body of a classification whose record could not be stored.
type analyzeFailure struct {
	*models.AnalysisResult
	Error string `json:"error"`
}

// Analyze handles single message classification
func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.ErrEmptyText.Error()})
		return
	}

	result, err := h.scanner.Analyze(c.Request.Context(), req.Text)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsStorage(err) && result != nil:
		c.JSON(http.StatusInternalServerError, analyzeFailure{
			AnalysisResult: result,
			Error:          "classification succeeded but could not be recorded",
		})
	default:
		h.logger.Error("Failed to analyze message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze message"})
	}
}

// AnalyzeBatch handles batch classification. Items fail independently.
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	var req models.BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	texts := make([]string, len(req.Messages))
	for i, m := range req.Messages {
		texts[i] = m.Text
	}

	results := h.scanner.AnalyzeBatch(c.Request.Context(), texts)

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

// GetHistory retrieves the most recent scans
func (h *Handler) GetHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records, err := h.scanner.History(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetAnalytics returns scan counts per label
func (h *Handler) GetAnalytics(c *gin.Context) {
	counts, err := h.scanner.Analytics(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get analytics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// GetModelInfo describes the loaded model artifacts
func (h *Handler) GetModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.scanner.ModelInfo())
}

// ExportCSV exports scans as CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	records, err := h.scanner.Export(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export scans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=scans.csv")

	writer := csv.NewWriter(c.Writer)

	// Write header
	_ = writer.Write([]string{"id", "text", "label", "score", "timestamp"})

	for _, rec := range records {
		_ = writer.Write([]string{
			strconv.FormatInt(rec.ID, 10),
			rec.Text,
			string(rec.Label),
			fmt.Sprintf("%.6f", rec.Score),
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("Failed to write CSV export", zap.Error(err))
	}
}

// ExportJSON exports scans as JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	records, err := h.scanner.Export(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export scans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export data"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=scans.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		h.logger.Error("Failed to write JSON export", zap.Error(err))
	}
}

// HealthCheck reports store and model health. Degraded answers 503.
func (h *Handler) HealthCheck(c *gin.Context) {
	health := h.scanner.Health(c.Request.Context())
	code := http.StatusOK
	if health.Status != models.StatusOK {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, health)
}
