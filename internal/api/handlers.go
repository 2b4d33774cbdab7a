package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"matching_engine/internal/models"
)

// Engine is the orchestration surface the handlers call into.
// Implemented by engine.Service.
type Engine interface {
	CalculateProbability(ctx context.Context, req *models.CalculateProbabilityRequest) (*models.MatchResult, error)
	FindMatches(ctx context.Context, req *models.FindMatchesRequest) (*models.FindMatchesResponse, error)
	Explain(ctx context.Context, matchID uuid.UUID) (*models.MatchExplanation, error)
	RecordFeedback(ctx context.Context, req *models.FeedbackRequest) (*models.MatchFeedback, error)
	Retrain(ctx context.Context) (*models.RetrainResponse, error)
	Thresholds() []models.ThresholdInfo
	TierThreshold(t models.SubscriptionTier) (models.ThresholdInfo, error)
	ModelMetricsHistory(ctx context.Context, limit int) ([]models.ModelMetrics, error)
}

type Handler struct {
	engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "matching_engine",
		"timestamp": time.Now(),
	})
}

// CalculateProbability handles POST /api/v1/calculate-probability
func (h *Handler) CalculateProbability(c *gin.Context) {
	var req models.CalculateProbabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	result, err := h.engine.CalculateProbability(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "SCORING_ERROR", "Failed to calculate probability")
		return
	}
	c.JSON(http.StatusOK, result)
}

// FindMatches handles POST /api/v1/find-matches
func (h *Handler) FindMatches(c *gin.Context) {
	var req models.FindMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.engine.FindMatches(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "MATCHING_ERROR", "Failed to find matches")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Explain handles GET /api/v1/explain/:match_id
func (h *Handler) Explain(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("match_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid match ID",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	explanation, err := h.engine.Explain(c.Request.Context(), matchID)
	if err != nil {
		respondError(c, err, "EXPLAIN_ERROR", "Failed to explain match")
		return
	}
	c.JSON(http.StatusOK, explanation)
}

// Feedback handles POST /api/v1/feedback
func (h *Handler) Feedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	fb, err := h.engine.RecordFeedback(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "FEEDBACK_ERROR", "Failed to record feedback")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":      "recorded",
		"feedback_id": fb.ID,
		"match_id":    fb.MatchID,
	})
}

// Thresholds handles GET /api/v1/thresholds
func (h *Handler) Thresholds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"thresholds": h.engine.Thresholds()})
}

// TierThreshold handles GET /api/v1/thresholds/:tier
func (h *Handler) TierThreshold(c *gin.Context) {
	info, err := h.engine.TierThreshold(models.SubscriptionTier(c.Param("tier")))
	if err != nil {
		respondError(c, err, "INVALID_TIER", "Unknown tier")
		return
	}
	c.JSON(http.StatusOK, info)
}

// Retrain handles POST /api/v1/retrain
func (h *Handler) Retrain(c *gin.Context) {
	resp, err := h.engine.Retrain(c.Request.Context())
	if err != nil {
		respondError(c, err, "RETRAIN_ERROR", "Failed to retrain")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ModelMetrics handles GET /api/v1/models/metrics
func (h *Handler) ModelMetrics(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	history, err := h.engine.ModelMetricsHistory(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "METRICS_ERROR", "Failed to load model metrics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": history})
}

// respondError maps the engine error taxonomy to HTTP statuses with the
// uniform error body.
func respondError(c *gin.Context, err error, fallbackCode, fallbackMsg string) {
	var valErr *models.ValidationError
	var extErr *models.ExtractionError

	switch {
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Validation failed",
			Code:    "VALIDATION_ERROR",
			Details: valErr.Error(),
		})
	case errors.As(err, &extErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Extraction failed",
			Code:    "EXTRACTION_ERROR",
			Details: extErr.Error(),
		})
	case errors.Is(err, models.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Match not found",
			Code:  "NOT_FOUND",
		})
	case errors.Is(err, models.ErrRetrainInProgress):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: "A retrain is already in progress",
			Code:  "RETRAIN_IN_PROGRESS",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   fallbackMsg,
			Code:    fallbackCode,
			Details: err.Error(),
		})
	}
}
