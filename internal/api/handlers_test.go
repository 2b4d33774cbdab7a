package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching_engine/internal/models"
	"matching_engine/internal/tier"
)

// stubEngine returns canned results or errors per call.
type stubEngine struct {
	result      *models.MatchResult
	explanation *models.MatchExplanation
	feedback    *models.MatchFeedback
	retrain     *models.RetrainResponse
	metrics     []models.ModelMetrics
	err         error
}

func (s *stubEngine) CalculateProbability(ctx context.Context, req *models.CalculateProbabilityRequest) (*models.MatchResult, error) {
	return s.result, s.err
}

func (s *stubEngine) FindMatches(ctx context.Context, req *models.FindMatchesRequest) (*models.FindMatchesResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.FindMatchesResponse{Matches: []models.MatchResult{*s.result}, Total: 1, Scored: 1, Tier: req.Tier}, nil
}

func (s *stubEngine) Explain(ctx context.Context, matchID uuid.UUID) (*models.MatchExplanation, error) {
	return s.explanation, s.err
}

func (s *stubEngine) RecordFeedback(ctx context.Context, req *models.FeedbackRequest) (*models.MatchFeedback, error) {
	return s.feedback, s.err
}

func (s *stubEngine) Retrain(ctx context.Context) (*models.RetrainResponse, error) {
	return s.retrain, s.err
}

func (s *stubEngine) Thresholds() []models.ThresholdInfo {
	return tier.Thresholds()
}

func (s *stubEngine) TierThreshold(t models.SubscriptionTier) (models.ThresholdInfo, error) {
	if !t.Valid() {
		return models.ThresholdInfo{}, models.NewValidationError("tier", "unknown subscription tier")
	}
	return tier.ThresholdInfo(t), nil
}

func (s *stubEngine) ModelMetricsHistory(ctx context.Context, limit int) ([]models.ModelMetrics, error) {
	return s.metrics, s.err
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(t *testing.T, eng Engine, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	router := SetupRouter(eng)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", bearerToken(t))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleMatch() *models.MatchResult {
	return &models.MatchResult{
		ID:          uuid.New(),
		JobID:       "job-1",
		CandidateID: "cand-1",
		Probability: 0.72,
		ComponentScores: map[models.ComponentName]float64{
			models.ComponentSkillDepth: 0.8,
		},
	}
}

func TestHealthCheck(t *testing.T) {
	w := doRequest(t, &stubEngine{}, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAuthRequired(t *testing.T) {
	w := doRequest(t, &stubEngine{}, http.MethodGet, "/api/v1/thresholds", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCalculateProbabilityHandler(t *testing.T) {
	match := sampleMatch()
	body := models.CalculateProbabilityRequest{
		CandidateID: "cand-1",
		Candidate:   models.CandidateDocuments{ResumeText: "Go engineer"},
		Job:         models.JobPosting{JobID: "job-1", Description: "Go"},
	}

	t.Run("success", func(t *testing.T) {
		w := doRequest(t, &stubEngine{result: match}, http.MethodPost, "/api/v1/calculate-probability", body, true)
		require.Equal(t, http.StatusOK, w.Code)

		var got models.MatchResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, match.ID, got.ID)
		assert.Equal(t, 0.72, got.Probability)
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		eng := &stubEngine{err: models.NewValidationError("candidate_id", "is required")}
		w := doRequest(t, eng, http.MethodPost, "/api/v1/calculate-probability", body, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("extraction error maps to 400", func(t *testing.T) {
		eng := &stubEngine{err: models.NewExtractionError(models.ExtractionEmptyInput, "no documents")}
		w := doRequest(t, eng, http.MethodPost, "/api/v1/calculate-probability", body, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "EXTRACTION_ERROR")
	})

	t.Run("malformed body", func(t *testing.T) {
		router := SetupRouter(&stubEngine{result: match})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/calculate-probability", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Authorization", bearerToken(t))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFindMatchesHandler(t *testing.T) {
	body := models.FindMatchesRequest{
		CandidateID: "cand-1",
		Candidate:   models.CandidateDocuments{ResumeText: "Go engineer"},
		Tier:        models.TierPremium,
		Jobs:        []models.JobPosting{{JobID: "job-1", Description: "Go"}},
	}

	w := doRequest(t, &stubEngine{result: sampleMatch()}, http.MethodPost, "/api/v1/find-matches", body, true)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.FindMatchesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, models.TierPremium, got.Tier)
}

func TestExplainHandler(t *testing.T) {
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		eng := &stubEngine{explanation: &models.MatchExplanation{MatchID: id, Summary: "a good match"}}
		w := doRequest(t, eng, http.MethodGet, "/api/v1/explain/"+id.String(), nil, true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "a good match")
	})

	t.Run("invalid id", func(t *testing.T) {
		w := doRequest(t, &stubEngine{}, http.MethodGet, "/api/v1/explain/not-a-uuid", nil, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		eng := &stubEngine{err: models.ErrMatchNotFound}
		w := doRequest(t, eng, http.MethodGet, "/api/v1/explain/"+id.String(), nil, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})
}

func TestFeedbackHandler(t *testing.T) {
	fb := &models.MatchFeedback{ID: uuid.New(), MatchID: uuid.New()}
	body := models.FeedbackRequest{MatchID: fb.MatchID, Outcome: models.OutcomeInterview}

	t.Run("created", func(t *testing.T) {
		w := doRequest(t, &stubEngine{feedback: fb}, http.MethodPost, "/api/v1/feedback", body, true)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), fb.ID.String())
	})

	t.Run("unknown match maps to 404", func(t *testing.T) {
		w := doRequest(t, &stubEngine{err: models.ErrMatchNotFound}, http.MethodPost, "/api/v1/feedback", body, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRetrainHandler(t *testing.T) {
	t.Run("activated", func(t *testing.T) {
		eng := &stubEngine{retrain: &models.RetrainResponse{Status: models.RetrainActivated}}
		w := doRequest(t, eng, http.MethodPost, "/api/v1/retrain", nil, true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "activated")
	})

	t.Run("concurrent retrain maps to 409", func(t *testing.T) {
		eng := &stubEngine{err: models.ErrRetrainInProgress}
		w := doRequest(t, eng, http.MethodPost, "/api/v1/retrain", nil, true)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "RETRAIN_IN_PROGRESS")
	})
}

func TestThresholdsHandler(t *testing.T) {
	w := doRequest(t, &stubEngine{}, http.MethodGet, "/api/v1/thresholds", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Thresholds []models.ThresholdInfo `json:"thresholds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Thresholds, 6)

	w = doRequest(t, &stubEngine{}, http.MethodGet, "/api/v1/thresholds/premium", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"threshold":0.55`)

	w = doRequest(t, &stubEngine{}, http.MethodGet, "/api/v1/thresholds/gold", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModelMetricsHandler(t *testing.T) {
	eng := &stubEngine{metrics: []models.ModelMetrics{{ID: uuid.New(), AUCROC: 0.8, Activated: true}}}
	w := doRequest(t, eng, http.MethodGet, "/api/v1/models/metrics?limit=5", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"auc_roc":0.8`)
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}
