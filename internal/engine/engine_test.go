package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching_engine/internal/explainer"
	"matching_engine/internal/extractor"
	"matching_engine/internal/learner"
	"matching_engine/internal/models"
	"matching_engine/internal/scorer"
	"matching_engine/internal/taxonomy"
)

// memStore is an in-memory Store covering both the engine and learner
// persistence surfaces.
type memStore struct {
	mu       sync.Mutex
	matches  map[uuid.UUID]*models.MatchResult
	feedback []*models.MatchFeedback
	training []models.TrainingDataPoint
	metrics  []models.ModelMetrics
}

func newMemStore() *memStore {
	return &memStore{matches: make(map[uuid.UUID]*models.MatchResult)}
}

func (m *memStore) SaveMatchResult(ctx context.Context, r *models.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.matches[r.ID] = &cp
	return nil
}

func (m *memStore) GetMatchResult(ctx context.Context, id uuid.UUID) (*models.MatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.matches[id]
	if !ok {
		return nil, models.ErrMatchNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) AppendFeedback(ctx context.Context, fb *models.MatchFeedback, tp *models.TrainingDataPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, fb)
	m.training = append(m.training, *tp)
	return nil
}

func (m *memStore) ListModelMetrics(ctx context.Context, limit int) ([]models.ModelMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ModelMetrics, len(m.metrics))
	copy(out, m.metrics)
	return out, nil
}

func (m *memStore) ListTrainingData(ctx context.Context) ([]models.TrainingDataPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TrainingDataPoint, len(m.training))
	copy(out, m.training)
	return out, nil
}

func (m *memStore) SaveModelMetrics(ctx context.Context, mm *models.ModelMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = append(m.metrics, *mm)
	return nil
}

func (m *memStore) LatestActivatedMetrics(ctx context.Context) (*models.ModelMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.metrics) - 1; i >= 0; i-- {
		if m.metrics[i].Activated {
			cp := m.metrics[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	st := newMemStore()
	tax := taxonomy.Default()
	lr := learner.New(st, learner.Config{})
	sc, err := scorer.New(tax, nil, lr, 0)
	require.NoError(t, err)
	return NewService(st, extractor.New(tax), sc, explainer.New(nil, nil), lr, 4), st
}

const testResume = `Senior Backend Engineer — Jan 2020 - Present
Built payment services in Go and PostgreSQL on Kubernetes for a fintech platform.

Software Engineer — Jun 2016 - Dec 2019
Python microservices and Docker.

Bachelor of Science in Computer Science`

func calcRequest() *models.CalculateProbabilityRequest {
	return &models.CalculateProbabilityRequest{
		CandidateID: "cand-1",
		Candidate:   models.CandidateDocuments{ResumeText: testResume},
		Job: models.JobPosting{
			JobID:       "job-1",
			Title:       "Senior Backend Engineer",
			Description: "Requirements:\n- 5+ years with Go and PostgreSQL\n- Kubernetes",
		},
	}
}

func TestCalculateProbability(t *testing.T) {
	svc, st := newTestService(t)

	result, err := svc.CalculateProbability(context.Background(), calcRequest())
	require.NoError(t, err)

	assert.Equal(t, "cand-1", result.CandidateID)
	assert.Equal(t, "job-1", result.JobID)
	assert.GreaterOrEqual(t, result.Probability, 0.0)
	assert.LessOrEqual(t, result.Probability, 1.0)
	assert.Len(t, result.ComponentScores, len(models.ComponentOrder))
	assert.Len(t, result.FeatureVector, len(models.ComponentOrder)+1)
	assert.Greater(t, result.Confidence, 0.0)
	assert.Greater(t, result.DataCompleteness, 0.0)

	stored, err := st.GetMatchResult(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Probability, stored.Probability)
}

func TestCalculateProbability_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	req := calcRequest()
	req.CandidateID = ""
	_, err := svc.CalculateProbability(context.Background(), req)
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "candidate_id", valErr.Field)

	req = calcRequest()
	req.Candidate = models.CandidateDocuments{}
	_, err = svc.CalculateProbability(context.Background(), req)
	var extErr *models.ExtractionError
	require.ErrorAs(t, err, &extErr)
}

func TestFindMatches(t *testing.T) {
	svc, _ := newTestService(t)

	req := &models.FindMatchesRequest{
		CandidateID: "cand-1",
		Candidate:   models.CandidateDocuments{ResumeText: testResume},
		Tier:        models.TierElite,
		Jobs: []models.JobPosting{
			{JobID: "fit", Title: "Senior Go Engineer", Description: "5+ years of Go, PostgreSQL, Kubernetes. Fintech."},
			{JobID: "partial", Title: "Data Engineer", Description: "Spark, Airflow and 3+ years of Python."},
			{JobID: "broken"}, // nothing extractable, skipped
		},
		IncludeBelowThreshold: true,
	}

	resp, err := svc.FindMatches(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Scored, "unextractable job is skipped, not fatal")
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, models.TierElite, resp.Tier)

	// Ranked by probability descending.
	assert.GreaterOrEqual(t, resp.Matches[0].Probability, resp.Matches[1].Probability)
	assert.Equal(t, "fit", resp.Matches[0].JobID)
	for _, m := range resp.Matches {
		assert.Equal(t, models.TierElite, m.Tier)
		assert.Equal(t, "cand-1", m.CandidateID)
	}
}

func TestFindMatches_TopKAndFloor(t *testing.T) {
	svc, _ := newTestService(t)

	jobs := make([]models.JobPosting, 5)
	for i := range jobs {
		jobs[i] = models.JobPosting{
			JobID:       string(rune('a' + i)),
			Title:       "Go Engineer",
			Description: "Go, PostgreSQL and Kubernetes experience.",
		}
	}

	resp, err := svc.FindMatches(context.Background(), &models.FindMatchesRequest{
		CandidateID:           "cand-1",
		Candidate:             models.CandidateDocuments{ResumeText: testResume},
		Tier:                  models.TierElite,
		Jobs:                  jobs,
		TopK:                  3,
		IncludeBelowThreshold: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Scored)
	assert.Len(t, resp.Matches, 3, "capped to topK")

	// An impossible floor filters everything out.
	resp, err = svc.FindMatches(context.Background(), &models.FindMatchesRequest{
		CandidateID:           "cand-1",
		Candidate:             models.CandidateDocuments{ResumeText: testResume},
		Tier:                  models.TierElite,
		Jobs:                  jobs[:1],
		MinProbability:        0.9999,
		IncludeBelowThreshold: true,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Matches)
}

func TestFindMatches_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	base := models.FindMatchesRequest{
		CandidateID: "cand-1",
		Candidate:   models.CandidateDocuments{ResumeText: testResume},
		Tier:        models.TierBasic,
		Jobs:        []models.JobPosting{{JobID: "j", Description: "Go developer"}},
	}

	tests := []struct {
		name   string
		mutate func(*models.FindMatchesRequest)
		field  string
	}{
		{"missing candidate id", func(r *models.FindMatchesRequest) { r.CandidateID = "" }, "candidate_id"},
		{"unknown tier", func(r *models.FindMatchesRequest) { r.Tier = "gold" }, "tier"},
		{"no jobs", func(r *models.FindMatchesRequest) { r.Jobs = nil }, "jobs"},
		{"bad floor", func(r *models.FindMatchesRequest) { r.MinProbability = 1.5 }, "min_probability"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := svc.FindMatches(context.Background(), &req)
			var valErr *models.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tc.field, valErr.Field)
		})
	}
}

func TestExplain(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.CalculateProbability(context.Background(), calcRequest())
	require.NoError(t, err)

	exp, err := svc.Explain(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, exp.MatchID)
	assert.NotEmpty(t, exp.Summary)
	// The title stored at scoring time names the position in the summary.
	assert.Equal(t, "Senior Backend Engineer", result.JobTitle)
	assert.Contains(t, exp.Summary, "Senior Backend Engineer")
	assert.Len(t, exp.ComponentBreakdown, len(models.ComponentOrder))

	_, err = svc.Explain(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrMatchNotFound)
}

func TestRecordFeedback(t *testing.T) {
	svc, st := newTestService(t)

	result, err := svc.CalculateProbability(context.Background(), calcRequest())
	require.NoError(t, err)

	responded := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	fb, err := svc.RecordFeedback(context.Background(), &models.FeedbackRequest{
		MatchID:     result.ID,
		Outcome:     models.OutcomeInterview,
		AppliedAt:   responded.AddDate(0, 0, -10),
		RespondedAt: &responded,
	})
	require.NoError(t, err)
	assert.Equal(t, result.ID, fb.MatchID)
	assert.Nil(t, fb.UserRating, "rating stays unset when the request omits it")

	require.Len(t, st.training, 1)
	tp := st.training[0]
	assert.Equal(t, 1, tp.Label, "interview is a positive label")
	assert.Equal(t, result.FeatureVector, tp.Features)
	assert.True(t, tp.ObservedAt.Equal(responded))

	// An offer outcome implies the offer flag even when not set explicitly.
	fb, err = svc.RecordFeedback(context.Background(), &models.FeedbackRequest{
		MatchID: result.ID,
		Outcome: models.OutcomeOffer,
	})
	require.NoError(t, err)
	assert.True(t, fb.OfferReceived)

	// Rejection trains a negative label.
	_, err = svc.RecordFeedback(context.Background(), &models.FeedbackRequest{
		MatchID: result.ID,
		Outcome: models.OutcomeRejected,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, st.training[2].Label)
}

func TestRecordFeedback_Errors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RecordFeedback(context.Background(), &models.FeedbackRequest{
		MatchID: uuid.New(),
		Outcome: models.OutcomeInterview,
	})
	assert.ErrorIs(t, err, models.ErrMatchNotFound)

	var valErr *models.ValidationError
	_, err = svc.RecordFeedback(context.Background(), &models.FeedbackRequest{Outcome: models.OutcomeInterview})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "match_id", valErr.Field)

	_, err = svc.RecordFeedback(context.Background(), &models.FeedbackRequest{
		MatchID: uuid.New(),
		Outcome: "ghosted",
	})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "outcome", valErr.Field)

	bad := 9
	_, err = svc.RecordFeedback(context.Background(), &models.FeedbackRequest{
		MatchID:    uuid.New(),
		Outcome:    models.OutcomeInterview,
		UserRating: &bad,
	})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "user_rating", valErr.Field)
}

func TestThresholds(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Len(t, svc.Thresholds(), 6)

	info, err := svc.TierThreshold(models.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, 0.55, info.Threshold)

	_, err = svc.TierThreshold("gold")
	var valErr *models.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "tier", valErr.Field)
}
