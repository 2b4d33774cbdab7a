// Package engine wires extraction, scoring, tier policy, explanation and
// the feedback loop behind the API surface.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"matching_engine/internal/explainer"
	"matching_engine/internal/extractor"
	"matching_engine/internal/learner"
	"matching_engine/internal/models"
	"matching_engine/internal/scorer"
	"matching_engine/internal/tier"
)

// Store is the persistence the engine depends on.
type Store interface {
	SaveMatchResult(ctx context.Context, r *models.MatchResult) error
	GetMatchResult(ctx context.Context, id uuid.UUID) (*models.MatchResult, error)
	AppendFeedback(ctx context.Context, fb *models.MatchFeedback, tp *models.TrainingDataPoint) error
	ListModelMetrics(ctx context.Context, limit int) ([]models.ModelMetrics, error)
}

// Service handles probability matching.
type Service struct {
	store     Store
	extractor *extractor.Extractor
	scorer    *scorer.Scorer
	explainer *explainer.Explainer
	learner   *learner.Learner
	workers   int
	now       func() time.Time
}

// NewService creates a new matching engine service. workers bounds the
// concurrent scoring fanout in FindMatches.
func NewService(st Store, ext *extractor.Extractor, sc *scorer.Scorer, exp *explainer.Explainer, lr *learner.Learner, workers int) *Service {
	if workers <= 0 {
		workers = 8
	}
	return &Service{
		store:     st,
		extractor: ext,
		scorer:    sc,
		explainer: exp,
		learner:   lr,
		workers:   workers,
		now:       time.Now,
	}
}

// CalculateProbability scores one (candidate, job) pair and persists the
// result so later feedback can reference the exact scoring context.
func (s *Service) CalculateProbability(ctx context.Context, req *models.CalculateProbabilityRequest) (*models.MatchResult, error) {
	if req.CandidateID == "" {
		return nil, models.NewValidationError("candidate_id", "is required")
	}

	profile, err := s.extractor.ExtractProfile(req.Candidate)
	if err != nil {
		return nil, err
	}
	requirement, err := s.extractor.ExtractRequirement(req.Job)
	if err != nil {
		return nil, err
	}

	result := s.scorer.Score(profile, requirement)
	result.CandidateID = req.CandidateID
	result.Confidence = explainer.ProfileConfidence(profile.Stats)
	result.DataCompleteness = explainer.Completeness(profile, requirement)

	if err := s.store.SaveMatchResult(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// FindMatches scores all submitted jobs for one candidate concurrently,
// then filters by tier, sorts and caps to topK. Per-job extraction
// failures skip the job rather than failing the batch.
func (s *Service) FindMatches(ctx context.Context, req *models.FindMatchesRequest) (*models.FindMatchesResponse, error) {
	start := s.now()
	if req.CandidateID == "" {
		return nil, models.NewValidationError("candidate_id", "is required")
	}
	if !req.Tier.Valid() {
		return nil, models.NewValidationError("tier", "unknown subscription tier")
	}
	if len(req.Jobs) == 0 {
		return nil, models.NewValidationError("jobs", "at least one job is required")
	}
	if req.MinProbability < 0 || req.MinProbability > 1 {
		return nil, models.NewValidationError("min_probability", "must be within [0,1]")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 20
	}

	profile, err := s.extractor.ExtractProfile(req.Candidate)
	if err != nil {
		return nil, err
	}

	// Scoring is stateless; each job scores independently on the pool.
	scored := make([]*models.MatchResult, len(req.Jobs))
	var mu sync.Mutex
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, job := range req.Jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			requirement, err := s.extractor.ExtractRequirement(job)
			if err != nil {
				slog.Warn("skipping job, requirement extraction failed", "job_id", job.JobID, "error", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			result := s.scorer.Score(profile, requirement)
			result.CandidateID = req.CandidateID
			result.Confidence = explainer.ProfileConfidence(profile.Stats)
			result.DataCompleteness = explainer.Completeness(profile, requirement)
			scored[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]models.MatchResult, 0, len(scored))
	for _, r := range scored {
		if r == nil {
			continue
		}
		if err := s.store.SaveMatchResult(ctx, r); err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	scoredCount := len(results)

	results = tier.FilterByTier(results, req.Tier, req.IncludeBelowThreshold)
	if req.MinProbability > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Probability >= req.MinProbability {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	tier.Sort(results)
	if len(results) > topK {
		results = results[:topK]
	}

	slog.Info("matching completed",
		"jobs", len(req.Jobs),
		"scored", scoredCount,
		"skipped", skipped,
		"returned", len(results),
		"tier", req.Tier,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	return &models.FindMatchesResponse{
		Matches:   results,
		Total:     len(results),
		Scored:    scoredCount,
		Tier:      req.Tier,
		MatchedAt: s.now(),
	}, nil
}

// Explain builds the explanation for a stored match.
func (s *Service) Explain(ctx context.Context, matchID uuid.UUID) (*models.MatchExplanation, error) {
	result, err := s.store.GetMatchResult(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.explainer.Explain(ctx, result, result.JobTitle), nil
}

// RecordFeedback appends an outcome event for a stored match and derives
// its training point. Multiple feedback events per match are allowed; each
// is a separate, ordered record.
func (s *Service) RecordFeedback(ctx context.Context, req *models.FeedbackRequest) (*models.MatchFeedback, error) {
	if req.MatchID == uuid.Nil {
		return nil, models.NewValidationError("match_id", "is required")
	}
	if !req.Outcome.Valid() {
		return nil, models.NewValidationError("outcome", "unknown outcome")
	}
	if req.UserRating != nil && (*req.UserRating < 1 || *req.UserRating > 5) {
		return nil, models.NewValidationError("user_rating", "must be within [1,5]")
	}

	result, err := s.store.GetMatchResult(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appliedAt := req.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = now
	}
	observedAt := appliedAt
	if req.RespondedAt != nil {
		observedAt = *req.RespondedAt
	}

	fb := &models.MatchFeedback{
		ID:              uuid.New(),
		MatchID:         result.ID,
		Outcome:         req.Outcome,
		AppliedAt:       appliedAt,
		RespondedAt:     req.RespondedAt,
		InterviewRounds: req.InterviewRounds,
		OfferReceived:   req.OfferReceived || req.Outcome == models.OutcomeOffer || req.Outcome == models.OutcomeAccepted,
		UserRating:      req.UserRating,
		Comments:        req.Comments,
		CreatedAt:       now,
	}

	label := 0
	if req.Outcome.Positive() {
		label = 1
	}
	tp := &models.TrainingDataPoint{
		ID:         uuid.New(),
		MatchID:    result.ID,
		Features:   result.FeatureVector,
		Label:      label,
		ObservedAt: observedAt,
	}

	if err := s.store.AppendFeedback(ctx, fb, tp); err != nil {
		return nil, fmt.Errorf("failed to record feedback: %w", err)
	}
	return fb, nil
}

// Retrain runs one exclusive training pass on the learner.
func (s *Service) Retrain(ctx context.Context) (*models.RetrainResponse, error) {
	return s.learner.Retrain(ctx)
}

// Thresholds returns the static tier policy table.
func (s *Service) Thresholds() []models.ThresholdInfo {
	return tier.Thresholds()
}

// TierThreshold returns the policy row for one tier.
func (s *Service) TierThreshold(t models.SubscriptionTier) (models.ThresholdInfo, error) {
	if !t.Valid() {
		return models.ThresholdInfo{}, models.NewValidationError("tier", "unknown subscription tier")
	}
	return tier.ThresholdInfo(t), nil
}

// ModelMetricsHistory returns recent training runs, newest first.
func (s *Service) ModelMetricsHistory(ctx context.Context, limit int) ([]models.ModelMetrics, error) {
	return s.store.ListModelMetrics(ctx, limit)
}
