package models

import (
	"time"

	"github.com/google/uuid"
)

// CandidateDocuments carries the raw material the profile extractor works on.
type CandidateDocuments struct {
	ResumeText         string `json:"resume_text"`
	CoverLetterText    string `json:"cover_letter_text,omitempty"`
	NetworkProfileText string `json:"network_profile_text,omitempty"`
}

// RequirementOverrides are optional structured fields that take precedence
// over text inference when extracting a job requirement.
type RequirementOverrides struct {
	RequiredSkills   []string `json:"required_skills,omitempty"`
	PreferredSkills  []string `json:"preferred_skills,omitempty"`
	MinYears         *float64 `json:"min_years,omitempty"`
	MaxYears         *float64 `json:"max_years,omitempty"`
	Seniority        string   `json:"seniority,omitempty"`
	EducationMinimum string   `json:"education_minimum,omitempty"`
	Industry         string   `json:"industry,omitempty"`
}

// JobPosting is one job to score, as submitted by the caller.
type JobPosting struct {
	JobID            string                `json:"job_id"`
	Title            string                `json:"title,omitempty"`
	Description      string                `json:"description"`
	StructuredFields *RequirementOverrides `json:"structured_fields,omitempty"`
	PostedAt         time.Time             `json:"posted_at,omitempty"`
}

// CalculateProbabilityRequest scores a single (candidate, job) pair.
type CalculateProbabilityRequest struct {
	CandidateID string             `json:"candidate_id"`
	Job         JobPosting         `json:"job"`
	Candidate   CandidateDocuments `json:"candidate"`
}

// FindMatchesRequest scores a batch of jobs and returns the ranked,
// tier-filtered results.
type FindMatchesRequest struct {
	CandidateID           string             `json:"candidate_id"`
	Jobs                  []JobPosting       `json:"jobs"`
	Candidate             CandidateDocuments `json:"candidate"`
	Tier                  SubscriptionTier   `json:"tier"`
	TopK                  int                `json:"top_k,omitempty"`           // default 20
	MinProbability        float64            `json:"min_probability,omitempty"` // extra floor on top of the tier threshold
	IncludeBelowThreshold bool               `json:"include_below_threshold,omitempty"`
}

// FindMatchesResponse is the ranked result set.
type FindMatchesResponse struct {
	Matches   []MatchResult    `json:"matches"`
	Total     int              `json:"total"`
	Scored    int              `json:"scored"`
	Tier      SubscriptionTier `json:"tier"`
	MatchedAt time.Time        `json:"matched_at"`
}

// FeedbackRequest reports an application outcome for a stored match.
type FeedbackRequest struct {
	MatchID         uuid.UUID  `json:"match_id"`
	Outcome         Outcome    `json:"outcome"`
	AppliedAt       time.Time  `json:"applied_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	InterviewRounds int        `json:"interview_rounds,omitempty"`
	OfferReceived   bool       `json:"offer_received,omitempty"`
	UserRating      *int       `json:"user_rating,omitempty"`
	Comments        string     `json:"comments,omitempty"`
}

// RetrainStatus is the outcome of a retrain call. All non-activated
// statuses are expected steady-state conditions, not errors.
type RetrainStatus string

const (
	RetrainActivated        RetrainStatus = "activated"
	RetrainInsufficientData RetrainStatus = "insufficient_data"
	RetrainModelRegressed   RetrainStatus = "model_regressed"
)

// RetrainResponse reports a retrain run.
type RetrainResponse struct {
	Status  RetrainStatus `json:"status"`
	Metrics *ModelMetrics `json:"metrics,omitempty"`
}

// ErrorResponse is the uniform error body returned by the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
