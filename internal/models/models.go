package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SeniorityLevel is the career level of a candidate or a role.
type SeniorityLevel string

const (
	SeniorityEntry     SeniorityLevel = "entry"
	SeniorityMid       SeniorityLevel = "mid"
	SenioritySenior    SeniorityLevel = "senior"
	SeniorityLead      SeniorityLevel = "lead"
	SeniorityExecutive SeniorityLevel = "executive"
)

var seniorityOrdinals = map[SeniorityLevel]int{
	SeniorityEntry:     0,
	SeniorityMid:       1,
	SenioritySenior:    2,
	SeniorityLead:      3,
	SeniorityExecutive: 4,
}

// Ordinal returns the rank of the seniority level, -1 if unknown.
func (s SeniorityLevel) Ordinal() int {
	if o, ok := seniorityOrdinals[s]; ok {
		return o
	}
	return -1
}

// EducationLevel is the highest education attained or required.
type EducationLevel string

const (
	EducationNone       EducationLevel = "none"
	EducationHighSchool EducationLevel = "high_school"
	EducationAssociate  EducationLevel = "associate"
	EducationBachelor   EducationLevel = "bachelor"
	EducationMaster     EducationLevel = "master"
	EducationDoctorate  EducationLevel = "doctorate"
)

var educationOrdinals = map[EducationLevel]int{
	EducationNone:       0,
	EducationHighSchool: 1,
	EducationAssociate:  2,
	EducationBachelor:   3,
	EducationMaster:     4,
	EducationDoctorate:  5,
}

// Ordinal returns the rank of the education level, -1 if unknown.
func (e EducationLevel) Ordinal() int {
	if o, ok := educationOrdinals[e]; ok {
		return o
	}
	return -1
}

// SubscriptionTier selects the match threshold applied to results.
type SubscriptionTier string

const (
	TierFreemium     SubscriptionTier = "freemium"
	TierStarter      SubscriptionTier = "starter"
	TierBasic        SubscriptionTier = "basic"
	TierProfessional SubscriptionTier = "professional"
	TierPremium      SubscriptionTier = "premium"
	TierElite        SubscriptionTier = "elite"
)

// Valid reports whether the tier is one of the known tiers.
func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFreemium, TierStarter, TierBasic, TierProfessional, TierPremium, TierElite:
		return true
	}
	return false
}

// Outcome is the observed result of an application.
type Outcome string

const (
	OutcomeRejected  Outcome = "rejected"
	OutcomeInterview Outcome = "interview"
	OutcomeOffer     Outcome = "offer"
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDeclined  Outcome = "declined"
)

// Valid reports whether the outcome is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeRejected, OutcomeInterview, OutcomeOffer, OutcomeAccepted, OutcomeDeclined:
		return true
	}
	return false
}

// Positive reports whether the outcome counts as a positive training label.
func (o Outcome) Positive() bool {
	switch o {
	case OutcomeInterview, OutcomeOffer, OutcomeAccepted:
		return true
	}
	return false
}

// ComponentName identifies one of the weighted score components.
type ComponentName string

const (
	ComponentSkillDepth          ComponentName = "skill_depth"
	ComponentExperienceRelevance ComponentName = "experience_relevance"
	ComponentSeniorityMatch      ComponentName = "seniority_match"
	ComponentIndustryFit         ComponentName = "industry_fit"
	ComponentEducationMatch      ComponentName = "education_match"
	ComponentKeywordDensity      ComponentName = "keyword_density"
	ComponentRecency             ComponentName = "recency"
)

// ComponentOrder is the canonical ordering of components, also the layout
// of the persisted feature vector (raw score is appended as the last slot).
var ComponentOrder = []ComponentName{
	ComponentSkillDepth,
	ComponentExperienceRelevance,
	ComponentSeniorityMatch,
	ComponentIndustryFit,
	ComponentEducationMatch,
	ComponentKeywordDensity,
	ComponentRecency,
}

// Skill is one extracted candidate skill with an estimated proficiency.
type Skill struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Proficiency float64 `json:"proficiency"` // 0..1
}

// ExperienceEntry is one role parsed from candidate documents.
type ExperienceEntry struct {
	Title     string         `json:"title"`
	Company   string         `json:"company,omitempty"`
	StartDate time.Time      `json:"start_date"`
	EndDate   *time.Time     `json:"end_date,omitempty"` // nil = current role
	Industry  string         `json:"industry,omitempty"`
	Seniority SeniorityLevel `json:"seniority,omitempty"`
}

// ExtractionStats tracks how much of a profile was inferred rather than
// explicitly stated. Used by the explainer to derive confidence.
type ExtractionStats struct {
	ExplicitFields int `json:"explicit_fields"`
	InferredFields int `json:"inferred_fields"`
}

// CandidateProfile is the structured feature profile built for one scoring
// call. It is never persisted; only the derived feature vector is.
type CandidateProfile struct {
	Skills               []Skill           `json:"skills"`
	Experience           []ExperienceEntry `json:"experience"`
	TotalYearsExperience float64           `json:"total_years_experience"`
	SeniorityLevel       SeniorityLevel    `json:"seniority_level"`
	EducationLevel       EducationLevel    `json:"education_level"`
	Certifications       []string          `json:"certifications,omitempty"`
	Industries           []string          `json:"industries,omitempty"`
	DocumentTokens       map[string]bool   `json:"-"` // for keyword density
	Stats                ExtractionStats   `json:"-"`
}

// SkillByName returns the candidate's skill with the given (lowercased)
// name, or nil when absent.
func (p *CandidateProfile) SkillByName(name string) *Skill {
	for i := range p.Skills {
		if p.Skills[i].Name == name {
			return &p.Skills[i]
		}
	}
	return nil
}

// SkillRequirement is one required or preferred skill on a job.
type SkillRequirement struct {
	Name           string  `json:"name"`
	MinProficiency float64 `json:"min_proficiency,omitempty"` // 0 = any
}

// ExperienceRange bounds the years of experience a job asks for.
// Max of zero means no upper bound was specified.
type ExperienceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max,omitempty"`
}

// JobRequirement is the structured requirement profile of one job posting.
type JobRequirement struct {
	JobID            string             `json:"job_id"`
	Title            string             `json:"title,omitempty"`
	RequiredSkills   []SkillRequirement `json:"required_skills"`
	PreferredSkills  []SkillRequirement `json:"preferred_skills,omitempty"`
	Experience       ExperienceRange    `json:"experience"`
	SeniorityLevel   SeniorityLevel     `json:"seniority_level,omitempty"`
	EducationMinimum EducationLevel     `json:"education_minimum,omitempty"`
	Industry         string             `json:"industry,omitempty"`
	PostedAt         time.Time          `json:"posted_at,omitempty"`
	RawText          string             `json:"-"`
}

// MatchResult is the scored outcome of one (candidate, job) pair.
// Immutable once created; a re-score produces a new result.
type MatchResult struct {
	ID               uuid.UUID                 `json:"match_id" db:"id"`
	JobID            string                    `json:"job_id" db:"job_id"`
	JobTitle         string                    `json:"job_title,omitempty" db:"job_title"`
	CandidateID      string                    `json:"candidate_id" db:"candidate_id"`
	Probability      float64                   `json:"probability" db:"probability"`
	ComponentScores  map[ComponentName]float64 `json:"component_scores"`
	CriticalGaps     []string                  `json:"critical_gaps"`
	MinorGaps        []string                  `json:"minor_gaps"`
	Strengths        []string                  `json:"strengths"`
	FeatureVector    []float64                 `json:"-"`
	Tier             SubscriptionTier          `json:"tier,omitempty" db:"tier"`
	MeetsThreshold   bool                      `json:"meets_threshold" db:"meets_threshold"`
	NeedsHumanReview bool                      `json:"needs_human_review" db:"needs_human_review"`
	Confidence       float64                   `json:"confidence" db:"confidence"`
	DataCompleteness float64                   `json:"data_completeness" db:"data_completeness"`
	JobPostedAt      time.Time                 `json:"job_posted_at,omitempty" db:"job_posted_at"`
	CreatedAt        time.Time                 `json:"created_at" db:"created_at"`
}

// MatchFeedback is one observed application outcome for a match.
// Append-only; a match may accumulate several feedback events.
type MatchFeedback struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	MatchID         uuid.UUID  `json:"match_id" db:"match_id"`
	Outcome         Outcome    `json:"outcome" db:"outcome"`
	AppliedAt       time.Time  `json:"applied_at" db:"applied_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty" db:"responded_at"`
	InterviewRounds int        `json:"interview_rounds,omitempty" db:"interview_rounds"`
	OfferReceived   bool       `json:"offer_received" db:"offer_received"`
	UserRating      *int       `json:"user_rating,omitempty" db:"user_rating"`
	Comments        string     `json:"comments,omitempty" db:"comments"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// TrainingDataPoint is a (feature vector, label) pair derived from a match
// and its feedback. Pure value; recency weighting is applied by the learner
// at sample-selection time.
type TrainingDataPoint struct {
	ID         uuid.UUID `json:"id" db:"id"`
	MatchID    uuid.UUID `json:"match_id" db:"match_id"`
	Features   []float64 `json:"features"`
	Label      int       `json:"label" db:"label"`
	ObservedAt time.Time `json:"observed_at" db:"observed_at"`
}

// ModelMetrics is one append-only record of a training run.
type ModelMetrics struct {
	ID                 uuid.UUID          `json:"id" db:"id"`
	Accuracy           float64            `json:"accuracy" db:"accuracy"`
	Precision          float64            `json:"precision" db:"precision"`
	Recall             float64            `json:"recall" db:"recall"`
	AUCROC             float64            `json:"auc_roc" db:"auc_roc"`
	CalibrationError   float64            `json:"calibration_error" db:"calibration_error"`
	TrainedAt          time.Time          `json:"trained_at" db:"trained_at"`
	SampleCount        int                `json:"sample_count" db:"sample_count"`
	FeatureImportances map[string]float64 `json:"feature_importances"`
	Activated          bool               `json:"activated" db:"activated"`
	Params             json.RawMessage    `json:"-" db:"params"` // serialized model snapshot
}

// ComponentDetail is one row of the explanation breakdown.
type ComponentDetail struct {
	Component ComponentName `json:"component"`
	Label     string        `json:"label"`
	Score     float64       `json:"score"`
	Weight    float64       `json:"weight"`
}

// GapDetail describes one gap with a remediation recommendation.
type GapDetail struct {
	Kind           string `json:"kind"` // "critical" or "minor"
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
}

// StrengthDetail describes one identified strength.
type StrengthDetail struct {
	Description string        `json:"description"`
	Component   ComponentName `json:"component,omitempty"`
}

// MatchExplanation is the human-readable explanation of a match result.
type MatchExplanation struct {
	MatchID            uuid.UUID         `json:"match_id"`
	Summary            string            `json:"summary"`
	ComponentBreakdown []ComponentDetail `json:"component_breakdown"`
	GapDetails         []GapDetail       `json:"gap_details"`
	StrengthDetails    []StrengthDetail  `json:"strength_details"`
	Recommendations    []string          `json:"recommendations"`
	ApplicationTips    []string          `json:"application_tips"`
	Confidence         float64           `json:"confidence"`
	DataCompleteness   float64           `json:"data_completeness"`
}

// ThresholdInfo is one row of the tier threshold table.
type ThresholdInfo struct {
	Tier           SubscriptionTier `json:"tier"`
	Threshold      float64          `json:"threshold"`
	ReviewBandLow  *float64         `json:"review_band_low,omitempty"`
	ReviewBandHigh *float64         `json:"review_band_high,omitempty"`
}
