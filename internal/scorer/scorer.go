package scorer

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"matching_engine/internal/extractor"
	"matching_engine/internal/models"
	"matching_engine/internal/taxonomy"
)

// Weights maps each component to its share of the raw score.
type Weights map[models.ComponentName]float64

// DefaultWeights returns the tuned default component weights.
func DefaultWeights() Weights {
	return Weights{
		models.ComponentSkillDepth:          0.30,
		models.ComponentExperienceRelevance: 0.25,
		models.ComponentSeniorityMatch:      0.15,
		models.ComponentIndustryFit:         0.10,
		models.ComponentEducationMatch:      0.10,
		models.ComponentKeywordDensity:      0.05,
		models.ComponentRecency:             0.05,
	}
}

// Validate checks the weights cover every component and sum to 1.
func (w Weights) Validate() error {
	sum := 0.0
	for _, name := range models.ComponentOrder {
		weight, ok := w[name]
		if !ok {
			return fmt.Errorf("missing weight for component %s", name)
		}
		if weight < 0 {
			return fmt.Errorf("negative weight for component %s", name)
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("component weights sum to %.8f, want 1.0", sum)
	}
	return nil
}

// Calibrator maps a raw heuristic score to an interview probability. The
// learner provides a model-backed implementation once trained; until then
// the heuristic sigmoid applies.
type Calibrator interface {
	// Calibrate returns the probability and whether a learned model
	// produced it (false = heuristic defaults).
	Calibrate(raw float64, features []float64) (float64, bool)
}

// HeuristicCalibration is the fixed sigmoid used before any model is active.
type HeuristicCalibration struct {
	K  float64 // steepness
	S0 float64 // midpoint
}

// DefaultCalibration returns the shipped sigmoid parameters.
func DefaultCalibration() HeuristicCalibration {
	return HeuristicCalibration{K: 8.0, S0: 0.55}
}

// Calibrate applies probability = sigmoid(k * (s - s0)).
func (h HeuristicCalibration) Calibrate(raw float64, _ []float64) (float64, bool) {
	return Sigmoid(h.K * (raw - h.S0)), false
}

// Sigmoid is the standard logistic function.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Scorer computes calibrated interview probabilities. Stateless per call;
// safe for concurrent use.
type Scorer struct {
	weights         Weights
	tax             *taxonomy.Table
	cal             Calibrator
	recencyWindowYr float64
	now             func() time.Time
}

// New creates a Scorer. A nil calibrator falls back to the heuristic
// defaults; recencyWindowYears of zero uses the default of 3.
func New(tax *taxonomy.Table, weights Weights, cal Calibrator, recencyWindowYears float64) (*Scorer, error) {
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if cal == nil {
		cal = DefaultCalibration()
	}
	if recencyWindowYears <= 0 {
		recencyWindowYears = 3
	}
	return &Scorer{
		weights:         weights,
		tax:             tax,
		cal:             cal,
		recencyWindowYr: recencyWindowYears,
		now:             time.Now,
	}, nil
}

// Score computes a full MatchResult for one (profile, requirement) pair.
// Never fails on well-formed input: a poor fit scores near zero instead of
// erroring. Tier filtering happens downstream.
func (s *Scorer) Score(profile *models.CandidateProfile, req *models.JobRequirement) *models.MatchResult {
	components := map[models.ComponentName]float64{
		models.ComponentSkillDepth:          s.skillDepth(profile, req),
		models.ComponentExperienceRelevance: s.experienceRelevance(profile, req),
		models.ComponentSeniorityMatch:      s.seniorityMatch(profile, req),
		models.ComponentIndustryFit:         s.industryFit(profile, req),
		models.ComponentEducationMatch:      s.educationMatch(profile, req),
		models.ComponentKeywordDensity:      s.keywordDensity(profile, req),
		models.ComponentRecency:             s.recency(profile),
	}

	raw := 0.0
	features := make([]float64, 0, len(models.ComponentOrder)+1)
	for _, name := range models.ComponentOrder {
		c := clamp01(components[name])
		components[name] = c
		raw += s.weights[name] * c
		features = append(features, c)
	}
	raw = clamp01(raw)
	features = append(features, raw)

	probability, _ := s.cal.Calibrate(raw, features)

	critical, minor, strengths := s.gapsAndStrengths(profile, req)

	return &models.MatchResult{
		ID:              uuid.New(),
		JobID:           req.JobID,
		JobTitle:        req.Title,
		Probability:     clamp01(probability),
		ComponentScores: components,
		CriticalGaps:    critical,
		MinorGaps:       minor,
		Strengths:       strengths,
		FeatureVector:   features,
		JobPostedAt:     req.PostedAt,
		CreatedAt:       s.now(),
	}
}

// skillDepth averages candidate proficiency across the job's required and
// preferred skills, with missing skills contributing zero. Required skills
// weigh double; a job with no required skills scores from preferred only.
func (s *Scorer) skillDepth(profile *models.CandidateProfile, req *models.JobRequirement) float64 {
	const (
		requiredWeight  = 1.0
		preferredWeight = 0.5
	)
	num, den := 0.0, 0.0
	credit := func(sr models.SkillRequirement, weight float64) {
		den += weight
		skill := profile.SkillByName(sr.Name)
		if skill == nil {
			return
		}
		p := skill.Proficiency
		if sr.MinProficiency > 0 && p < sr.MinProficiency {
			p *= 0.5 // present but below the asked bar
		}
		num += weight * p
	}
	for _, sr := range req.RequiredSkills {
		credit(sr, requiredWeight)
	}
	for _, sr := range req.PreferredSkills {
		credit(sr, preferredWeight)
	}
	if den == 0 {
		return 0.5 // job names no skills at all, nothing to measure
	}
	return num / den
}

// experienceRelevance measures how well total years fit the requested
// range. Below min scales toward zero; far above max decays slowly.
func (s *Scorer) experienceRelevance(profile *models.CandidateProfile, req *models.JobRequirement) float64 {
	if len(profile.Experience) == 0 {
		return 0
	}
	years := profile.TotalYearsExperience
	r := req.Experience
	if r.Min == 0 && r.Max == 0 {
		return 0.7 // no stated range, experience exists
	}
	if years < r.Min {
		if r.Min <= 0 {
			return 1.0
		}
		return 0.6 * (years / r.Min)
	}
	if r.Max > 0 && years > r.Max {
		return math.Max(0.4, 1.0-0.05*(years-r.Max))
	}
	return 1.0
}

// seniorityMatch scores the ordinal distance between candidate and
// required seniority. Exact match is 1.0; each level costs 0.25.
func (s *Scorer) seniorityMatch(profile *models.CandidateProfile, req *models.JobRequirement) float64 {
	reqOrd := req.SeniorityLevel.Ordinal()
	if reqOrd < 0 {
		return 0.7 // job states no seniority
	}
	candOrd := profile.SeniorityLevel.Ordinal()
	if candOrd < 0 {
		candOrd = 0
	}
	dist := math.Abs(float64(candOrd - reqOrd))
	return math.Max(0, 1.0-0.25*dist)
}

// industryFit gives full credit for direct industry experience and partial
// credit for adjacent industries per the taxonomy.
func (s *Scorer) industryFit(profile *models.CandidateProfile, req *models.JobRequirement) float64 {
	if req.Industry == "" {
		return 0.7 // job states no industry
	}
	best := 0.0
	for _, ind := range profile.Industries {
		if a := s.tax.IndustryAffinity(ind, req.Industry); a > best {
			best = a
		}
	}
	return best
}

// educationMatch is 1.0 when the candidate meets or exceeds the minimum,
// scaled down by ordinal distance otherwise.
func (s *Scorer) educationMatch(profile *models.CandidateProfile, req *models.JobRequirement) float64 {
	reqOrd := req.EducationMinimum.Ordinal()
	if reqOrd <= 0 {
		return 1.0
	}
	candOrd := profile.EducationLevel.Ordinal()
	if candOrd < 0 {
		candOrd = 0
	}
	if candOrd >= reqOrd {
		return 1.0
	}
	return float64(candOrd) / float64(reqOrd)
}

// keywordDensity is the overlap coefficient between requirement text
// tokens and candidate document tokens.
func (s *Scorer) keywordDensity(profile *models.CandidateProfile, req *models.JobRequirement) float64 {
	if req.RawText == "" || len(profile.DocumentTokens) == 0 {
		return 0
	}
	reqTokens := extractor.Tokenize(req.RawText)
	if len(reqTokens) == 0 {
		return 0
	}
	inter := 0
	for kw := range reqTokens {
		if profile.DocumentTokens[kw] {
			inter++
		}
	}
	smaller := len(reqTokens)
	if len(profile.DocumentTokens) < smaller {
		smaller = len(profile.DocumentTokens)
	}
	return float64(inter) / float64(smaller)
}

// recency decays when the candidate's most recent role ended more than the
// recency window ago. A current role scores 1.0.
func (s *Scorer) recency(profile *models.CandidateProfile) float64 {
	if len(profile.Experience) == 0 {
		return 0
	}
	now := s.now()
	var latestEnd time.Time
	for _, e := range profile.Experience {
		if e.EndDate == nil {
			return 1.0
		}
		if e.EndDate.After(latestEnd) {
			latestEnd = *e.EndDate
		}
	}
	gapYears := now.Sub(latestEnd).Hours() / 24 / 365.25
	if gapYears <= 0 {
		return 1.0
	}
	return math.Max(0, 1.0-gapYears/s.recencyWindowYr)
}

// gapsAndStrengths applies the deterministic gap/strength rules.
func (s *Scorer) gapsAndStrengths(profile *models.CandidateProfile, req *models.JobRequirement) (critical, minor, strengths []string) {
	for _, sr := range req.RequiredSkills {
		skill := profile.SkillByName(sr.Name)
		if skill == nil {
			critical = append(critical, sr.Name)
		} else if skill.Proficiency >= 0.8 {
			strengths = append(strengths, fmt.Sprintf("strong %s proficiency", sr.Name))
		}
	}
	for _, sr := range req.PreferredSkills {
		skill := profile.SkillByName(sr.Name)
		if skill == nil {
			minor = append(minor, sr.Name)
		} else if skill.Proficiency >= 0.8 {
			strengths = append(strengths, fmt.Sprintf("strong %s proficiency", sr.Name))
		}
	}

	years := profile.TotalYearsExperience
	if req.Experience.Min > 0 && years < req.Experience.Min {
		critical = append(critical, fmt.Sprintf("%.1f years of experience below the required minimum of %.0f", years, req.Experience.Min))
	}
	if req.Experience.Max > 0 && years > req.Experience.Max {
		strengths = append(strengths, fmt.Sprintf("%.1f years of experience exceeds the requested range", years))
	}

	reqEdu := req.EducationMinimum.Ordinal()
	if reqEdu > 0 && profile.EducationLevel.Ordinal() < reqEdu {
		critical = append(critical, fmt.Sprintf("education below the required minimum (%s)", req.EducationMinimum))
	}

	reqSen := req.SeniorityLevel.Ordinal()
	if reqSen >= 0 && profile.SeniorityLevel.Ordinal() == reqSen-1 {
		minor = append(minor, fmt.Sprintf("seniority one level below the required %s", req.SeniorityLevel))
	}

	if req.Industry != "" {
		direct := false
		for _, ind := range profile.Industries {
			if ind == req.Industry {
				direct = true
				break
			}
		}
		if !direct {
			minor = append(minor, fmt.Sprintf("no direct %s industry experience", req.Industry))
		}
	}

	return critical, minor, strengths
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
