package explainer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching_engine/internal/models"
	"matching_engine/internal/scorer"
)

func sampleResult() *models.MatchResult {
	return &models.MatchResult{
		ID:          uuid.New(),
		JobID:       "job-1",
		Probability: 0.62,
		ComponentScores: map[models.ComponentName]float64{
			models.ComponentSkillDepth:          0.8,
			models.ComponentExperienceRelevance: 0.7,
			models.ComponentSeniorityMatch:      0.75,
			models.ComponentIndustryFit:         0.5,
			models.ComponentEducationMatch:      1.0,
			models.ComponentKeywordDensity:      0.1,
			models.ComponentRecency:             1.0,
		},
		CriticalGaps:     []string{"kubernetes"},
		MinorGaps:        []string{"terraform", "no direct fintech industry experience"},
		Strengths:        []string{"strong go proficiency"},
		Confidence:       0.75,
		DataCompleteness: 0.8,
	}
}

func TestExplain(t *testing.T) {
	e := New(nil, nil)
	result := sampleResult()

	exp := e.Explain(context.Background(), result, "Senior Backend Engineer")

	assert.Equal(t, result.ID, exp.MatchID)
	assert.Contains(t, exp.Summary, "Senior Backend Engineer")
	assert.Contains(t, exp.Summary, "62%")
	assert.Equal(t, 0.75, exp.Confidence)
	assert.Equal(t, 0.8, exp.DataCompleteness)

	require.Len(t, exp.ComponentBreakdown, len(models.ComponentOrder))
	weights := scorer.DefaultWeights()
	for i, name := range models.ComponentOrder {
		row := exp.ComponentBreakdown[i]
		assert.Equal(t, name, row.Component)
		assert.Equal(t, weights[name], row.Weight)
		assert.Equal(t, result.ComponentScores[name], row.Score)
		assert.NotEmpty(t, row.Label)
	}

	// One detail per gap, each with a recommendation.
	require.Len(t, exp.GapDetails, 3)
	assert.Equal(t, "critical", exp.GapDetails[0].Kind)
	assert.Contains(t, exp.GapDetails[0].Description, "kubernetes")
	for _, d := range exp.GapDetails {
		assert.NotEmpty(t, d.Recommendation)
	}
	assert.Len(t, exp.Recommendations, 3)

	require.Len(t, exp.StrengthDetails, 1)
	assert.Equal(t, "strong go proficiency", exp.StrengthDetails[0].Description)

	// Low keyword density earns a wording tip.
	assert.Contains(t, exp.ApplicationTips,
		"Mirror more of the posting's own wording in your resume; keyword overlap with the posting is low.")
}

func TestSummaryVerdicts(t *testing.T) {
	e := New(nil, nil)

	tests := []struct {
		probability float64
		verdict     string
	}{
		{0.85, "a strong match"},
		{0.60, "a good match"},
		{0.45, "a partial match"},
		{0.20, "a weak match"},
	}
	for _, tc := range tests {
		r := &models.MatchResult{Probability: tc.probability}
		assert.Contains(t, e.summary(r, ""), tc.verdict)
	}
}

func TestClassifyGap(t *testing.T) {
	tests := []struct {
		name     string
		gap      string
		wantDesc string
	}{
		{"bare skill name", "kubernetes", "missing critical skill: kubernetes"},
		{"experience sentence", "3.0 years of experience below the required minimum of 5", "3.0 years of experience below the required minimum of 5"},
		{"education sentence", "education below the required minimum (bachelor)", "education below the required minimum (bachelor)"},
		{"seniority sentence", "seniority one level below the required senior", "seniority one level below the required senior"},
		{"industry sentence", "no direct fintech industry experience", "no direct fintech industry experience"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := classifyGap(tc.gap, "critical")
			assert.Equal(t, tc.wantDesc, d.Description)
			assert.NotEmpty(t, d.Recommendation)
		})
	}
}

func TestProfileConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ProfileConfidence(models.ExtractionStats{}))
	assert.Equal(t, 1.0, ProfileConfidence(models.ExtractionStats{ExplicitFields: 4}))
	assert.InDelta(t, 0.6, ProfileConfidence(models.ExtractionStats{ExplicitFields: 3, InferredFields: 2}), 1e-9)
}

func TestCompleteness(t *testing.T) {
	profile := &models.CandidateProfile{
		Skills:         []models.Skill{{Name: "go", Proficiency: 0.8}},
		Experience:     []models.ExperienceEntry{{Title: "Engineer"}},
		SeniorityLevel: models.SenioritySenior,
		EducationLevel: models.EducationNone,
	}
	req := &models.JobRequirement{
		RequiredSkills:   []models.SkillRequirement{{Name: "go"}},
		Experience:       models.ExperienceRange{Min: 3},
		SeniorityLevel:   models.SenioritySenior,
		EducationMinimum: models.EducationBachelor,
		Industry:         "fintech",
	}

	// Skills, experience and seniority match; education and industry do not.
	assert.InDelta(t, 0.6, Completeness(profile, req), 1e-9)

	assert.Equal(t, 1.0, Completeness(profile, &models.JobRequirement{}), "nothing asked, nothing missing")
}
