// Package explainer turns scored matches into structured, human-readable
// explanations with recommendations. All output is deterministic; a
// configured Gemini client may rewrite the summary sentence only.
package explainer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"matching_engine/internal/gemini"
	"matching_engine/internal/models"
	"matching_engine/internal/scorer"
)

var componentLabels = map[models.ComponentName]string{
	models.ComponentSkillDepth:          "Skill depth",
	models.ComponentExperienceRelevance: "Experience relevance",
	models.ComponentSeniorityMatch:      "Seniority match",
	models.ComponentIndustryFit:         "Industry fit",
	models.ComponentEducationMatch:      "Education match",
	models.ComponentKeywordDensity:      "Keyword density",
	models.ComponentRecency:             "Recency",
}

// Explainer builds match explanations.
type Explainer struct {
	weights scorer.Weights
	gem     *gemini.Client // optional
}

// New creates an Explainer. The Gemini client may be nil.
func New(weights scorer.Weights, gem *gemini.Client) *Explainer {
	if weights == nil {
		weights = scorer.DefaultWeights()
	}
	return &Explainer{weights: weights, gem: gem}
}

// Explain builds the explanation for a stored match result. jobTitle is
// cosmetic and may be empty.
func (e *Explainer) Explain(ctx context.Context, result *models.MatchResult, jobTitle string) *models.MatchExplanation {
	exp := &models.MatchExplanation{
		MatchID:          result.ID,
		Summary:          e.summary(result, jobTitle),
		Confidence:       result.Confidence,
		DataCompleteness: result.DataCompleteness,
	}

	for _, name := range models.ComponentOrder {
		exp.ComponentBreakdown = append(exp.ComponentBreakdown, models.ComponentDetail{
			Component: name,
			Label:     componentLabels[name],
			Score:     result.ComponentScores[name],
			Weight:    e.weights[name],
		})
	}

	for _, gap := range result.CriticalGaps {
		d := classifyGap(gap, "critical")
		exp.GapDetails = append(exp.GapDetails, d)
		if d.Recommendation != "" {
			exp.Recommendations = append(exp.Recommendations, d.Recommendation)
		}
	}
	for _, gap := range result.MinorGaps {
		d := classifyGap(gap, "minor")
		exp.GapDetails = append(exp.GapDetails, d)
		if d.Recommendation != "" {
			exp.Recommendations = append(exp.Recommendations, d.Recommendation)
		}
	}

	for _, s := range result.Strengths {
		exp.StrengthDetails = append(exp.StrengthDetails, models.StrengthDetail{
			Description: s,
			Component:   strengthComponent(s),
		})
	}

	exp.ApplicationTips = e.applicationTips(result)

	// Optional narrative rewrite; any failure keeps the template summary.
	if e.gem != nil {
		if narrative, err := e.gem.SummarizeMatch(ctx, result, jobTitle); err == nil {
			exp.Summary = narrative
		} else {
			slog.Debug("gemini summary unavailable, using template", "error", err)
		}
	}

	return exp
}

func (e *Explainer) summary(result *models.MatchResult, jobTitle string) string {
	target := "this position"
	if jobTitle != "" {
		target = jobTitle
	}
	verdict := "a weak match"
	switch {
	case result.Probability >= 0.75:
		verdict = "a strong match"
	case result.Probability >= 0.55:
		verdict = "a good match"
	case result.Probability >= 0.40:
		verdict = "a partial match"
	}
	s := fmt.Sprintf("Your profile is %s for %s, with an estimated %.0f%% chance of receiving an interview.",
		verdict, target, result.Probability*100)
	if len(result.CriticalGaps) > 0 {
		s += fmt.Sprintf(" %d critical gap(s) stand out; addressing them would improve your odds most.", len(result.CriticalGaps))
	} else if len(result.Strengths) > 0 {
		s += " No critical gaps were found."
	}
	return s
}

// classifyGap maps a stored gap string back to its kind. Skill gaps are
// stored as the bare skill name; the other rules produce full sentences.
func classifyGap(gap, kind string) models.GapDetail {
	switch {
	case strings.Contains(gap, "years of experience"):
		return models.GapDetail{
			Kind:           kind,
			Description:    gap,
			Recommendation: "Quantify adjacent or freelance experience in your resume; even partial overlap with the required years helps.",
		}
	case strings.HasPrefix(gap, "education below"):
		return models.GapDetail{
			Kind:           kind,
			Description:    gap,
			Recommendation: "List relevant certifications and coursework prominently to offset the formal education requirement.",
		}
	case strings.HasPrefix(gap, "seniority"):
		return models.GapDetail{
			Kind:           kind,
			Description:    gap,
			Recommendation: "Highlight ownership and leadership moments in recent roles to close the seniority gap.",
		}
	case strings.HasPrefix(gap, "no direct"):
		return models.GapDetail{
			Kind:           kind,
			Description:    gap,
			Recommendation: "Call out transferable domain knowledge from adjacent industries in your cover letter.",
		}
	default:
		// Bare skill name.
		rec := fmt.Sprintf("Consider highlighting related experience close to %s, or upskill in %s before applying.", gap, gap)
		if kind == "minor" {
			rec = fmt.Sprintf("Mentioning any exposure to %s would strengthen the application.", gap)
		}
		return models.GapDetail{
			Kind:           kind,
			Description:    fmt.Sprintf("missing %s skill: %s", kind, gap),
			Recommendation: rec,
		}
	}
}

func strengthComponent(s string) models.ComponentName {
	if strings.Contains(s, "years of experience") {
		return models.ComponentExperienceRelevance
	}
	return models.ComponentSkillDepth
}

func (e *Explainer) applicationTips(result *models.MatchResult) []string {
	var tips []string
	if len(result.Strengths) > 0 {
		tips = append(tips, fmt.Sprintf("Lead with your strengths: %s.", strings.Join(result.Strengths, "; ")))
	}
	if result.ComponentScores[models.ComponentKeywordDensity] < 0.2 {
		tips = append(tips, "Mirror more of the posting's own wording in your resume; keyword overlap with the posting is low.")
	}
	if result.ComponentScores[models.ComponentRecency] < 0.5 {
		tips = append(tips, "Emphasize recent hands-on work; your most relevant experience reads as dated.")
	}
	if len(result.CriticalGaps) == 0 && result.Probability >= 0.55 {
		tips = append(tips, "Apply promptly; candidates matching all required criteria are typically contacted early.")
	}
	return tips
}

// ProfileConfidence derives how trustworthy the extracted profile is from
// the explicit-vs-inferred field counts. More inference means lower
// confidence.
func ProfileConfidence(stats models.ExtractionStats) float64 {
	total := stats.ExplicitFields + stats.InferredFields
	if total == 0 {
		return 0
	}
	return float64(stats.ExplicitFields) / float64(total)
}

// Completeness reports what fraction of the requirement's populated fields
// could be matched against non-empty profile fields.
func Completeness(profile *models.CandidateProfile, req *models.JobRequirement) float64 {
	populated, matched := 0, 0

	if len(req.RequiredSkills) > 0 || len(req.PreferredSkills) > 0 {
		populated++
		if len(profile.Skills) > 0 {
			matched++
		}
	}
	if req.Experience.Min > 0 || req.Experience.Max > 0 {
		populated++
		if len(profile.Experience) > 0 {
			matched++
		}
	}
	if req.SeniorityLevel != "" {
		populated++
		if profile.SeniorityLevel != "" {
			matched++
		}
	}
	if req.EducationMinimum != "" {
		populated++
		if profile.EducationLevel != "" && profile.EducationLevel != models.EducationNone {
			matched++
		}
	}
	if req.Industry != "" {
		populated++
		if len(profile.Industries) > 0 {
			matched++
		}
	}
	if populated == 0 {
		return 1.0
	}
	return float64(matched) / float64(populated)
}
