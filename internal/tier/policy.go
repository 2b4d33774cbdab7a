// Package tier applies subscription-tier thresholds to scored matches.
package tier

import (
	"sort"

	"matching_engine/internal/models"
)

// threshold is one row of the tier policy table.
type threshold struct {
	pass      float64
	reviewLow float64 // 0 = no human review band
}

// policyTable maps each tier to its pass threshold and optional review band.
// Pass is inclusive: probability exactly at the threshold meets it.
var policyTable = map[models.SubscriptionTier]threshold{
	models.TierFreemium:     {pass: 0.80},
	models.TierStarter:      {pass: 0.70},
	models.TierBasic:        {pass: 0.65},
	models.TierProfessional: {pass: 0.60},
	models.TierPremium:      {pass: 0.55, reviewLow: 0.50},
	models.TierElite:        {pass: 0.55, reviewLow: 0.50},
}

// Threshold returns the pass threshold for a tier. Unknown tiers fall back
// to the freemium threshold, the strictest one.
func Threshold(t models.SubscriptionTier) float64 {
	if row, ok := policyTable[t]; ok {
		return row.pass
	}
	return policyTable[models.TierFreemium].pass
}

// Apply sets meetsThreshold and needsHumanReview on every result in place.
func Apply(results []models.MatchResult, t models.SubscriptionTier) {
	row, ok := policyTable[t]
	if !ok {
		row = policyTable[models.TierFreemium]
	}
	for i := range results {
		r := &results[i]
		r.Tier = t
		r.MeetsThreshold = r.Probability >= row.pass
		r.NeedsHumanReview = !r.MeetsThreshold &&
			row.reviewLow > 0 &&
			r.Probability >= row.reviewLow
	}
}

// FilterByTier applies the tier policy and drops results below the
// threshold. Results in the human-review band are kept, flagged. When
// includeBelowThreshold is set nothing is dropped, only flagged, so the
// caller can display the full list.
func FilterByTier(results []models.MatchResult, t models.SubscriptionTier, includeBelowThreshold bool) []models.MatchResult {
	Apply(results, t)
	if includeBelowThreshold {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.MeetsThreshold || r.NeedsHumanReview {
			kept = append(kept, r)
		}
	}
	return kept
}

// Sort orders results for presentation: probability descending, ties broken
// by skill-depth component descending, then most recently posted job first.
func Sort(results []models.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Probability != b.Probability {
			return a.Probability > b.Probability
		}
		as := a.ComponentScores[models.ComponentSkillDepth]
		bs := b.ComponentScores[models.ComponentSkillDepth]
		if as != bs {
			return as > bs
		}
		return a.JobPostedAt.After(b.JobPostedAt)
	})
}

// Thresholds returns the static policy table for the API.
func Thresholds() []models.ThresholdInfo {
	tiers := []models.SubscriptionTier{
		models.TierFreemium,
		models.TierStarter,
		models.TierBasic,
		models.TierProfessional,
		models.TierPremium,
		models.TierElite,
	}
	out := make([]models.ThresholdInfo, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, ThresholdInfo(t))
	}
	return out
}

// ThresholdInfo returns the policy row for one tier.
func ThresholdInfo(t models.SubscriptionTier) models.ThresholdInfo {
	row, ok := policyTable[t]
	if !ok {
		row = policyTable[models.TierFreemium]
	}
	info := models.ThresholdInfo{Tier: t, Threshold: row.pass}
	if row.reviewLow > 0 {
		low, high := row.reviewLow, row.pass
		info.ReviewBandLow = &low
		info.ReviewBandHigh = &high
	}
	return info
}
