package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"matching_engine/internal/models"
)

var (
	yearsRangeRe = regexp.MustCompile(`(\d{1,2})\s*(?:-|–|to)\s*(\d{1,2})\s*\+?\s*(?:years?|yrs?)`)
	yearsMinRe   = regexp.MustCompile(`(?:at least\s*|minimum(?: of)?\s*)?(\d{1,2})\s*\+\s*(?:years?|yrs?)|at least\s*(\d{1,2})\s*(?:years?|yrs?)|minimum(?: of)?\s*(\d{1,2})\s*(?:years?|yrs?)`)
)

var preferredSectionMarkers = []string{
	"nice to have", "preferred", "bonus", "a plus", "plus:", "desirable", "good to have",
}

var requiredSectionMarkers = []string{
	"requirements", "required", "must have", "must-have", "qualifications",
	"what you bring", "essential",
}

// ExtractRequirement builds a JobRequirement from a job posting. Structured
// fields, when supplied, take precedence over text inference.
func (e *Extractor) ExtractRequirement(posting models.JobPosting) (*models.JobRequirement, error) {
	text := strings.TrimSpace(posting.Title + "\n" + posting.Description)
	hasOverrides := posting.StructuredFields != nil
	if text == "" && !hasOverrides {
		return nil, models.NewExtractionError(models.ExtractionEmptyInput, "job posting has no description or structured fields")
	}

	req := &models.JobRequirement{
		JobID:    posting.JobID,
		Title:    posting.Title,
		PostedAt: posting.PostedAt,
		RawText:  text,
	}

	required, preferred := e.skillsFromText(posting.Description)

	textLower := strings.ToLower(text)
	req.Experience = experienceRangeFromText(textLower)
	req.SeniorityLevel = seniorityFromPosting(posting.Title, textLower)
	req.EducationMinimum = educationMinimumFromText(textLower)
	req.Industry = firstIndustry(textLower)

	if hasOverrides {
		o := posting.StructuredFields
		if len(o.RequiredSkills) > 0 {
			required = e.namedSkills(o.RequiredSkills)
		}
		if len(o.PreferredSkills) > 0 {
			preferred = e.namedSkills(o.PreferredSkills)
		}
		if o.MinYears != nil {
			if *o.MinYears < 0 {
				return nil, models.NewValidationError("structured_fields.min_years", "must not be negative")
			}
			req.Experience.Min = *o.MinYears
		}
		if o.MaxYears != nil {
			if *o.MaxYears < 0 {
				return nil, models.NewValidationError("structured_fields.max_years", "must not be negative")
			}
			req.Experience.Max = *o.MaxYears
		}
		if o.Seniority != "" {
			level := models.SeniorityLevel(strings.ToLower(o.Seniority))
			if level.Ordinal() < 0 {
				return nil, models.NewValidationError("structured_fields.seniority", "unknown seniority level")
			}
			req.SeniorityLevel = level
		}
		if o.EducationMinimum != "" {
			level := models.EducationLevel(strings.ToLower(o.EducationMinimum))
			if level.Ordinal() < 0 {
				return nil, models.NewValidationError("structured_fields.education_minimum", "unknown education level")
			}
			req.EducationMinimum = level
		}
		if o.Industry != "" {
			req.Industry = strings.ToLower(o.Industry)
		}
	}

	// Invariant: min <= max when both bounds are present.
	if req.Experience.Max > 0 && req.Experience.Min > req.Experience.Max {
		return nil, models.NewValidationError("experience_range", "min exceeds max")
	}

	// Drop duplicates: a skill listed as required never repeats as preferred.
	requiredSet := make(map[string]bool, len(required))
	for _, s := range required {
		requiredSet[s.Name] = true
	}
	deduped := preferred[:0]
	for _, s := range preferred {
		if !requiredSet[s.Name] {
			deduped = append(deduped, s)
		}
	}
	req.RequiredSkills = required
	req.PreferredSkills = deduped

	if len(req.RequiredSkills) == 0 && len(req.PreferredSkills) == 0 && req.Experience.Min == 0 && req.SeniorityLevel == "" {
		return nil, models.NewExtractionError(models.ExtractionEmptyInput, "no requirements could be extracted from posting")
	}

	return req, nil
}

// skillsFromText assigns each taxonomy skill found in the posting to the
// required or preferred bucket based on the section it appears in. Skills
// outside any marked section count as required, the conservative default.
func (e *Extractor) skillsFromText(description string) (required, preferred []models.SkillRequirement) {
	requiredSet := make(map[string]bool)
	preferredSet := make(map[string]bool)

	inPreferred := false
	for _, line := range strings.Split(strings.ToLower(description), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isSectionHeader(trimmed, preferredSectionMarkers) {
			inPreferred = true
		} else if isSectionHeader(trimmed, requiredSectionMarkers) {
			inPreferred = false
		}

		for name := range e.tax.Skills() {
			if skillOnLine(e, line, name) {
				if inPreferred {
					preferredSet[name] = true
				} else {
					requiredSet[name] = true
				}
			}
		}
	}

	return toSkillRequirements(requiredSet), toSkillRequirements(preferredSet)
}

func skillOnLine(e *Extractor, line, name string) bool {
	if containsTerm(line, name) {
		return true
	}
	for alias, canonical := range e.tax.Aliases() {
		if canonical == name && containsTerm(line, alias) {
			return true
		}
	}
	return false
}

// isSectionHeader treats short lines carrying a marker as section switches,
// so a marker buried in a long sentence does not flip the whole section.
func isSectionHeader(line string, markers []string) bool {
	if len(line) > 60 {
		return false
	}
	for _, m := range markers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

func toSkillRequirements(set map[string]bool) []models.SkillRequirement {
	if len(set) == 0 {
		return nil
	}
	out := make([]models.SkillRequirement, 0, len(set))
	for name := range set {
		out = append(out, models.SkillRequirement{Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *Extractor) namedSkills(names []string) []models.SkillRequirement {
	out := make([]models.SkillRequirement, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		canonical := e.tax.Canonical(n)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, models.SkillRequirement{Name: canonical})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func experienceRangeFromText(textLower string) models.ExperienceRange {
	if m := yearsRangeRe.FindStringSubmatch(textLower); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			lo, hi = hi, lo
		}
		return models.ExperienceRange{Min: float64(lo), Max: float64(hi)}
	}
	if m := yearsMinRe.FindStringSubmatch(textLower); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				lo, _ := strconv.Atoi(g)
				return models.ExperienceRange{Min: float64(lo)}
			}
		}
	}
	return models.ExperienceRange{}
}

func seniorityFromPosting(title, textLower string) models.SeniorityLevel {
	if level := titleSeniority(title); level != "" {
		return level
	}
	switch {
	case containsAny(textLower, []string{"senior engineer", "senior developer", "senior-level", "senior position"}):
		return models.SenioritySenior
	case containsAny(textLower, []string{"entry-level", "entry level", "junior position", "early career"}):
		return models.SeniorityEntry
	case containsAny(textLower, []string{"lead role", "tech lead", "team lead"}):
		return models.SeniorityLead
	}
	return ""
}

func educationMinimumFromText(textLower string) models.EducationLevel {
	switch {
	case containsAny(textLower, []string{"phd required", "doctorate required", "phd in"}):
		return models.EducationDoctorate
	case containsAny(textLower, []string{"master's degree", "masters degree", "msc required", "master degree"}):
		return models.EducationMaster
	case containsAny(textLower, []string{"bachelor's degree", "bachelors degree", "bachelor degree", "bs in", "b.s. in", "degree in computer science", "degree required"}):
		return models.EducationBachelor
	}
	return ""
}
