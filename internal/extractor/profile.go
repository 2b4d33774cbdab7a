package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"matching_engine/internal/models"
	"matching_engine/internal/taxonomy"
)

// Extractor turns raw candidate and job text into structured profiles.
// Pure text analysis: no side effects, no network calls.
type Extractor struct {
	tax *taxonomy.Table
	now func() time.Time
}

// New creates an Extractor over the given taxonomy table.
func New(tax *taxonomy.Table) *Extractor {
	return &Extractor{tax: tax, now: time.Now}
}

var yearsNearRe = regexp.MustCompile(`(\d{1,2})\s*\+?\s*(?:years?|yrs?)`)

// Proficiency signal words. Scanned per line next to a skill mention.
var (
	strongWords = []string{"expert", "advanced", "extensive", "deep"}
	midWords    = []string{"proficient", "experienced", "solid"}
	weakWords   = []string{"familiar", "basic", "beginner", "exposure", "learning"}
)

var industryKeywords = []string{
	"fintech", "banking", "insurance", "healthcare", "biotech", "pharmaceutical",
	"ecommerce", "retail", "logistics", "technology", "gaming", "media",
	"advertising", "education", "government", "consulting", "telecom", "energy",
}

// ExtractProfile builds a CandidateProfile from resume, cover letter and
// professional-network text. Fails with an EmptyInput extraction error when
// neither skills nor experience can be found; partial extraction succeeds
// with empty fields.
func (e *Extractor) ExtractProfile(docs models.CandidateDocuments) (*models.CandidateProfile, error) {
	documents := []string{docs.ResumeText, docs.CoverLetterText, docs.NetworkProfileText}
	combined := strings.TrimSpace(strings.Join(documents, "\n"))
	if combined == "" {
		return nil, models.NewExtractionError(models.ExtractionEmptyInput, "no candidate documents provided")
	}

	now := e.now()
	combinedLower := strings.ToLower(combined)
	blocks := parseExperienceBlocks(docs.ResumeText, now)

	profile := &models.CandidateProfile{
		Skills:         e.extractSkills(documents, blocks),
		DocumentTokens: Tokenize(combined),
	}

	spans := make([]interval, 0, len(blocks))
	for _, b := range blocks {
		profile.Experience = append(profile.Experience, b.entry)
		end := time.Time{}
		if b.entry.EndDate != nil {
			end = *b.entry.EndDate
		}
		spans = append(spans, interval{start: b.entry.StartDate, end: end})
	}
	profile.TotalYearsExperience = unionYears(spans, now)

	if len(profile.Skills) == 0 && len(profile.Experience) == 0 {
		return nil, models.NewExtractionError(models.ExtractionEmptyInput, "no skills or experience found in candidate documents")
	}

	stats := models.ExtractionStats{}
	if len(profile.Skills) > 0 {
		stats.ExplicitFields++
	}
	if len(profile.Experience) > 0 {
		stats.ExplicitFields++
	} else {
		stats.InferredFields++
	}

	// Seniority: title keywords win; years thresholds otherwise. When both
	// are known the lower one is kept so the candidate is never overstated.
	titleLevel := models.SeniorityLevel("")
	if len(blocks) > 0 {
		recent := blocks[0]
		for _, b := range blocks[1:] {
			if b.entry.StartDate.After(recent.entry.StartDate) {
				recent = b
			}
		}
		titleLevel = titleSeniority(recent.entry.Title)
	}
	yearsLevel := yearsSeniority(profile.TotalYearsExperience)
	switch {
	case titleLevel != "" && len(profile.Experience) > 0:
		profile.SeniorityLevel = titleLevel
		if yearsLevel.Ordinal() < titleLevel.Ordinal() {
			profile.SeniorityLevel = yearsLevel
		}
		stats.ExplicitFields++
	case len(profile.Experience) > 0:
		profile.SeniorityLevel = yearsLevel
		stats.InferredFields++
	default:
		profile.SeniorityLevel = models.SeniorityEntry
		stats.InferredFields++
	}

	if level, found := detectEducation(combinedLower); found {
		profile.EducationLevel = level
		stats.ExplicitFields++
	} else {
		profile.EducationLevel = models.EducationNone
		stats.InferredFields++
	}

	profile.Industries = detectIndustries(combinedLower, blocks)
	if len(profile.Industries) > 0 {
		stats.ExplicitFields++
	} else {
		stats.InferredFields++
	}

	profile.Certifications = extractCertifications(combined)
	if len(profile.Certifications) > 0 {
		stats.ExplicitFields++
	}

	profile.Stats = stats
	return profile, nil
}

// extractSkills scans all documents for taxonomy skills and estimates a
// proficiency per skill from contextual signals: years mentioned near the
// skill, seniority of the enclosing role, repetition across documents and
// explicit proficiency language.
func (e *Extractor) extractSkills(documents []string, blocks []experienceBlock) []models.Skill {
	lowered := make([]string, len(documents))
	for i, d := range documents {
		lowered[i] = strings.ToLower(d)
	}

	var skills []models.Skill
	for name, category := range e.tax.Skills() {
		terms := []string{name}
		for alias, canonical := range e.tax.Aliases() {
			if canonical == name {
				terms = append(terms, alias)
			}
		}

		docHits := 0
		var lines []string
		for _, doc := range lowered {
			hit := false
			for _, term := range terms {
				if containsTerm(doc, term) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
			docHits++
			for _, line := range strings.Split(doc, "\n") {
				for _, term := range terms {
					if containsTerm(line, term) {
						lines = append(lines, line)
						break
					}
				}
			}
		}
		if docHits == 0 {
			continue
		}

		prof := 0.35

		// Years mentioned on the same line as the skill.
		maxYears := 0
		for _, line := range lines {
			if m := yearsNearRe.FindStringSubmatch(line); m != nil {
				if y, err := strconv.Atoi(m[1]); err == nil && y > maxYears {
					maxYears = y
				}
			}
		}
		prof += minFloat(0.06*float64(maxYears), 0.30)

		// Seniority of roles whose description mentions the skill.
		maxRole := -1
		for _, b := range blocks {
			blockLower := strings.ToLower(b.text)
			for _, term := range terms {
				if containsTerm(blockLower, term) {
					if o := b.entry.Seniority.Ordinal(); o > maxRole {
						maxRole = o
					}
					break
				}
			}
		}
		if maxRole > 0 {
			prof += 0.05 * float64(maxRole)
		}

		// Repetition across documents.
		if docHits > 1 {
			prof += minFloat(0.05*float64(docHits-1), 0.10)
		}

		// Explicit proficiency language.
		for _, line := range lines {
			if containsAny(line, strongWords) {
				prof += 0.20
				break
			}
		}
		for _, line := range lines {
			if containsAny(line, midWords) {
				prof += 0.10
				break
			}
		}
		if maxYears == 0 {
			for _, line := range lines {
				if containsAny(line, weakWords) {
					prof -= 0.10
					break
				}
			}
		}

		skills = append(skills, models.Skill{
			Name:        name,
			Category:    category,
			Proficiency: clamp(prof, 0.15, 1.0),
		})
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

type experienceBlock struct {
	entry models.ExperienceEntry
	text  string
}

// parseExperienceBlocks finds date-range lines and attributes a title and a
// text block to each. Overlapping spans are kept as-is; concurrent roles are
// legitimate and only the interval union counts toward total years.
func parseExperienceBlocks(text string, now time.Time) []experienceBlock {
	lines := strings.Split(text, "\n")
	var blocks []experienceBlock
	var dateLineIdx []int

	for i, line := range lines {
		if dateRangeRe.MatchString(line) {
			dateLineIdx = append(dateLineIdx, i)
		}
	}

	for n, i := range dateLineIdx {
		line := lines[i]
		m := dateRangeRe.FindStringSubmatchIndex(line)
		sub := dateRangeRe.FindStringSubmatch(line)

		start, _, okStart := parseDateToken(sub[1])
		endT, open, okEnd := parseDateToken(sub[2])
		if !okStart || !okEnd || start.After(now) {
			continue
		}
		var end *time.Time
		if !open {
			if endT.Before(start) {
				continue
			}
			end = &endT
		}

		// Title: text before the dates on the same line, else the nearest
		// non-empty preceding line.
		title := strings.Trim(strings.TrimSpace(line[:m[0]]), "-–|,:")
		if title == "" {
			for j := i - 1; j >= 0 && j >= i-2; j-- {
				if t := strings.TrimSpace(lines[j]); t != "" {
					title = t
					break
				}
			}
		}

		// Block text runs until the next date line.
		endLine := len(lines)
		if n+1 < len(dateLineIdx) {
			endLine = dateLineIdx[n+1]
		}
		blockText := strings.Join(lines[i:endLine], "\n")

		entry := models.ExperienceEntry{
			Title:     title,
			StartDate: start,
			EndDate:   end,
			Seniority: titleSeniority(title),
			Industry:  firstIndustry(strings.ToLower(blockText)),
		}
		if entry.Seniority == "" {
			entry.Seniority = models.SeniorityMid
		}
		blocks = append(blocks, experienceBlock{entry: entry, text: blockText})
	}
	return blocks
}

// titleSeniority maps role-title keywords to a seniority level. Returns ""
// when the title carries no signal.
func titleSeniority(title string) models.SeniorityLevel {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, []string{"chief", "cto", "ceo", "coo", "vp ", "vice president", "director", "head of"}):
		return models.SeniorityExecutive
	case containsAny(t, []string{"lead", "principal", "staff", "architect", "manager"}):
		return models.SeniorityLead
	case containsAny(t, []string{"senior", "sr."}) || strings.HasPrefix(t, "sr "):
		return models.SenioritySenior
	case containsAny(t, []string{"junior", "jr.", "intern", "trainee", "graduate"}):
		return models.SeniorityEntry
	}
	return ""
}

func yearsSeniority(years float64) models.SeniorityLevel {
	switch {
	case years < 2:
		return models.SeniorityEntry
	case years < 5:
		return models.SeniorityMid
	case years < 9:
		return models.SenioritySenior
	case years < 13:
		return models.SeniorityLead
	default:
		return models.SeniorityExecutive
	}
}

func detectEducation(textLower string) (models.EducationLevel, bool) {
	switch {
	case containsAny(textLower, []string{"phd", "ph.d", "doctorate", "doctoral"}):
		return models.EducationDoctorate, true
	case containsAny(textLower, []string{"master", "msc", "m.sc", "mba", "m.s."}):
		return models.EducationMaster, true
	case containsAny(textLower, []string{"bachelor", "bsc", "b.sc", "b.s.", "b.a.", "undergraduate degree"}):
		return models.EducationBachelor, true
	case containsAny(textLower, []string{"associate degree", "associate's"}):
		return models.EducationAssociate, true
	case containsAny(textLower, []string{"high school", "secondary school"}):
		return models.EducationHighSchool, true
	}
	return models.EducationNone, false
}

func detectIndustries(textLower string, blocks []experienceBlock) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(ind string) {
		if ind != "" && !seen[ind] {
			seen[ind] = true
			out = append(out, ind)
		}
	}
	for _, b := range blocks {
		add(b.entry.Industry)
	}
	for _, kw := range industryKeywords {
		if containsTerm(textLower, kw) {
			add(kw)
		}
	}
	sort.Strings(out)
	return out
}

func firstIndustry(textLower string) string {
	for _, kw := range industryKeywords {
		if containsTerm(textLower, kw) {
			return kw
		}
	}
	return ""
}

var certLineRe = regexp.MustCompile(`(?im)^.*\bcertif(?:ied|icate|ication)\b.*$`)

func extractCertifications(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range certLineRe.FindAllString(text, -1) {
		c := strings.Trim(strings.TrimSpace(line), "-•* \t")
		if len(c) > 80 {
			c = c[:80]
		}
		key := strings.ToLower(c)
		if c != "" && !seen[key] {
			seen[key] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// containsTerm reports whether term occurs in text on word boundaries.
// Boundary characters are anything that is not a letter or digit, so
// terms ending in + or # match naturally.
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for i := 0; ; {
		j := strings.Index(text[i:], term)
		if j < 0 {
			return false
		}
		j += i
		beforeOK := j == 0 || !isWordByte(text[j-1])
		afterIdx := j + len(term)
		afterOK := afterIdx >= len(text) || !isWordByte(text[afterIdx])
		if beforeOK && afterOK {
			return true
		}
		i = j + len(term)
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
