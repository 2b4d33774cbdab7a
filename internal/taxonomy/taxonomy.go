// Package taxonomy ships the categorized skill lookup table the extractors
// tokenize against. The table is versioned and injected, not hard-coded at
// call sites, so deployments can swap it without touching the engine.
package taxonomy

import "strings"

// Skill categories.
const (
	CategoryProgramming = "programming"
	CategoryWeb         = "web"
	CategoryData        = "data"
	CategoryCloud       = "cloud"
	CategoryAIML        = "ai_ml"
	CategorySoftSkills  = "soft_skills"
)

// Table is one versioned taxonomy snapshot.
type Table struct {
	Version string

	// skills maps canonical skill name -> category.
	skills map[string]string

	// aliases maps alternate spellings -> canonical name.
	aliases map[string]string

	// adjacentIndustries maps industry -> related industry -> partial credit.
	adjacentIndustries map[string]map[string]float64
}

// Lookup resolves a token to its canonical skill name and category.
func (t *Table) Lookup(token string) (name, category string, ok bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if canonical, found := t.aliases[token]; found {
		token = canonical
	}
	category, ok = t.skills[token]
	return token, category, ok
}

// Canonical resolves aliases without requiring the skill to be in the table.
func (t *Table) Canonical(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if canonical, found := t.aliases[token]; found {
		return canonical
	}
	return token
}

// Skills returns the full canonical skill set, keyed by name.
func (t *Table) Skills() map[string]string {
	return t.skills
}

// Aliases returns the alternate-spelling map, alias -> canonical name.
func (t *Table) Aliases() map[string]string {
	return t.aliases
}

// IndustryAffinity returns 1.0 for the same industry, the adjacency credit
// for related industries, and 0 otherwise.
func (t *Table) IndustryAffinity(candidate, required string) float64 {
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	required = strings.ToLower(strings.TrimSpace(required))
	if candidate == "" || required == "" {
		return 0
	}
	if candidate == required {
		return 1.0
	}
	if adj, ok := t.adjacentIndustries[required]; ok {
		if credit, ok := adj[candidate]; ok {
			return credit
		}
	}
	return 0
}

// Default returns the shipped taxonomy table.
func Default() *Table {
	return &Table{
		Version: "2025.08",
		skills: map[string]string{
			// programming
			"go":         CategoryProgramming,
			"python":     CategoryProgramming,
			"java":       CategoryProgramming,
			"c++":        CategoryProgramming,
			"c#":         CategoryProgramming,
			"rust":       CategoryProgramming,
			"ruby":       CategoryProgramming,
			"php":        CategoryProgramming,
			"kotlin":     CategoryProgramming,
			"swift":      CategoryProgramming,
			"scala":      CategoryProgramming,
			"javascript": CategoryProgramming,
			"typescript": CategoryProgramming,

			// web
			"react":   CategoryWeb,
			"angular": CategoryWeb,
			"vue":     CategoryWeb,
			"node.js": CategoryWeb,
			"django":  CategoryWeb,
			"rails":   CategoryWeb,
			"spring":  CategoryWeb,
			"graphql": CategoryWeb,
			"rest":    CategoryWeb,
			"html":    CategoryWeb,
			"css":     CategoryWeb,

			// data
			"sql":           CategoryData,
			"postgresql":    CategoryData,
			"mysql":         CategoryData,
			"mongodb":       CategoryData,
			"redis":         CategoryData,
			"elasticsearch": CategoryData,
			"kafka":         CategoryData,
			"spark":         CategoryData,
			"airflow":       CategoryData,
			"etl":           CategoryData,
			"tableau":       CategoryData,

			// cloud
			"aws":        CategoryCloud,
			"azure":      CategoryCloud,
			"gcp":        CategoryCloud,
			"kubernetes": CategoryCloud,
			"docker":     CategoryCloud,
			"terraform":  CategoryCloud,
			"ansible":    CategoryCloud,
			"linux":      CategoryCloud,
			"ci/cd":      CategoryCloud,

			// ai/ml
			"machine learning": CategoryAIML,
			"deep learning":    CategoryAIML,
			"tensorflow":       CategoryAIML,
			"pytorch":          CategoryAIML,
			"nlp":              CategoryAIML,
			"computer vision":  CategoryAIML,
			"scikit-learn":     CategoryAIML,
			"llm":              CategoryAIML,

			// soft skills
			"leadership":             CategorySoftSkills,
			"communication":          CategorySoftSkills,
			"mentoring":              CategorySoftSkills,
			"project management":     CategorySoftSkills,
			"agile":                  CategorySoftSkills,
			"scrum":                  CategorySoftSkills,
			"stakeholder management": CategorySoftSkills,
		},
		aliases: map[string]string{
			"golang":              "go",
			"k8s":                 "kubernetes",
			"js":                  "javascript",
			"ts":                  "typescript",
			"postgres":            "postgresql",
			"nodejs":              "node.js",
			"node":                "node.js",
			"reactjs":             "react",
			"vuejs":               "vue",
			"ml":                  "machine learning",
			"amazon web services": "aws",
			"google cloud":        "gcp",
			"sklearn":             "scikit-learn",
			"cicd":                "ci/cd",
		},
		adjacentIndustries: map[string]map[string]float64{
			"fintech": {
				"banking":   0.7,
				"insurance": 0.5,
				"ecommerce": 0.4,
			},
			"banking": {
				"fintech":   0.7,
				"insurance": 0.5,
			},
			"healthcare": {
				"biotech":        0.7,
				"pharmaceutical": 0.6,
				"insurance":      0.4,
			},
			"ecommerce": {
				"retail":    0.7,
				"logistics": 0.5,
				"fintech":   0.4,
			},
			"technology": {
				"fintech":    0.6,
				"ecommerce":  0.6,
				"healthcare": 0.4,
				"gaming":     0.5,
			},
			"gaming": {
				"technology": 0.6,
				"media":      0.5,
			},
			"media": {
				"advertising": 0.6,
				"gaming":      0.5,
			},
			"logistics": {
				"ecommerce": 0.6,
				"retail":    0.5,
			},
		},
	}
}
