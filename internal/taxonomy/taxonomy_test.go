package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tax := Default()

	tests := []struct {
		token    string
		wantName string
		wantCat  string
		wantOK   bool
	}{
		{"go", "go", CategoryProgramming, true},
		{"Golang", "go", CategoryProgramming, true},
		{"  K8S  ", "kubernetes", CategoryCloud, true},
		{"postgres", "postgresql", CategoryData, true},
		{"ml", "machine learning", CategoryAIML, true},
		{"cobol", "cobol", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			name, cat, ok := tax.Lookup(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantCat, cat)
		})
	}
}

func TestCanonical(t *testing.T) {
	tax := Default()

	assert.Equal(t, "go", tax.Canonical("GOLANG"))
	assert.Equal(t, "node.js", tax.Canonical("nodejs"))
	// Unknown tokens pass through lowercased so downstream comparisons stay stable.
	assert.Equal(t, "cobol", tax.Canonical(" Cobol "))
}

func TestIndustryAffinity(t *testing.T) {
	tax := Default()

	tests := []struct {
		name      string
		candidate string
		required  string
		want      float64
	}{
		{"exact match", "fintech", "fintech", 1.0},
		{"adjacent", "banking", "fintech", 0.7},
		{"adjacency is directional", "fintech", "gaming", 0},
		{"unrelated", "gaming", "fintech", 0},
		{"case and whitespace folded", " Banking ", "FinTech", 0.7},
		{"empty candidate", "", "fintech", 0},
		{"empty required", "fintech", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tax.IndustryAffinity(tt.candidate, tt.required), 1e-9)
		})
	}
}

func TestDefaultTableConsistency(t *testing.T) {
	tax := Default()
	require.NotEmpty(t, tax.Version)

	// Every alias must resolve to a skill that exists in the table.
	for alias, canonical := range tax.Aliases() {
		_, ok := tax.Skills()[canonical]
		assert.True(t, ok, "alias %q points to unknown skill %q", alias, canonical)
	}

	// Every adjacency credit is partial, strictly between 0 and 1.
	for industry, adj := range tax.adjacentIndustries {
		for related, credit := range adj {
			assert.Greater(t, credit, 0.0, "%s -> %s", industry, related)
			assert.Less(t, credit, 1.0, "%s -> %s", industry, related)
		}
	}
}
