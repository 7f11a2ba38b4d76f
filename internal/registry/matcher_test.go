package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/applyr/internal/models"
)

func defWithDomain(id, domain string) *models.StrategyDefinition {
	return &models.StrategyDefinition{
		ID:            id,
		Name:          id,
		CompanyDomain: domain,
		Selectors:     &models.SelectorBundle{},
		Workflow: &models.AutomationWorkflow{
			Application: []models.WorkflowStep{{ID: "s1", Action: models.ActionClick, Selectors: []string{"#apply"}}},
		},
	}
}

func jobAt(url string) *models.JobPosting {
	return &models.JobPosting{ID: "job-1", Title: "Engineer", Company: "Acme", ApplyURL: url}
}

func TestMatchExactDomain(t *testing.T) {
	defs := []*models.StrategyDefinition{
		defWithDomain("greenhouse", "boards.greenhouse.io"),
		defWithDomain("linkedin", "linkedin.com"),
	}

	match := MatchStrategy(jobAt("https://boards.greenhouse.io/acme/jobs/123"), defs, "")
	require.True(t, match.Matched)
	assert.Equal(t, "greenhouse", match.Strategy.ID)
	assert.InDelta(t, 0.95, match.Confidence, 0.001)
}

func TestMatchSubstringDomain(t *testing.T) {
	defs := []*models.StrategyDefinition{defWithDomain("acme", "acme.com")}

	match := MatchStrategy(jobAt("https://jobs.acme.com/openings/1"), defs, "")
	require.True(t, match.Matched)
	assert.InDelta(t, 0.95, match.Confidence, 0.001)
}

func TestMatchFuzzyTokenOverlap(t *testing.T) {
	// "careers.acme.com" vs "acme-careers.net": tokens overlap on
	// careers and acme, 2 of 3 > 0.6.
	defs := []*models.StrategyDefinition{defWithDomain("acme", "acme-careers.net")}

	match := MatchStrategy(jobAt("https://careers.acme.com/jobs/1"), defs, "")
	require.True(t, match.Matched)
	assert.Equal(t, "acme", match.Strategy.ID)
	assert.InDelta(t, 0.8, match.Confidence, 0.001)
}

func TestMatchFallsBackToDefault(t *testing.T) {
	defs := []*models.StrategyDefinition{
		defWithDomain("acme", "acme.com"),
		defWithDomain("generic", "example.invalid"),
	}

	match := MatchStrategy(jobAt("https://unrelated.org/jobs/1"), defs, "generic")
	require.True(t, match.Matched)
	assert.Equal(t, "generic", match.Strategy.ID)
	assert.InDelta(t, 0.5, match.Confidence, 0.001)
}

func TestMatchUnmatchedWithoutDefault(t *testing.T) {
	defs := []*models.StrategyDefinition{
		defWithDomain("acme", "acme.com"),
		defWithDomain("linkedin", "linkedin.com"),
	}

	match := MatchStrategy(jobAt("https://unrelated.org/jobs/1"), defs, "")
	assert.False(t, match.Matched)
	assert.Nil(t, match.Strategy)

	// An unmatched result still carries the full strategy list as alternates.
	require.Len(t, match.Alternates, 2)
	assert.Equal(t, "acme", match.Alternates[0].ID)
	assert.Equal(t, "linkedin", match.Alternates[1].ID)
}

func TestMatchIsDeterministic(t *testing.T) {
	// Two strategies tie on the same domain; the lower ID must win every time.
	defs := []*models.StrategyDefinition{
		defWithDomain("zeta", "acme.com"),
		defWithDomain("alpha", "acme.com"),
	}

	for i := 0; i < 10; i++ {
		match := MatchStrategy(jobAt("https://acme.com/jobs/1"), defs, "")
		require.True(t, match.Matched)
		assert.Equal(t, "alpha", match.Strategy.ID)
		assert.Len(t, match.Alternates, 1)
	}
}

func TestURLPatternsVetoWeakMatch(t *testing.T) {
	def := defWithDomain("acme", "acme-careers.net")
	def.URLPatterns = []string{"acme-careers.net/apply"}

	// Fuzzy domain overlap alone is not enough once explicit patterns exist.
	match := MatchStrategy(jobAt("https://careers.acme.com/jobs/1"), []*models.StrategyDefinition{def}, "")
	assert.False(t, match.Matched)
}

func TestTokenOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, tokenOverlap("acme.com", "acme.com"), 0.001)
	assert.InDelta(t, 0.5, tokenOverlap("acme.com", "acme.io"), 0.001)
	assert.Equal(t, 0.0, tokenOverlap("", "acme.com"))
}
