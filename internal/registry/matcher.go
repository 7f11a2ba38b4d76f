package registry

import (
	"sort"
	"strings"

	"github.com/ternarybob/applyr/internal/models"
)

// Confidence tiers produced by domain matching. The tiers are coarse on
// purpose: callers branch on "good enough to execute", not on fine-grained
// ranking.
const (
	confidenceExact   = 0.95
	confidenceFuzzy   = 0.8
	confidenceDefault = 0.5

	fuzzyThreshold = 0.6
)

// MatchStrategy scores every registered definition against the job's domain
// and returns the best match. Iteration is over ID-sorted definitions so
// equal scores resolve deterministically.
func MatchStrategy(job *models.JobPosting, defs []*models.StrategyDefinition, defaultID string) *models.StrategyMatchResult {
	domain := job.Domain()
	if domain == "" {
		domain = strings.ToLower(job.ApplyURL)
	}

	sorted := make([]*models.StrategyDefinition, len(defs))
	copy(sorted, defs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var best *models.StrategyDefinition
	bestScore := 0.0
	var alternates []*models.StrategyDefinition

	for _, def := range sorted {
		score := domainScore(domain, strings.ToLower(def.CompanyDomain))
		if len(def.URLPatterns) > 0 && !def.CanHandleURL(job.ApplyURL) && score < confidenceExact {
			// Explicit URL patterns can veto a weak domain match, never an
			// exact one.
			score = 0
		}
		if score > bestScore {
			if best != nil {
				alternates = append(alternates, best)
			}
			best, bestScore = def, score
		} else if score > 0 {
			alternates = append(alternates, def)
		}
	}

	if best != nil && bestScore >= confidenceFuzzy {
		return &models.StrategyMatchResult{
			Matched:    true,
			Strategy:   best,
			Confidence: bestScore,
			Alternates: alternates,
		}
	}

	// No confident match; fall back to the configured default strategy.
	if defaultID != "" {
		for _, def := range sorted {
			if def.ID == defaultID {
				return &models.StrategyMatchResult{
					Matched:    true,
					Strategy:   def,
					Confidence: confidenceDefault,
					Alternates: alternates,
				}
			}
		}
	}

	// Unmatched: hand back every registered strategy as an alternate so the
	// caller can present or retry the full candidate set.
	return &models.StrategyMatchResult{Matched: false, Alternates: sorted}
}

// domainScore compares a job domain against a strategy's company domain:
// exact or substring containment scores 0.95, token overlap above the fuzzy
// threshold scores 0.8, anything else scores 0.
func domainScore(jobDomain, strategyDomain string) float64 {
	if jobDomain == "" || strategyDomain == "" {
		return 0
	}
	if jobDomain == strategyDomain ||
		strings.Contains(jobDomain, strategyDomain) ||
		strings.Contains(strategyDomain, jobDomain) {
		return confidenceExact
	}
	if tokenOverlap(jobDomain, strategyDomain) > fuzzyThreshold {
		return confidenceFuzzy
	}
	return 0
}

// tokenOverlap measures cross-substring token agreement between two domains,
// tokenized on dots and dashes. "jobs.example-careers.com" and "example.com"
// overlap on "example" and "com".
func tokenOverlap(a, b string) float64 {
	tokensA := splitDomain(a)
	tokensB := splitDomain(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matches := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if ta == tb || strings.Contains(ta, tb) || strings.Contains(tb, ta) {
				matches++
				break
			}
		}
	}

	denom := len(tokensA)
	if len(tokensB) > denom {
		denom = len(tokensB)
	}
	return float64(matches) / float64(denom)
}

func splitDomain(domain string) []string {
	raw := strings.FieldsFunc(domain, func(r rune) bool { return r == '.' || r == '-' })
	tokens := raw[:0]
	for _, t := range raw {
		if t != "" && t != "www" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
