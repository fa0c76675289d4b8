package rank

import (
	"fmt"
	"strings"

	"jobmatch-engine/internal/config"
)

// Keyword tiers are part of the fit profile's semantics and are fixed
// here; only the geography lists come from configuration.

var seniorityTiers = []struct {
	level    string
	score    int
	keywords []string
}{
	{"VP", 30, []string{"vp", "vice president"}},
	{"Senior Director", 25, []string{"senior director", "sr director", "sr. director"}},
	{"Director", 20, []string{"director"}},
}

var pnlStrongKeywords = []string{
	"p&l", "p & l", "profit and loss",
	"profitability", "ebitda",
	"budget control", "cost reduction",
	"financial accountability",
}

var pnlMediumKeywords = []string{
	"commercial growth", "revenue targets",
	"portfolio margin", "revenue growth",
	"business results", "financial performance",
}

var transformationKeywords = []string{
	"digital transformation",
	"erp modernization", "erp implementation",
	"post-acquisition integration", "post acquisition integration",
	"operational transformation",
	"technology roadmap",
	"business transformation",
	"modernization", "digitalization",
	"system integration",
}

var industryStrongKeywords = []string{
	"industrial iot", "iiot",
	"factory automation", "manufacturing automation",
	"electrification", "ev batteries", "battery",
	"energy systems", "energy storage",
	"regulated environments", "regulated industry",
	"industry 4.0", "smart manufacturing",
	"industrial ai", "predictive maintenance",
	"scada", "plc", "mes",
}

var industryAdjacentKeywords = []string{
	"enterprise software", "saas platform",
	"cloud infrastructure", "data analytics",
	"machine learning", "artificial intelligence",
}

const evidenceWindow = 80

type Extractor struct {
	Geography config.Geography
}

// ExtractSeniority matches the title against the tiers in descending-points
// order, so "senior director" never falls through to plain "director".
func (e Extractor) ExtractSeniority(title string) SenioritySignal {
	titleLower := strings.ToLower(title)
	for _, tier := range seniorityTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(titleLower, kw) {
				return SenioritySignal{Level: tier.level, Score: tier.score}
			}
		}
	}
	return SenioritySignal{Level: "Other", Score: 0}
}

func (e Extractor) ExtractPnL(description string) PnLSignal {
	descLower := strings.ToLower(description)

	if containsAny(descLower, pnlStrongKeywords) {
		return PnLSignal{Score: 20, Evidence: extractEvidence(description, pnlStrongKeywords)}
	}
	if containsAny(descLower, pnlMediumKeywords) {
		return PnLSignal{Score: 15, Evidence: extractEvidence(description, pnlMediumKeywords)}
	}
	return PnLSignal{}
}

func (e Extractor) ExtractTransformation(description string) TransformationSignal {
	descLower := strings.ToLower(description)

	if containsAny(descLower, transformationKeywords) {
		return TransformationSignal{Score: 20, Evidence: extractEvidence(description, transformationKeywords)}
	}
	return TransformationSignal{}
}

func (e Extractor) ExtractIndustry(description string) IndustrySignal {
	descLower := strings.ToLower(description)

	if containsAny(descLower, industryStrongKeywords) {
		return IndustrySignal{Score: 20, Evidence: extractEvidence(description, industryStrongKeywords)}
	}
	if containsAny(descLower, industryAdjacentKeywords) {
		return IndustrySignal{Score: 10, Evidence: extractEvidence(description, industryAdjacentKeywords)}
	}
	return IndustrySignal{}
}

// ExtractGeo scans description+location for preferred and banned
// geographies independently. A banned hit keeps any preferred score but
// overwrites the evidence: the negative signal is the one worth showing.
func (e Extractor) ExtractGeo(description, location string) GeoSignal {
	combined := strings.ToLower(description) + " " + strings.ToLower(location)

	var sig GeoSignal
	for _, geo := range e.Geography.Preferred {
		if strings.Contains(combined, strings.ToLower(geo)) {
			sig.Score = 10
			sig.Evidence = extractEvidence(description, []string{geo})
			if sig.Evidence == "" {
				sig.Evidence = fmt.Sprintf("Location: %s", location)
			}
			break
		}
	}

	for _, geo := range e.Geography.Banned {
		if strings.Contains(combined, strings.ToLower(geo)) {
			sig.Banned = true
			evidence := extractEvidence(description, []string{geo})
			if evidence == "" {
				evidence = fmt.Sprintf("Location: %s", location)
			}
			sig.Evidence = evidence
			break
		}
	}

	return sig
}

// extractEvidence returns the text around the first matching keyword,
// original casing, ellipsis-truncated at either end. Empty when nothing
// matches.
func extractEvidence(text string, keywords []string) string {
	textLower := strings.ToLower(text)

	for _, kw := range keywords {
		idx := strings.Index(textLower, strings.ToLower(kw))
		if idx < 0 {
			continue
		}

		start := idx - evidenceWindow
		if start < 0 {
			start = 0
		}
		end := idx + len(kw) + evidenceWindow
		if end > len(text) {
			end = len(text)
		}

		snippet := strings.TrimSpace(text[start:end])
		if start > 0 {
			snippet = "..." + snippet
		}
		if end < len(text) {
			snippet = snippet + "..."
		}
		return snippet
	}
	return ""
}

func containsAny(haystackLower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystackLower, kw) {
			return true
		}
	}
	return false
}
