package llm

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

// promptFileNames maps section IDs to their template files.
var promptFileNames = map[string]string{
	"executiveSummary":     "executive_summary.txt",
	"marketSizeGrowth":     "market_size_growth.txt",
	"competition":          "competition.txt",
	"customerPersonas":     "customer_personas.txt",
	"unitEconomics":        "unit_economics.txt",
	"pricingStrategy":      "pricing_strategy.txt",
	"marketingChannels":    "marketing_channels.txt",
	"goToMarketPlan":       "go_to_market_plan.txt",
	"swotAnalysis":         "swot_analysis.txt",
	"riskAssessment":       "risk_assessment.txt",
	"regulatoryCompliance": "regulatory_compliance.txt",
	"fundingRequirements":  "funding_requirements.txt",
	"growthOpportunities":  "growth_opportunities.txt",
}

// SectionPromptTemplate returns the raw template text for a section and
// whether the section was recognized.
func SectionPromptTemplate(sectionID string) (string, bool) {
	name, ok := promptFileNames[sectionID]
	if !ok {
		return "", false
	}
	data, err := promptFiles.ReadFile("prompts/" + name)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// BuildSectionPrompt assembles the full prompt for one section: the section
// template, the user's business details, and any completed dependency output
// provided as extra context.
func BuildSectionPrompt(sectionID, businessContext, dependencyContext string) (string, error) {
	template, ok := SectionPromptTemplate(sectionID)
	if !ok {
		return "", fmt.Errorf("no prompt template for section %s", sectionID)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(template))
	b.WriteString("\n\nBusiness details:\n")
	b.WriteString(strings.TrimSpace(businessContext))
	if strings.TrimSpace(dependencyContext) != "" {
		b.WriteString("\n\nContext from completed analysis sections:\n")
		b.WriteString(strings.TrimSpace(dependencyContext))
	}
	b.WriteString("\n\nRespond with a single JSON object only. No markdown, no commentary.")
	return b.String(), nil
}
