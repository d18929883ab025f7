package sections

import (
	"fmt"
	"strings"
)

// Payload is a section's structured data, validated against its schema.
type Payload interface {
	Validate() error
}

func requireString(section, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s.%s is required", section, field)
	}
	return nil
}

func requireEnum(section, field, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(value), a) {
			return nil
		}
	}
	return fmt.Errorf("%s.%s must be one of %s", section, field, strings.Join(allowed, "|"))
}

// ExecutiveSummaryPayload is the data shape for the executiveSummary section.
type ExecutiveSummaryPayload struct {
	Title       string   `json:"title"`
	Verdict     string   `json:"verdict"`
	Score       float64  `json:"score"`
	Summary     string   `json:"summary"`
	KeyFindings []string `json:"keyFindings"`
}

func (p ExecutiveSummaryPayload) Validate() error {
	if err := requireString("executiveSummary", "title", p.Title); err != nil {
		return err
	}
	if err := requireEnum("executiveSummary", "verdict", p.Verdict, "Promising", "Viable with Risks", "High Risk", "Not Viable"); err != nil {
		return err
	}
	if p.Score < 0 || p.Score > 100 {
		return fmt.Errorf("executiveSummary.score must be between 0 and 100")
	}
	if err := requireString("executiveSummary", "summary", p.Summary); err != nil {
		return err
	}
	if len(p.KeyFindings) == 0 {
		return fmt.Errorf("executiveSummary.keyFindings must not be empty")
	}
	return nil
}

// MarketSizeGrowthPayload is the data shape for the marketSizeGrowth section.
type MarketSizeGrowthPayload struct {
	TAM        string   `json:"tam"`
	SAM        string   `json:"sam"`
	SOM        string   `json:"som"`
	GrowthRate string   `json:"growthRate"`
	Trends     []string `json:"trends"`
	Sources    []string `json:"sources,omitempty"`
}

func (p MarketSizeGrowthPayload) Validate() error {
	if err := requireString("marketSizeGrowth", "tam", p.TAM); err != nil {
		return err
	}
	if err := requireString("marketSizeGrowth", "sam", p.SAM); err != nil {
		return err
	}
	if err := requireString("marketSizeGrowth", "som", p.SOM); err != nil {
		return err
	}
	if err := requireString("marketSizeGrowth", "growthRate", p.GrowthRate); err != nil {
		return err
	}
	if len(p.Trends) == 0 {
		return fmt.Errorf("marketSizeGrowth.trends must not be empty")
	}
	return nil
}

// Competitor is one entry in the competition section.
type Competitor struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
}

// CompetitionPayload is the data shape for the competition section.
type CompetitionPayload struct {
	DirectCompetitors    []Competitor `json:"directCompetitors"`
	IndirectCompetitors  []Competitor `json:"indirectCompetitors,omitempty"`
	CompetitiveAdvantage string       `json:"competitiveAdvantage"`
	MarketGaps           []string     `json:"marketGaps,omitempty"`
}

func (p CompetitionPayload) Validate() error {
	if len(p.DirectCompetitors) == 0 {
		return fmt.Errorf("competition.directCompetitors must not be empty")
	}
	for i, comp := range p.DirectCompetitors {
		if strings.TrimSpace(comp.Name) == "" {
			return fmt.Errorf("competition.directCompetitors[%d].name is required", i)
		}
	}
	for i, comp := range p.IndirectCompetitors {
		if strings.TrimSpace(comp.Name) == "" {
			return fmt.Errorf("competition.indirectCompetitors[%d].name is required", i)
		}
	}
	return requireString("competition", "competitiveAdvantage", p.CompetitiveAdvantage)
}

// Persona is one entry in the customerPersonas section.
type Persona struct {
	Name           string   `json:"name"`
	Demographics   string   `json:"demographics"`
	PainPoints     []string `json:"painPoints"`
	BuyingBehavior string   `json:"buyingBehavior"`
}

// CustomerPersonasPayload is the data shape for the customerPersonas section.
type CustomerPersonasPayload struct {
	Personas []Persona `json:"personas"`
}

func (p CustomerPersonasPayload) Validate() error {
	if len(p.Personas) == 0 {
		return fmt.Errorf("customerPersonas.personas must not be empty")
	}
	for i, persona := range p.Personas {
		if strings.TrimSpace(persona.Name) == "" {
			return fmt.Errorf("customerPersonas.personas[%d].name is required", i)
		}
		if len(persona.PainPoints) == 0 {
			return fmt.Errorf("customerPersonas.personas[%d].painPoints must not be empty", i)
		}
	}
	return nil
}

// UnitEconomicsPayload is the data shape for the unitEconomics section.
type UnitEconomicsPayload struct {
	CAC            string   `json:"cac"`
	LTV            string   `json:"ltv"`
	LTVToCACRatio  string   `json:"ltvToCacRatio"`
	GrossMargin    string   `json:"grossMargin"`
	BreakEvenPoint string   `json:"breakEvenPoint"`
	Assumptions    []string `json:"assumptions"`
}

func (p UnitEconomicsPayload) Validate() error {
	if err := requireString("unitEconomics", "cac", p.CAC); err != nil {
		return err
	}
	if err := requireString("unitEconomics", "ltv", p.LTV); err != nil {
		return err
	}
	if err := requireString("unitEconomics", "ltvToCacRatio", p.LTVToCACRatio); err != nil {
		return err
	}
	if err := requireString("unitEconomics", "grossMargin", p.GrossMargin); err != nil {
		return err
	}
	if len(p.Assumptions) == 0 {
		return fmt.Errorf("unitEconomics.assumptions must not be empty")
	}
	return nil
}

// PriceTier is one entry in the pricingStrategy section.
type PriceTier struct {
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Features []string `json:"features,omitempty"`
}

// PricingStrategyPayload is the data shape for the pricingStrategy section.
type PricingStrategyPayload struct {
	RecommendedModel string      `json:"recommendedModel"`
	Tiers            []PriceTier `json:"tiers"`
	Rationale        string      `json:"rationale"`
}

func (p PricingStrategyPayload) Validate() error {
	if err := requireString("pricingStrategy", "recommendedModel", p.RecommendedModel); err != nil {
		return err
	}
	if len(p.Tiers) == 0 {
		return fmt.Errorf("pricingStrategy.tiers must not be empty")
	}
	for i, tier := range p.Tiers {
		if strings.TrimSpace(tier.Name) == "" {
			return fmt.Errorf("pricingStrategy.tiers[%d].name is required", i)
		}
		if strings.TrimSpace(tier.Price) == "" {
			return fmt.Errorf("pricingStrategy.tiers[%d].price is required", i)
		}
	}
	return requireString("pricingStrategy", "rationale", p.Rationale)
}

// Channel is one entry in the marketingChannels section.
type Channel struct {
	Name          string `json:"name"`
	Effectiveness string `json:"effectiveness"`
	EstimatedCAC  string `json:"estimatedCac,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// MarketingChannelsPayload is the data shape for the marketingChannels section.
type MarketingChannelsPayload struct {
	Channels       []Channel `json:"channels"`
	RecommendedMix string    `json:"recommendedMix"`
}

func (p MarketingChannelsPayload) Validate() error {
	if len(p.Channels) == 0 {
		return fmt.Errorf("marketingChannels.channels must not be empty")
	}
	for i, ch := range p.Channels {
		if strings.TrimSpace(ch.Name) == "" {
			return fmt.Errorf("marketingChannels.channels[%d].name is required", i)
		}
		if err := requireEnum("marketingChannels", fmt.Sprintf("channels[%d].effectiveness", i), ch.Effectiveness, "High", "Medium", "Low"); err != nil {
			return err
		}
	}
	return requireString("marketingChannels", "recommendedMix", p.RecommendedMix)
}

// Phase is one entry in the goToMarketPlan section.
type Phase struct {
	Name       string   `json:"name"`
	Timeline   string   `json:"timeline"`
	Objectives []string `json:"objectives"`
	Tactics    []string `json:"tactics,omitempty"`
}

// GoToMarketPlanPayload is the data shape for the goToMarketPlan section.
type GoToMarketPlanPayload struct {
	Phases        []Phase  `json:"phases"`
	KeyMilestones []string `json:"keyMilestones,omitempty"`
}

func (p GoToMarketPlanPayload) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("goToMarketPlan.phases must not be empty")
	}
	for i, phase := range p.Phases {
		if strings.TrimSpace(phase.Name) == "" {
			return fmt.Errorf("goToMarketPlan.phases[%d].name is required", i)
		}
		if len(phase.Objectives) == 0 {
			return fmt.Errorf("goToMarketPlan.phases[%d].objectives must not be empty", i)
		}
	}
	return nil
}

// SWOTAnalysisPayload is the data shape for the swotAnalysis section.
type SWOTAnalysisPayload struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

func (p SWOTAnalysisPayload) Validate() error {
	if len(p.Strengths) == 0 {
		return fmt.Errorf("swotAnalysis.strengths must not be empty")
	}
	if len(p.Weaknesses) == 0 {
		return fmt.Errorf("swotAnalysis.weaknesses must not be empty")
	}
	if len(p.Opportunities) == 0 {
		return fmt.Errorf("swotAnalysis.opportunities must not be empty")
	}
	if len(p.Threats) == 0 {
		return fmt.Errorf("swotAnalysis.threats must not be empty")
	}
	return nil
}

// Risk is one entry in the riskAssessment section.
type Risk struct {
	Name       string `json:"name"`
	Severity   string `json:"severity"`
	Likelihood string `json:"likelihood"`
	Mitigation string `json:"mitigation"`
}

// RiskAssessmentPayload is the data shape for the riskAssessment section.
type RiskAssessmentPayload struct {
	Risks []Risk `json:"risks"`
}

func (p RiskAssessmentPayload) Validate() error {
	if len(p.Risks) == 0 {
		return fmt.Errorf("riskAssessment.risks must not be empty")
	}
	for i, risk := range p.Risks {
		if strings.TrimSpace(risk.Name) == "" {
			return fmt.Errorf("riskAssessment.risks[%d].name is required", i)
		}
		if err := requireEnum("riskAssessment", fmt.Sprintf("risks[%d].severity", i), risk.Severity, "High", "Medium", "Low"); err != nil {
			return err
		}
		if err := requireEnum("riskAssessment", fmt.Sprintf("risks[%d].likelihood", i), risk.Likelihood, "High", "Medium", "Low"); err != nil {
			return err
		}
		if strings.TrimSpace(risk.Mitigation) == "" {
			return fmt.Errorf("riskAssessment.risks[%d].mitigation is required", i)
		}
	}
	return nil
}

// Requirement is one entry in the regulatoryCompliance section.
type Requirement struct {
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Obligation   string `json:"obligation"`
}

// RegulatoryCompliancePayload is the data shape for the regulatoryCompliance section.
type RegulatoryCompliancePayload struct {
	Requirements    []Requirement `json:"requirements"`
	Licenses        []string      `json:"licenses,omitempty"`
	ComplianceRisks []string      `json:"complianceRisks,omitempty"`
}

func (p RegulatoryCompliancePayload) Validate() error {
	if len(p.Requirements) == 0 {
		return fmt.Errorf("regulatoryCompliance.requirements must not be empty")
	}
	for i, req := range p.Requirements {
		if strings.TrimSpace(req.Name) == "" {
			return fmt.Errorf("regulatoryCompliance.requirements[%d].name is required", i)
		}
	}
	return nil
}

// Allocation is one entry in the fundingRequirements section.
type Allocation struct {
	Category   string  `json:"category"`
	Amount     string  `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// FundingRequirementsPayload is the data shape for the fundingRequirements section.
type FundingRequirementsPayload struct {
	TotalRequired   string       `json:"totalRequired"`
	UseOfFunds      []Allocation `json:"useOfFunds"`
	RunwayMonths    float64      `json:"runwayMonths"`
	SuggestedRounds []string     `json:"suggestedRounds,omitempty"`
}

func (p FundingRequirementsPayload) Validate() error {
	if err := requireString("fundingRequirements", "totalRequired", p.TotalRequired); err != nil {
		return err
	}
	if len(p.UseOfFunds) == 0 {
		return fmt.Errorf("fundingRequirements.useOfFunds must not be empty")
	}
	for i, alloc := range p.UseOfFunds {
		if strings.TrimSpace(alloc.Category) == "" {
			return fmt.Errorf("fundingRequirements.useOfFunds[%d].category is required", i)
		}
		if alloc.Percentage < 0 || alloc.Percentage > 100 {
			return fmt.Errorf("fundingRequirements.useOfFunds[%d].percentage must be between 0 and 100", i)
		}
	}
	if p.RunwayMonths < 0 {
		return fmt.Errorf("fundingRequirements.runwayMonths must not be negative")
	}
	return nil
}

// Opportunity is one entry in the growthOpportunities section.
type Opportunity struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// GrowthOpportunitiesPayload is the data shape for the growthOpportunities section.
type GrowthOpportunitiesPayload struct {
	Opportunities    []Opportunity `json:"opportunities"`
	ExpansionMarkets []string      `json:"expansionMarkets,omitempty"`
	Partnerships     []string      `json:"partnerships,omitempty"`
}

func (p GrowthOpportunitiesPayload) Validate() error {
	if len(p.Opportunities) == 0 {
		return fmt.Errorf("growthOpportunities.opportunities must not be empty")
	}
	for i, opp := range p.Opportunities {
		if strings.TrimSpace(opp.Name) == "" {
			return fmt.Errorf("growthOpportunities.opportunities[%d].name is required", i)
		}
		if err := requireEnum("growthOpportunities", fmt.Sprintf("opportunities[%d].impact", i), opp.Impact, "High", "Medium", "Low"); err != nil {
			return err
		}
	}
	return nil
}
