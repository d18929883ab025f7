package sections

import (
	"encoding/json"
	"fmt"
)

// schemaEntry pairs a section's decoder with its fallback payload. The
// fallback keeps a failed section visually complete while its status and
// error flag the failure.
type schemaEntry struct {
	decode   func(raw json.RawMessage) (Payload, error)
	fallback func() Payload
}

func decodeInto[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return p, nil
}

var registry = map[ID]schemaEntry{
	ExecutiveSummary: {
		decode: func(raw json.RawMessage) (Payload, error) {
			var p ExecutiveSummaryPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("unmarshal: %w", err)
			}
			p.Score = clampScore(p.Score)
			return p, nil
		},
		fallback: func() Payload {
			return ExecutiveSummaryPayload{
				Title:       "Executive Summary",
				Verdict:     "High Risk",
				Score:       0,
				Summary:     "This section could not be generated.",
				KeyFindings: []string{"Analysis unavailable"},
			}
		},
	},
	MarketSizeGrowth: {
		decode: decodeInto[MarketSizeGrowthPayload],
		fallback: func() Payload {
			return MarketSizeGrowthPayload{
				TAM:        "Not available",
				SAM:        "Not available",
				SOM:        "Not available",
				GrowthRate: "Not available",
				Trends:     []string{"Analysis unavailable"},
			}
		},
	},
	Competition: {
		decode: decodeInto[CompetitionPayload],
		fallback: func() Payload {
			return CompetitionPayload{
				DirectCompetitors:    []Competitor{{Name: "Unknown", Description: "Analysis unavailable"}},
				CompetitiveAdvantage: "Not available",
			}
		},
	},
	CustomerPersonas: {
		decode: decodeInto[CustomerPersonasPayload],
		fallback: func() Payload {
			return CustomerPersonasPayload{
				Personas: []Persona{{Name: "Unknown", Demographics: "Not available", PainPoints: []string{"Analysis unavailable"}}},
			}
		},
	},
	UnitEconomics: {
		decode: decodeInto[UnitEconomicsPayload],
		fallback: func() Payload {
			return UnitEconomicsPayload{
				CAC:           "Not available",
				LTV:           "Not available",
				LTVToCACRatio: "Not available",
				GrossMargin:   "Not available",
				Assumptions:   []string{"Analysis unavailable"},
			}
		},
	},
	PricingStrategy: {
		decode: decodeInto[PricingStrategyPayload],
		fallback: func() Payload {
			return PricingStrategyPayload{
				RecommendedModel: "Not available",
				Tiers:            []PriceTier{{Name: "Unknown", Price: "Not available"}},
				Rationale:        "This section could not be generated.",
			}
		},
	},
	MarketingChannels: {
		decode: decodeInto[MarketingChannelsPayload],
		fallback: func() Payload {
			return MarketingChannelsPayload{
				Channels:       []Channel{{Name: "Unknown", Effectiveness: "Low"}},
				RecommendedMix: "Not available",
			}
		},
	},
	GoToMarketPlan: {
		decode: decodeInto[GoToMarketPlanPayload],
		fallback: func() Payload {
			return GoToMarketPlanPayload{
				Phases: []Phase{{Name: "Unknown", Timeline: "Not available", Objectives: []string{"Analysis unavailable"}}},
			}
		},
	},
	SWOTAnalysis: {
		decode: decodeInto[SWOTAnalysisPayload],
		fallback: func() Payload {
			return SWOTAnalysisPayload{
				Strengths:     []string{"Analysis unavailable"},
				Weaknesses:    []string{"Analysis unavailable"},
				Opportunities: []string{"Analysis unavailable"},
				Threats:       []string{"Analysis unavailable"},
			}
		},
	},
	RiskAssessment: {
		decode: decodeInto[RiskAssessmentPayload],
		fallback: func() Payload {
			return RiskAssessmentPayload{
				Risks: []Risk{{Name: "Unknown", Severity: "High", Likelihood: "Medium", Mitigation: "Analysis unavailable"}},
			}
		},
	},
	RegulatoryCompliance: {
		decode: decodeInto[RegulatoryCompliancePayload],
		fallback: func() Payload {
			return RegulatoryCompliancePayload{
				Requirements: []Requirement{{Name: "Unknown", Obligation: "Analysis unavailable"}},
			}
		},
	},
	FundingRequirements: {
		decode: decodeInto[FundingRequirementsPayload],
		fallback: func() Payload {
			return FundingRequirementsPayload{
				TotalRequired: "Not available",
				UseOfFunds:    []Allocation{{Category: "Unknown", Amount: "Not available", Percentage: 0}},
			}
		},
	},
	GrowthOpportunities: {
		decode: decodeInto[GrowthOpportunitiesPayload],
		fallback: func() Payload {
			return GrowthOpportunitiesPayload{
				Opportunities: []Opportunity{{Name: "Unknown", Description: "Analysis unavailable", Impact: "Low"}},
			}
		},
	},
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Validate checks candidate data against the section's declared schema and
// returns it as a canonical map. Validation is structural only: shape, enums,
// ranges, non-empty lists. It never judges factual correctness.
func Validate(id ID, raw json.RawMessage) (map[string]any, error) {
	entry, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown section %s", id)
	}
	payload, err := entry.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", id, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return toMap(payload)
}

// Fallback returns the section's default payload as a map.
func Fallback(id ID) map[string]any {
	entry, ok := registry[id]
	if !ok {
		return map[string]any{}
	}
	out, err := toMap(entry.fallback())
	if err != nil {
		return map[string]any{}
	}
	return out
}

func toMap(payload Payload) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
