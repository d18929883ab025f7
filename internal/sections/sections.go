package sections

import "fmt"

// ID names one unit of analysis output.
type ID string

const (
	ExecutiveSummary     ID = "executiveSummary"
	MarketSizeGrowth     ID = "marketSizeGrowth"
	Competition          ID = "competition"
	CustomerPersonas     ID = "customerPersonas"
	UnitEconomics        ID = "unitEconomics"
	PricingStrategy      ID = "pricingStrategy"
	MarketingChannels    ID = "marketingChannels"
	GoToMarketPlan       ID = "goToMarketPlan"
	SWOTAnalysis         ID = "swotAnalysis"
	RiskAssessment       ID = "riskAssessment"
	RegulatoryCompliance ID = "regulatoryCompliance"
	FundingRequirements  ID = "fundingRequirements"
	GrowthOpportunities  ID = "growthOpportunities"
)

// All returns every declared section ID in a stable order.
func All() []ID {
	return []ID{
		ExecutiveSummary,
		MarketSizeGrowth,
		Competition,
		CustomerPersonas,
		UnitEconomics,
		PricingStrategy,
		MarketingChannels,
		GoToMarketPlan,
		SWOTAnalysis,
		RiskAssessment,
		RegulatoryCompliance,
		FundingRequirements,
		GrowthOpportunities,
	}
}

// Known reports whether id names a declared section.
func Known(id ID) bool {
	_, ok := dependencyGraph[id]
	return ok
}

// dependencyGraph maps each section to the sections whose completed output it
// needs before it can run. Sections absent from a value slice are independent.
var dependencyGraph = map[ID][]ID{
	ExecutiveSummary:     nil,
	MarketSizeGrowth:     nil,
	CustomerPersonas:     nil,
	RegulatoryCompliance: nil,
	Competition:          {MarketSizeGrowth},
	SWOTAnalysis:         {Competition},
	UnitEconomics:        {MarketSizeGrowth, Competition},
	PricingStrategy:      {UnitEconomics},
	MarketingChannels:    {CustomerPersonas},
	GoToMarketPlan:       {MarketingChannels, UnitEconomics},
	RiskAssessment:       {SWOTAnalysis, RegulatoryCompliance},
	FundingRequirements:  {UnitEconomics, GoToMarketPlan},
	GrowthOpportunities:  {MarketSizeGrowth, GoToMarketPlan},
}

// Deps returns the declared dependencies of a section.
func Deps(id ID) []ID {
	deps := dependencyGraph[id]
	out := make([]ID, len(deps))
	copy(out, deps)
	return out
}

// VerifyGraph checks that every dependency names a declared section and that
// the graph is acyclic. A cycle makes scheduling undefined, so this runs once
// at startup and fails hard.
func VerifyGraph() error {
	for id, deps := range dependencyGraph {
		for _, dep := range deps {
			if !Known(dep) {
				return fmt.Errorf("section %s depends on unknown section %s", id, dep)
			}
		}
	}

	// Kahn's algorithm: if not every node drains, the remainder is a cycle.
	indegree := make(map[ID]int, len(dependencyGraph))
	dependents := make(map[ID][]ID, len(dependencyGraph))
	for id, deps := range dependencyGraph {
		indegree[id] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []ID
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}

	visited := 0
	for len(ready) > 0 {
		id := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		visited++
		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	if visited != len(dependencyGraph) {
		return fmt.Errorf("section dependency graph contains a cycle (%d of %d sections reachable)", visited, len(dependencyGraph))
	}
	return nil
}

// Depth returns the length of the longest dependency chain ending at id,
// counting id itself. Independent sections have depth 1.
func Depth(id ID) int {
	memo := make(map[ID]int, len(dependencyGraph))
	return depth(id, memo)
}

func depth(id ID, memo map[ID]int) int {
	if d, ok := memo[id]; ok {
		return d
	}
	best := 0
	for _, dep := range dependencyGraph[id] {
		if d := depth(dep, memo); d > best {
			best = d
		}
	}
	memo[id] = best + 1
	return best + 1
}

// CriticalPathLength returns the longest dependency chain in the graph. A
// polling client can estimate remaining wall-clock time as
// (CriticalPathLength - current depth) x average section duration.
func CriticalPathLength() int {
	memo := make(map[ID]int, len(dependencyGraph))
	best := 0
	for id := range dependencyGraph {
		if d := depth(id, memo); d > best {
			best = d
		}
	}
	return best
}

// Provider names a class of model backend.
type Provider string

const (
	// ProviderReasoning is a reasoning-oriented backend for strategic and
	// qualitative sections.
	ProviderReasoning Provider = "reasoning"
	// ProviderRetrieval is a search-grounded backend for market-data-heavy
	// sections.
	ProviderRetrieval Provider = "retrieval"
	// ProviderGeneral is the default general-purpose backend.
	ProviderGeneral Provider = "general"
)

// providerRouting is a static routing table, not a load-balancing decision.
var providerRouting = map[ID]Provider{
	MarketSizeGrowth:     ProviderRetrieval,
	Competition:          ProviderRetrieval,
	RegulatoryCompliance: ProviderRetrieval,
	MarketingChannels:    ProviderRetrieval,

	ExecutiveSummary: ProviderReasoning,
	SWOTAnalysis:     ProviderReasoning,
	PricingStrategy:  ProviderReasoning,
	GoToMarketPlan:   ProviderReasoning,
	RiskAssessment:   ProviderReasoning,
}

// ProviderFor returns the backend class assigned to a section.
func ProviderFor(id ID) Provider {
	if p, ok := providerRouting[id]; ok {
		return p
	}
	return ProviderGeneral
}
