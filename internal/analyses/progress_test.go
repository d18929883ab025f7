package analyses

import (
	"testing"

	"venture-backend/internal/sections"
)

func analysisWithStatuses(status string, sectionStatus map[sections.ID]string) Analysis {
	a := Analysis{Status: status, Sections: make(map[string]Section)}
	for _, id := range sections.All() {
		s := Section{SectionID: string(id), Status: SectionQueued}
		if override, ok := sectionStatus[id]; ok {
			s.Status = override
		}
		a.Sections[string(id)] = s
	}
	return a
}

func TestProgressCounts(t *testing.T) {
	a := analysisWithStatuses(StatusProcessing, map[sections.ID]string{
		sections.ExecutiveSummary: SectionCompleted,
		sections.MarketSizeGrowth: SectionCompleted,
		sections.SWOTAnalysis:     SectionFailed,
	})
	resolved, total := Progress(a)
	if total != len(sections.All()) {
		t.Fatalf("total = %d, want %d", total, len(sections.All()))
	}
	if resolved != 3 {
		t.Fatalf("resolved = %d, want 3", resolved)
	}
}

func TestEstimateRemainingSecondsTerminal(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusFailed} {
		a := analysisWithStatuses(status, nil)
		if got := EstimateRemainingSeconds(a); got != 0 {
			t.Errorf("estimate for %s analysis = %v, want 0", status, got)
		}
	}
}

func TestEstimateRemainingSecondsShrinksWithProgress(t *testing.T) {
	fresh := analysisWithStatuses(StatusProcessing, nil)
	freshEstimate := EstimateRemainingSeconds(fresh)
	if freshEstimate <= 0 {
		t.Fatal("fresh analysis estimate must be positive")
	}

	// Resolve every section at depth 1 and 2; only deeper levels remain.
	resolved := map[sections.ID]string{}
	for _, id := range sections.All() {
		if sections.Depth(id) <= 2 {
			resolved[id] = SectionCompleted
		}
	}
	partial := analysisWithStatuses(StatusProcessing, resolved)
	partialEstimate := EstimateRemainingSeconds(partial)
	if partialEstimate <= 0 {
		t.Fatal("partial analysis estimate must be positive")
	}
	if partialEstimate >= freshEstimate {
		t.Fatalf("estimate did not shrink: fresh=%v partial=%v", freshEstimate, partialEstimate)
	}
}

func TestEstimateRemainingSecondsAllSectionsResolved(t *testing.T) {
	resolved := map[sections.ID]string{}
	for _, id := range sections.All() {
		resolved[id] = SectionCompleted
	}
	// Document status lags section resolution briefly.
	a := analysisWithStatuses(StatusProcessing, resolved)
	if got := EstimateRemainingSeconds(a); got != 0 {
		t.Fatalf("estimate = %v, want 0", got)
	}
}

func TestResolved(t *testing.T) {
	if (Analysis{}).Resolved() {
		t.Fatal("empty analysis must not be resolved")
	}
	all := map[sections.ID]string{}
	for _, id := range sections.All() {
		all[id] = SectionFailed
	}
	if !analysisWithStatuses(StatusProcessing, all).Resolved() {
		t.Fatal("fully failed analysis must be resolved")
	}
	partial := analysisWithStatuses(StatusProcessing, map[sections.ID]string{sections.ExecutiveSummary: SectionCompleted})
	if partial.Resolved() {
		t.Fatal("partially resolved analysis must not be resolved")
	}
}
