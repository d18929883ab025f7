package analyses

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"venture-backend/internal/sections"
)

// recordingRunner tracks dispatch order and simulates per-section outcomes.
type recordingRunner struct {
	mu      sync.Mutex
	order   []sections.ID
	skips   map[sections.ID]string
	failIDs map[sections.ID]bool
	depsFor map[sections.ID][]sections.ID
}

func newRecordingRunner(failIDs ...sections.ID) *recordingRunner {
	fail := make(map[sections.ID]bool, len(failIDs))
	for _, id := range failIDs {
		fail[id] = true
	}
	return &recordingRunner{
		skips:   make(map[sections.ID]string),
		failIDs: fail,
		depsFor: make(map[sections.ID][]sections.ID),
	}
}

func (r *recordingRunner) run(ctx context.Context, id sections.ID, deps map[sections.ID]map[string]any) (map[string]any, error) {
	r.mu.Lock()
	r.order = append(r.order, id)
	for dep := range deps {
		r.depsFor[id] = append(r.depsFor[id], dep)
	}
	r.mu.Unlock()
	if r.failIDs[id] {
		return nil, errors.New("simulated section failure")
	}
	return map[string]any{"section": string(id)}, nil
}

func (r *recordingRunner) skip(ctx context.Context, id sections.ID, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips[id] = reason.Error()
}

func (r *recordingRunner) ranBefore(a, b sections.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ai, bi := -1, -1
	for i, id := range r.order {
		if id == a {
			ai = i
		}
		if id == b {
			bi = i
		}
	}
	return ai >= 0 && bi >= 0 && ai < bi
}

func (r *recordingRunner) ran(id sections.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.order {
		if got == id {
			return true
		}
	}
	return false
}

func TestSchedulerRunsEverySectionOnce(t *testing.T) {
	runner := newRecordingRunner()
	sched := &scheduler{ids: sections.All(), run: runner.run, skip: runner.skip}

	if err := sched.execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.order) != len(sections.All()) {
		t.Fatalf("ran %d sections, want %d", len(runner.order), len(sections.All()))
	}
	if len(runner.skips) != 0 {
		t.Fatalf("unexpected skips: %v", runner.skips)
	}
}

func TestSchedulerOrdersDependenciesFirst(t *testing.T) {
	runner := newRecordingRunner()
	sched := &scheduler{ids: sections.All(), run: runner.run, skip: runner.skip}

	if err := sched.execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, id := range sections.All() {
		for _, dep := range sections.Deps(id) {
			if !runner.ranBefore(dep, id) {
				t.Errorf("dependency %s did not run before %s", dep, id)
			}
		}
	}
}

func TestSchedulerPassesDependencyData(t *testing.T) {
	runner := newRecordingRunner()
	sched := &scheduler{ids: sections.All(), run: runner.run, skip: runner.skip}

	if err := sched.execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	got := runner.depsFor[sections.UnitEconomics]
	if len(got) != 2 {
		t.Fatalf("unitEconomics saw %d dependency payloads, want 2: %v", len(got), got)
	}
}

func TestSchedulerSkipsDependentsOfFailure(t *testing.T) {
	runner := newRecordingRunner(sections.MarketSizeGrowth)
	sched := &scheduler{ids: sections.All(), run: runner.run, skip: runner.skip}

	if err := sched.execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	// Everything downstream of marketSizeGrowth resolves by skip, not dispatch.
	downstream := []sections.ID{
		sections.Competition,
		sections.SWOTAnalysis,
		sections.UnitEconomics,
		sections.PricingStrategy,
		sections.GoToMarketPlan,
		sections.RiskAssessment,
		sections.FundingRequirements,
		sections.GrowthOpportunities,
	}
	for _, id := range downstream {
		if runner.ran(id) {
			t.Errorf("section %s was dispatched despite a failed dependency", id)
		}
		if _, ok := runner.skips[id]; !ok {
			t.Errorf("section %s was not skipped", id)
		}
	}
	reason := runner.skips[sections.Competition]
	if !strings.Contains(reason, "marketSizeGrowth") || !strings.Contains(reason, "failed") {
		t.Errorf("skip reason does not name the failed dependency: %q", reason)
	}
}

func TestSchedulerIsolatesIndependentBranches(t *testing.T) {
	runner := newRecordingRunner(sections.MarketSizeGrowth)
	sched := &scheduler{ids: sections.All(), run: runner.run, skip: runner.skip}

	if err := sched.execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}

	// The personas branch does not touch marketSizeGrowth and must still run.
	independent := []sections.ID{
		sections.ExecutiveSummary,
		sections.CustomerPersonas,
		sections.MarketingChannels,
		sections.RegulatoryCompliance,
	}
	for _, id := range independent {
		if !runner.ran(id) {
			t.Errorf("independent section %s did not run", id)
		}
	}

	// Every section reached a terminal state one way or the other.
	resolved := len(runner.order) + len(runner.skips)
	if resolved != len(sections.All()) {
		t.Fatalf("resolved %d sections, want %d", resolved, len(sections.All()))
	}
}

func TestSchedulerCanceledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newRecordingRunner()
	sched := &scheduler{ids: sections.All(), run: runner.run, skip: runner.skip}

	err := sched.execute(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("execute err = %v, want context.Canceled", err)
	}
	if len(runner.order) != 0 {
		t.Fatalf("sections were dispatched on a canceled context: %v", runner.order)
	}
}
