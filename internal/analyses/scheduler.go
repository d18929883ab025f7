package analyses

import (
	"context"
	"fmt"

	"venture-backend/internal/sections"
)

// sectionRunner generates one section. deps carries the validated data of
// every completed dependency, keyed by section ID.
type sectionRunner func(ctx context.Context, id sections.ID, deps map[sections.ID]map[string]any) (map[string]any, error)

// sectionSkipper records a section that will never run, with the reason.
type sectionSkipper func(ctx context.Context, id sections.ID, reason error)

// scheduler drives section execution over the dependency graph: repeatedly
// compute the set of sections whose dependencies have all completed, dispatch
// that whole set concurrently, wait for at least one to resolve, repeat. A
// section whose dependency failed is skipped, never dispatched.
type scheduler struct {
	ids  []sections.ID
	run  sectionRunner
	skip sectionSkipper
}

type runOutcome struct {
	id   sections.ID
	data map[string]any
	err  error
}

// execute runs every section to a terminal state. The returned error is only
// non-nil for a scheduling deadlock (a cycle the upfront graph check should
// have caught) or a canceled context; per-section failures are routed through
// run and skip.
func (s *scheduler) execute(ctx context.Context) error {
	remaining := make(map[sections.ID]bool, len(s.ids))
	for _, id := range s.ids {
		remaining[id] = true
	}
	completed := make(map[sections.ID]map[string]any, len(s.ids))
	failed := make(map[sections.ID]bool)

	results := make(chan runOutcome)
	inFlight := 0

	for len(remaining) > 0 || inFlight > 0 {
		// Sections downstream of a failure resolve immediately without
		// dispatch.
		for changed := true; changed; {
			changed = false
			for id := range remaining {
				if dep, ok := failedDep(id, failed); ok {
					s.skip(ctx, id, fmt.Errorf("dependency %s failed", dep))
					failed[id] = true
					delete(remaining, id)
					changed = true
				}
			}
		}

		var ready []sections.ID
		for id := range remaining {
			if depsDone(id, completed) {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 && inFlight == 0 {
			if len(remaining) == 0 {
				break
			}
			return fmt.Errorf("scheduler deadlock: %d sections can never become ready", len(remaining))
		}

		for _, id := range ready {
			delete(remaining, id)
			if err := ctx.Err(); err != nil {
				// Dispatch boundary: a canceled run skips sections that have
				// not started instead of firing provider calls.
				s.skip(ctx, id, err)
				failed[id] = true
				continue
			}
			inFlight++
			go func(id sections.ID) {
				data, err := s.run(ctx, id, snapshotDeps(id, completed))
				results <- runOutcome{id: id, data: data, err: err}
			}(id)
		}

		if inFlight == 0 {
			continue
		}

		// Wait for one resolution, then drain whatever else has finished.
		outcome := <-results
		inFlight--
		s.record(outcome, completed, failed)
	drain:
		for inFlight > 0 {
			select {
			case outcome := <-results:
				inFlight--
				s.record(outcome, completed, failed)
			default:
				break drain
			}
		}
	}
	return ctx.Err()
}

func (s *scheduler) record(outcome runOutcome, completed map[sections.ID]map[string]any, failed map[sections.ID]bool) {
	if outcome.err != nil {
		failed[outcome.id] = true
		return
	}
	completed[outcome.id] = outcome.data
}

// failedDep returns a failed dependency of id, if any.
func failedDep(id sections.ID, failed map[sections.ID]bool) (sections.ID, bool) {
	for _, dep := range sections.Deps(id) {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

// depsDone reports whether every dependency of id has completed. A failed
// dependency never unblocks dependents; those are skipped above.
func depsDone(id sections.ID, completed map[sections.ID]map[string]any) bool {
	for _, dep := range sections.Deps(id) {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}
	return true
}

// snapshotDeps copies the completed dependency data handed to a runner so
// concurrent runners never share the tracking map.
func snapshotDeps(id sections.ID, completed map[sections.ID]map[string]any) map[sections.ID]map[string]any {
	out := make(map[sections.ID]map[string]any)
	for _, dep := range sections.Deps(id) {
		if data, ok := completed[dep]; ok {
			out[dep] = data
		}
	}
	return out
}
