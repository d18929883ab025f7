package analyses

import (
	"venture-backend/internal/sections"
	"venture-backend/internal/shared/metrics"
)

// Sections run level by level, so the wall-clock work left is roughly one
// average section duration per unresolved dependency level, not per section.
const defaultSectionEstimateMs = 20000.0

// EstimateRemainingSeconds estimates the time until the analysis resolves,
// based on observed section durations and the unresolved depth of the graph.
func EstimateRemainingSeconds(a Analysis) float64 {
	if a.Status == StatusCompleted || a.Status == StatusFailed {
		return 0
	}

	levels := make(map[int]bool)
	for _, id := range sections.All() {
		s, ok := a.Sections[string(id)]
		if ok && (s.Status == SectionCompleted || s.Status == SectionFailed) {
			continue
		}
		levels[sections.Depth(id)] = true
	}
	if len(levels) == 0 {
		return 0
	}

	avgMs := metrics.AverageSectionDurationMs()
	if avgMs <= 0 {
		avgMs = defaultSectionEstimateMs
	}
	return float64(len(levels)) * avgMs / 1000.0
}

// Progress returns resolved and total section counts.
func Progress(a Analysis) (resolved, total int) {
	total = len(sections.All())
	for _, id := range sections.All() {
		s, ok := a.Sections[string(id)]
		if ok && (s.Status == SectionCompleted || s.Status == SectionFailed) {
			resolved++
		}
	}
	return resolved, total
}
