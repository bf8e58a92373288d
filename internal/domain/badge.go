// Package domain contains core business types and interfaces.
//
// This file defines achievement badges. Badges are derived, never stored:
// a pure function of the user's streak and document counts against fixed
// thresholds.
package domain

// BadgeMetric names the metric a badge threshold is measured against.
type BadgeMetric string

const (
	BadgeMetricStreak    BadgeMetric = "streak"
	BadgeMetricDocuments BadgeMetric = "documents"
)

// BadgeDefinition is one row of the fixed badge threshold table.
type BadgeDefinition struct {
	ID        string
	Name      string
	Metric    BadgeMetric
	Threshold int64
}

// BadgeDefinitions is the fixed badge table, ordered by metric then threshold.
var BadgeDefinitions = []BadgeDefinition{
	{ID: "consistency-champion", Name: "Consistency Champion", Metric: BadgeMetricStreak, Threshold: 3},
	{ID: "weekly-warrior", Name: "Weekly Warrior", Metric: BadgeMetricStreak, Threshold: 7},
	{ID: "document-explorer", Name: "Document Explorer", Metric: BadgeMetricDocuments, Threshold: 5},
	{ID: "research-scholar", Name: "Research Scholar", Metric: BadgeMetricDocuments, Threshold: 10},
}

// BadgeStatus is the derived state of one badge for display.
type BadgeStatus struct {
	Badge    BadgeDefinition
	Unlocked bool
	// Progress is min(100, 100*metric/threshold).
	Progress int
}

// metricValue selects the metric value for a badge definition.
func metricValue(def BadgeDefinition, streakCount, documentsCount int64) int64 {
	if def.Metric == BadgeMetricStreak {
		return streakCount
	}
	return documentsCount
}

// DeriveBadges computes the status of every defined badge from the current
// metrics. Unlocking uses >= rather than ==, so a badge stays unlocked once
// its threshold is crossed regardless of how the metric got there.
func DeriveBadges(streakCount, documentsCount int64) []BadgeStatus {
	statuses := make([]BadgeStatus, 0, len(BadgeDefinitions))
	for _, def := range BadgeDefinitions {
		value := metricValue(def, streakCount, documentsCount)
		progress := int(100 * value / def.Threshold)
		if progress > 100 {
			progress = 100
		}
		statuses = append(statuses, BadgeStatus{
			Badge:    def,
			Unlocked: value >= def.Threshold,
			Progress: progress,
		})
	}
	return statuses
}

// NewlyUnlockedBadges returns the badges whose threshold was crossed between
// the previous and current metric values. Detection is edge-triggered
// (before < threshold <= after), so a metric that skips past a threshold
// still fires exactly one unlock.
func NewlyUnlockedBadges(metric BadgeMetric, before, after int64) []BadgeDefinition {
	var unlocked []BadgeDefinition
	for _, def := range BadgeDefinitions {
		if def.Metric != metric {
			continue
		}
		if before < def.Threshold && after >= def.Threshold {
			unlocked = append(unlocked, def)
		}
	}
	return unlocked
}
