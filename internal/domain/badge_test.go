package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func unlockedIDs(statuses []BadgeStatus) []string {
	var ids []string
	for _, s := range statuses {
		if s.Unlocked {
			ids = append(ids, s.Badge.ID)
		}
	}
	return ids
}

func TestDeriveBadges(t *testing.T) {
	tests := []struct {
		name           string
		streakCount    int64
		documentsCount int64
		wantUnlocked   []string
	}{
		{
			name:         "nothing unlocked",
			wantUnlocked: nil,
		},
		{
			name:         "streak of 3 unlocks exactly consistency-champion",
			streakCount:  3,
			wantUnlocked: []string{"consistency-champion"},
		},
		{
			name:           "streak 7 and 12 documents unlocks all four",
			streakCount:    7,
			documentsCount: 12,
			wantUnlocked:   []string{"consistency-champion", "weekly-warrior", "document-explorer", "research-scholar"},
		},
		{
			name:           "documents only",
			documentsCount: 5,
			wantUnlocked:   []string{"document-explorer"},
		},
		{
			name:         "above threshold stays unlocked",
			streakCount:  100,
			wantUnlocked: []string{"consistency-champion", "weekly-warrior"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveBadges(tt.streakCount, tt.documentsCount)
			assert.Len(t, got, len(BadgeDefinitions))
			assert.Equal(t, tt.wantUnlocked, unlockedIDs(got))
		})
	}
}

func TestBadgeProgress(t *testing.T) {
	statuses := DeriveBadges(2, 5)
	byID := make(map[string]BadgeStatus)
	for _, s := range statuses {
		byID[s.Badge.ID] = s
	}

	// streak 2 of 3 -> 66%
	assert.Equal(t, 66, byID["consistency-champion"].Progress)
	// streak 2 of 7 -> 28%
	assert.Equal(t, 28, byID["weekly-warrior"].Progress)
	// documents 5 of 5 -> capped at 100
	assert.Equal(t, 100, byID["document-explorer"].Progress)
	// documents 5 of 10 -> 50%
	assert.Equal(t, 50, byID["research-scholar"].Progress)
}

func TestNewlyUnlockedBadges(t *testing.T) {
	tests := []struct {
		name   string
		metric BadgeMetric
		before int64
		after  int64
		want   []string
	}{
		{name: "crossing one threshold", metric: BadgeMetricStreak, before: 2, after: 3, want: []string{"consistency-champion"}},
		{name: "skipping past a threshold still fires", metric: BadgeMetricStreak, before: 2, after: 4, want: []string{"consistency-champion"}},
		{name: "crossing two at once fires both", metric: BadgeMetricStreak, before: 0, after: 8, want: []string{"consistency-champion", "weekly-warrior"}},
		{name: "already past fires nothing", metric: BadgeMetricStreak, before: 3, after: 4, want: nil},
		{name: "no change fires nothing", metric: BadgeMetricDocuments, before: 5, after: 5, want: nil},
		{name: "documents crossing", metric: BadgeMetricDocuments, before: 9, after: 10, want: []string{"research-scholar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewlyUnlockedBadges(tt.metric, tt.before, tt.after)
			var ids []string
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
