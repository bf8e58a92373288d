// Package domain contains core business types and interfaces.
//
// This file defines the feature capability tags and the fixed table mapping
// each feature to the minimum tier that may use it.
package domain

// Feature is an enumerated capability tag checked by the entitlement
// evaluator.
type Feature string

const (
	// Quota-gated features, available at every tier subject to usage limits.
	FeatureDocumentUpload Feature = "documentUpload"
	FeatureAIQueries      Feature = "aiQueries"

	// Paid features.
	FeatureDocumentSummary   Feature = "documentSummary"
	FeatureFlashcards        Feature = "flashcards"
	FeatureCodeGeneration    Feature = "codeGeneration"
	FeatureBulkProcessing    Feature = "bulkProcessing"
	FeatureAdvancedAnalytics Feature = "advancedAnalytics"
)

// featureMinTier maps each feature to the minimum tier required to use it.
// Every feature the evaluator can be asked about has an explicit entry;
// a feature missing from this table is denied at every tier.
var featureMinTier = map[Feature]Tier{
	FeatureDocumentUpload:    TierFree,
	FeatureAIQueries:         TierFree,
	FeatureDocumentSummary:   TierWeekly,
	FeatureFlashcards:        TierWeekly,
	FeatureCodeGeneration:    TierMonthly,
	FeatureBulkProcessing:    TierMonthly,
	FeatureAdvancedAnalytics: TierMonthly,
}

// MinimumTierFor returns the minimum tier required for a feature.
// The second return is false for unknown features, which callers must
// treat as denied.
func MinimumTierFor(f Feature) (Tier, bool) {
	tier, ok := featureMinTier[f]
	return tier, ok
}
