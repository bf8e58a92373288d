// Package domain contains core business types and interfaces.
//
// This file defines the subscription tier catalog: the static description of
// each tier's price, quotas, duration, and feature access.
package domain

import "time"

// Tier identifies a subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierWeekly  Tier = "weekly"
	TierMonthly Tier = "monthly"
)

// QuotaUnlimited is the sentinel quota value for unlimited usage.
// It is compared like any other limit, so quota logic never needs a
// special-cased boolean; no real counter can reach it.
const QuotaUnlimited = int64(1<<62 - 1)

// tierRank defines the total order free < weekly < monthly.
// Unknown tiers rank as free so access checks fail closed.
var tierRank = map[Tier]int{
	TierFree:    0,
	TierWeekly:  1,
	TierMonthly: 2,
}

// AtLeast reports whether t meets or exceeds the required tier in the
// tier total order.
func (t Tier) AtLeast(required Tier) bool {
	return tierRank[t] >= tierRank[required]
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// TierDefinition describes a subscription tier's price, quotas, and features.
type TierDefinition struct {
	ID                   Tier
	Name                 string
	PriceCents           int64
	Currency             string
	MaxDocumentsPerMonth int64
	MaxAIQueriesPerDay   int64
	Features             []Feature
	// DurationDays is the subscription period length. Zero means the tier
	// never expires (free tier).
	DurationDays int
}

// Duration returns the subscription period as a time.Duration.
// Zero for the non-expiring free tier.
func (d TierDefinition) Duration() time.Duration {
	return time.Duration(d.DurationDays) * 24 * time.Hour
}

// TierDefinitions is the ordered tier catalog, cheapest first.
var TierDefinitions = []TierDefinition{
	{
		ID:                   TierFree,
		Name:                 "Free",
		PriceCents:           0,
		Currency:             "usd",
		MaxDocumentsPerMonth: 3,
		MaxAIQueriesPerDay:   10,
		Features:             []Feature{FeatureDocumentUpload, FeatureAIQueries},
		DurationDays:         0,
	},
	{
		ID:                   TierWeekly,
		Name:                 "Weekly",
		PriceCents:           299,
		Currency:             "usd",
		MaxDocumentsPerMonth: 20,
		MaxAIQueriesPerDay:   50,
		Features: []Feature{
			FeatureDocumentUpload, FeatureAIQueries,
			FeatureDocumentSummary, FeatureFlashcards,
		},
		DurationDays: 7,
	},
	{
		ID:                   TierMonthly,
		Name:                 "Monthly",
		PriceCents:           999,
		Currency:             "usd",
		MaxDocumentsPerMonth: QuotaUnlimited,
		MaxAIQueriesPerDay:   QuotaUnlimited,
		Features: []Feature{
			FeatureDocumentUpload, FeatureAIQueries,
			FeatureDocumentSummary, FeatureFlashcards,
			FeatureCodeGeneration, FeatureBulkProcessing, FeatureAdvancedAnalytics,
		},
		DurationDays: 30,
	},
}

// tierDefinitionsByID is derived from TierDefinitions at init time.
var tierDefinitionsByID = func() map[Tier]TierDefinition {
	m := make(map[Tier]TierDefinition, len(TierDefinitions))
	for _, d := range TierDefinitions {
		m[d.ID] = d
	}
	return m
}()

// GetTierDefinition returns the definition for a tier, defaulting to the
// free tier for unknown IDs. Failing closed to free is deliberate: an
// unrecognized tier must never grant paid access.
func GetTierDefinition(id Tier) TierDefinition {
	if def, ok := tierDefinitionsByID[id]; ok {
		return def
	}
	return tierDefinitionsByID[TierFree]
}
