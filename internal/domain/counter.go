// Package domain contains core business types and interfaces.
//
// This file defines usage counter kinds and their period-key derivation.
// Counters are append-only per period; switching periods starts a fresh
// counter and old periods are retained for historical display.
package domain

import "time"

// CounterKind identifies a quota-limited action being tallied.
type CounterKind string

const (
	// CounterDocuments tracks document uploads, reset per calendar month.
	CounterDocuments CounterKind = "documents"

	// CounterAIQueries tracks AI queries, reset per calendar day.
	CounterAIQueries CounterKind = "ai_queries"
)

// PeriodKey derives the counter's period key from the given wall-clock time.
// Documents use monthly granularity ("2006-01"), AI queries daily
// ("2006-01-02"). All periods are computed in UTC so two servers never
// disagree about which period an increment lands in.
func (k CounterKind) PeriodKey(t time.Time) string {
	t = t.UTC()
	switch k {
	case CounterDocuments:
		return t.Format("2006-01")
	case CounterAIQueries:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01-02")
	}
}

// Quota returns the tier's limit for this counter kind.
func (k CounterKind) Quota(def TierDefinition) int64 {
	switch k {
	case CounterDocuments:
		return def.MaxDocumentsPerMonth
	case CounterAIQueries:
		return def.MaxAIQueriesPerDay
	default:
		return 0
	}
}

// MonthStart returns the start of t's calendar month in UTC.
// Used when reconciling the monthly document counter against the
// documents table.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DayStart returns midnight UTC of t's calendar day.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
