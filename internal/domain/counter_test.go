package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodKey(t *testing.T) {
	at := time.Date(2026, 2, 14, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-02", CounterDocuments.PeriodKey(at))
	assert.Equal(t, "2026-02-14", CounterAIQueries.PeriodKey(at))
}

func TestPeriodKeyRollover(t *testing.T) {
	// A calendar month rollover starts a fresh monthly counter.
	jan := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, CounterDocuments.PeriodKey(jan), CounterDocuments.PeriodKey(feb))

	// Midnight starts a fresh daily counter.
	assert.NotEqual(t, CounterAIQueries.PeriodKey(jan), CounterAIQueries.PeriodKey(feb))
	assert.Equal(t, CounterAIQueries.PeriodKey(feb), CounterAIQueries.PeriodKey(feb.Add(23*time.Hour)))
}

func TestPeriodKeyUsesUTC(t *testing.T) {
	// 2026-02-14 23:30 in UTC+10 is 13:30 UTC the same day; keys must agree
	// regardless of the location attached to the input time.
	loc := time.FixedZone("UTC+10", 10*3600)
	local := time.Date(2026, 2, 15, 8, 30, 0, 0, loc)
	assert.Equal(t, "2026-02-14", CounterAIQueries.PeriodKey(local))
}

func TestCounterQuota(t *testing.T) {
	free := GetTierDefinition(TierFree)
	monthly := GetTierDefinition(TierMonthly)

	assert.Equal(t, free.MaxDocumentsPerMonth, CounterDocuments.Quota(free))
	assert.Equal(t, free.MaxAIQueriesPerDay, CounterAIQueries.Quota(free))
	assert.Equal(t, QuotaUnlimited, CounterDocuments.Quota(monthly))
}

func TestMonthStart(t *testing.T) {
	at := time.Date(2026, 2, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(at))
}

func TestDayStart(t *testing.T) {
	at := time.Date(2026, 2, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC), DayStart(at))
}
