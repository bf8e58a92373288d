package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mindgrove-app/mindgrove/internal/domain"
	"github.com/mindgrove-app/mindgrove/internal/repository"
)

// Shared in-memory fakes for the service store interfaces.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordSink captures notifications for assertions.
type recordSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *recordSink) Notify(_ context.Context, _ uuid.UUID, message string, _ domain.NotificationSeverity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *recordSink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

// fakeSubscriptionStore implements SubscriptionStore.
type fakeSubscriptionStore struct {
	user    repository.User
	getErr  error
	applied []repository.ApplySubscriptionChangeParams
	applyErr error
}

func (f *fakeSubscriptionStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	if f.getErr != nil {
		return repository.User{}, f.getErr
	}
	if f.user.ID != id {
		return repository.User{}, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeSubscriptionStore) ApplySubscriptionChange(_ context.Context, arg repository.ApplySubscriptionChangeParams) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, arg)
	f.user.Tier = arg.Tier
	f.user.TierExpiry = arg.TierExpiry
	f.user.SubscriptionID = arg.SubscriptionID
	return nil
}

// fakeUsageStore implements UsageStore and EntitlementStore.
type fakeUsageStore struct {
	counters  map[string]int64 // key: kind + "|" + periodKey
	documents int64
	readErr   error
	writeErr  error
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{counters: make(map[string]int64)}
}

func (f *fakeUsageStore) IncrementUsageCounter(_ context.Context, arg repository.IncrementUsageCounterParams) (int64, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	key := arg.Kind + "|" + arg.PeriodKey
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeUsageStore) GetUsageCounter(_ context.Context, arg repository.GetUsageCounterParams) (int64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.counters[arg.Kind+"|"+arg.PeriodKey], nil
}

func (f *fakeUsageStore) ListUsageCountersByUser(_ context.Context, userID uuid.UUID) ([]repository.UsageCounter, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []repository.UsageCounter
	for key, count := range f.counters {
		out = append(out, repository.UsageCounter{UserID: userID, Kind: key, Count: count})
	}
	return out, nil
}

func (f *fakeUsageStore) CountDocumentsByUserSince(_ context.Context, _ repository.CountDocumentsByUserSinceParams) (int64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.documents, nil
}

// fakeStreakStore implements StreakStore.
type fakeStreakStore struct {
	user      repository.User
	documents int64
	updates   []repository.UpdateUserStreakParams
	updateErr error
	top       []repository.LeaderboardRow
}

func (f *fakeStreakStore) GetUserByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	if f.user.ID != id {
		return repository.User{}, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeStreakStore) UpdateUserStreak(_ context.Context, arg repository.UpdateUserStreakParams) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, arg)
	f.user.StreakCount = arg.StreakCount
	f.user.LastActiveDate = arg.LastActiveDate
	return nil
}

func (f *fakeStreakStore) CountDocumentsByUser(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.documents, nil
}

func (f *fakeStreakStore) ListTopStreaks(_ context.Context, _ int32) ([]repository.LeaderboardRow, error) {
	return f.top, nil
}
