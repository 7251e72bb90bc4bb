package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gatherly/availability/internal/model"
	"github.com/gatherly/availability/internal/source"
	"go.uber.org/zap"
)

type fakeAvailabilityStore struct {
	mu      sync.Mutex
	records map[string]*model.AvailabilityRecord

	upserts          int
	versionedUpserts int
	conflictsLeft    int
	failUpsert       error
}

func newFakeAvailabilityStore() *fakeAvailabilityStore {
	return &fakeAvailabilityStore{records: make(map[string]*model.AvailabilityRecord)}
}

func availKey(userID int64, week model.WeekKey) string {
	return fmt.Sprintf("%d/%s", userID, week)
}

func (f *fakeAvailabilityStore) put(userID int64, week model.WeekKey, days model.WeekData, version time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[availKey(userID, week)] = &model.AvailabilityRecord{
		UserID:    userID,
		Week:      week,
		Days:      days,
		UpdatedAt: version,
	}
}

func (f *fakeAvailabilityStore) GetByUserWeek(_ context.Context, userID int64, week model.WeekKey) (*model.AvailabilityRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[availKey(userID, week)]
	if !ok {
		return nil, nil
	}
	clone := *r
	clone.Days = r.Days.Clone()
	return &clone, nil
}

func (f *fakeAvailabilityStore) Upsert(_ context.Context, record *model.AvailabilityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert != nil {
		return f.failUpsert
	}
	f.upserts++
	record.UpdatedAt = record.UpdatedAt.Add(time.Second)
	f.records[availKey(record.UserID, record.Week)] = record
	return nil
}

func (f *fakeAvailabilityStore) UpsertVersioned(_ context.Context, record *model.AvailabilityRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.versionedUpserts++
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return model.ErrPersistenceConflict
	}
	existing, ok := f.records[availKey(record.UserID, record.Week)]
	if ok && !existing.UpdatedAt.Equal(record.UpdatedAt) {
		return model.ErrPersistenceConflict
	}
	record.UpdatedAt = record.UpdatedAt.Add(time.Second)
	f.records[availKey(record.UserID, record.Week)] = record
	return nil
}

type fakeSyncStore struct {
	mu       sync.Mutex
	settings []*model.CalendarSyncSettings
	touched  map[string]time.Time
}

func newFakeSyncStore(settings ...*model.CalendarSyncSettings) *fakeSyncStore {
	return &fakeSyncStore{settings: settings, touched: make(map[string]time.Time)}
}

func (f *fakeSyncStore) GetEnabledForAutoSync(_ context.Context, provider model.ProviderKind) ([]*model.CalendarSyncSettings, error) {
	var out []*model.CalendarSyncSettings
	for _, s := range f.settings {
		if s.Provider == provider && s.SyncEnabled && s.AutoSyncAvailability {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSyncStore) GetByUser(_ context.Context, userID int64) ([]*model.CalendarSyncSettings, error) {
	var out []*model.CalendarSyncSettings
	for _, s := range f.settings {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSyncStore) TouchLastSync(_ context.Context, userID int64, provider model.ProviderKind, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[fmt.Sprintf("%d/%s", userID, provider)] = at
	return nil
}

type fakeSource struct {
	provider  model.ProviderKind
	intervals []model.BusyInterval
	err       error
	calls     int
}

func (f *fakeSource) Provider() model.ProviderKind { return f.provider }

func (f *fakeSource) GetBusyIntervals(context.Context, int64, time.Time, time.Time) ([]model.BusyInterval, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.intervals, nil
}

func syncFixtureTime() time.Time {
	return time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
}

func googleSettings(userID int64) *model.CalendarSyncSettings {
	return &model.CalendarSyncSettings{
		UserID:               userID,
		Provider:             model.ProviderGoogle,
		SyncEnabled:          true,
		AutoSyncAvailability: true,
	}
}

func newTestSyncService(avail *fakeAvailabilityStore, syncStore *fakeSyncStore, sources ...source.BusySource) *SyncService {
	svc := NewSyncService(avail, syncStore, sources,
		NewReconciler(30, zap.NewNop()), time.UTC, 2, zap.NewNop())
	svc.now = syncFixtureTime
	return svc
}

func TestSyncUserReconcilesWeek(t *testing.T) {
	avail := newFakeAvailabilityStore()
	week := model.NewWeekKey(syncFixtureTime())
	version := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)
	avail.put(1, week, model.WeekData{
		model.DayWednesday: {Available: true, Ranges: []model.TimeRange{{StartMin: 540, EndMin: 1020}}},
	}, version)

	src := &fakeSource{
		provider: model.ProviderGoogle,
		intervals: []model.BusyInterval{{
			Start:  time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC),
			End:    time.Date(2026, time.August, 26, 11, 0, 0, 0, time.UTC),
			Source: model.ProviderGoogle,
		}},
	}
	syncStore := newFakeSyncStore(googleSettings(1))

	svc := newTestSyncService(avail, syncStore, src)
	if err := svc.SyncUser(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	record, err := avail.GetByUserWeek(context.Background(), 1, week)
	if err != nil {
		t.Fatal(err)
	}
	day, _ := record.Day(model.DayWednesday)
	want := []model.TimeRange{{StartMin: 540, EndMin: 600}, {StartMin: 660, EndMin: 1020}}
	if len(day.Ranges) != 2 || day.Ranges[0] != want[0] || day.Ranges[1] != want[1] {
		t.Errorf("got %v, want %v", day.Ranges, want)
	}
	if src.calls != 2 {
		t.Errorf("source must be called once per lookahead week, got %d", src.calls)
	}
	if _, ok := syncStore.touched["1/google"]; !ok {
		t.Error("last sync must be recorded")
	}
}

func TestSyncUserNoChangeSkipsWrite(t *testing.T) {
	avail := newFakeAvailabilityStore()
	week := model.NewWeekKey(syncFixtureTime())
	avail.put(1, week, model.WeekData{
		model.DayWednesday: {Available: true, Ranges: []model.TimeRange{{StartMin: 540, EndMin: 1020}}},
	}, time.Now())

	src := &fakeSource{provider: model.ProviderGoogle}
	svc := newTestSyncService(avail, newFakeSyncStore(googleSettings(1)), src)

	if err := svc.SyncUser(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if avail.versionedUpserts != 0 {
		t.Errorf("unchanged weeks must not be written, got %d upserts", avail.versionedUpserts)
	}
}

func TestSyncUserNoSourcesConnected(t *testing.T) {
	svc := newTestSyncService(newFakeAvailabilityStore(), newFakeSyncStore())
	err := svc.SyncUser(context.Background(), 1)
	if !errors.Is(err, model.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestSyncUserSourceFailureDoesNotWrite(t *testing.T) {
	avail := newFakeAvailabilityStore()
	week := model.NewWeekKey(syncFixtureTime())
	avail.put(1, week, model.WeekData{
		model.DayWednesday: {Available: true, Ranges: []model.TimeRange{{StartMin: 540, EndMin: 1020}}},
	}, time.Now())

	good := &fakeSource{
		provider: model.ProviderGoogle,
		intervals: []model.BusyInterval{{
			Start:  time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC),
			End:    time.Date(2026, time.August, 26, 11, 0, 0, 0, time.UTC),
			Source: model.ProviderGoogle,
		}},
	}
	bad := &fakeSource{provider: model.ProviderOutlook, err: model.ErrSourceUnavailable}

	outlook := googleSettings(1)
	outlook.Provider = model.ProviderOutlook
	syncStore := newFakeSyncStore(googleSettings(1), outlook)

	svc := newTestSyncService(avail, syncStore, good, bad)
	err := svc.SyncUser(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error when a source fails")
	}
	if avail.versionedUpserts != 0 {
		t.Error("partial busy data must never be written")
	}
	if len(syncStore.touched) != 0 {
		t.Error("failed sync must not advance last sync time")
	}
}

func TestSyncUserRetriesOnConflict(t *testing.T) {
	avail := newFakeAvailabilityStore()
	week := model.NewWeekKey(syncFixtureTime())
	avail.put(1, week, model.WeekData{
		model.DayWednesday: {Available: true, Ranges: []model.TimeRange{{StartMin: 540, EndMin: 1020}}},
	}, time.Now())
	avail.conflictsLeft = 1

	src := &fakeSource{
		provider: model.ProviderGoogle,
		intervals: []model.BusyInterval{{
			Start:  time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC),
			End:    time.Date(2026, time.August, 26, 11, 0, 0, 0, time.UTC),
			Source: model.ProviderGoogle,
		}},
	}
	svc := newTestSyncService(avail, newFakeSyncStore(googleSettings(1)), src)

	if err := svc.SyncUser(context.Background(), 1); err != nil {
		t.Fatalf("one conflict must be retried away: %v", err)
	}
	if avail.versionedUpserts != 2 {
		t.Errorf("expected exactly one retry, got %d attempts", avail.versionedUpserts)
	}
}

func TestSyncUserGivesUpAfterSecondConflict(t *testing.T) {
	avail := newFakeAvailabilityStore()
	week := model.NewWeekKey(syncFixtureTime())
	avail.put(1, week, model.WeekData{
		model.DayWednesday: {Available: true, Ranges: []model.TimeRange{{StartMin: 540, EndMin: 1020}}},
	}, time.Now())
	avail.conflictsLeft = 5

	src := &fakeSource{
		provider: model.ProviderGoogle,
		intervals: []model.BusyInterval{{
			Start:  time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC),
			End:    time.Date(2026, time.August, 26, 11, 0, 0, 0, time.UTC),
			Source: model.ProviderGoogle,
		}},
	}
	svc := newTestSyncService(avail, newFakeSyncStore(googleSettings(1)), src)

	err := svc.SyncUser(context.Background(), 1)
	if !errors.Is(err, model.ErrPersistenceConflict) {
		t.Errorf("expected persistence conflict after retry budget, got %v", err)
	}
}

func TestSyncAllUsersSkipsRecentlySynced(t *testing.T) {
	recent := googleSettings(1)
	at := syncFixtureTime().Add(-10 * time.Minute)
	recent.LastSync = &at

	stale := googleSettings(2)
	staleAt := syncFixtureTime().Add(-3 * time.Hour)
	stale.LastSync = &staleAt

	avail := newFakeAvailabilityStore()
	src := &fakeSource{provider: model.ProviderGoogle}
	svc := newTestSyncService(avail, newFakeSyncStore(recent, stale), src)

	stats, err := svc.SyncAllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Synced != 1 || stats.Errors != 0 {
		t.Errorf("expected one synced user, got %+v", stats)
	}
}

func TestSyncAllUsersCountsFailures(t *testing.T) {
	// источник пользователя сломан: пользователь попадает в errors,
	// остальные продолжаются
	s1 := googleSettings(1)
	s2 := googleSettings(2)

	avail := newFakeAvailabilityStore()
	week := model.NewWeekKey(syncFixtureTime())
	avail.put(1, week, model.WeekData{
		model.DayWednesday: {Available: true, Ranges: []model.TimeRange{{StartMin: 540, EndMin: 1020}}},
	}, time.Now())

	src := &fakeSource{provider: model.ProviderGoogle, err: model.ErrSourceUnavailable}
	svc := newTestSyncService(avail, newFakeSyncStore(s1, s2), src)

	stats, err := svc.SyncAllUsers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Errors != 2 || stats.Synced != 0 {
		t.Errorf("expected both users in errors, got %+v", stats)
	}
}
