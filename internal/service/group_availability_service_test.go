package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/gatherly/availability/internal/model"
	"go.uber.org/zap"
)

func newTestGroupService(avail *fakeAvailabilityStore) *GroupAvailabilityService {
	svc := NewGroupAvailabilityService(avail, time.UTC, zap.NewNop())
	svc.now = syncFixtureTime
	return svc
}

func putDay(avail *fakeAvailabilityStore, userID int64, date time.Time, day model.DaySchedule) {
	week := model.NewWeekKey(date)
	record, _ := avail.GetByUserWeek(context.Background(), userID, week)
	days := model.WeekData{}
	if record != nil {
		days = record.Days
	}
	days[model.DayNameFor(date)] = day
	avail.put(userID, week, days, time.Now())
}

func TestUpcomingFreeDates(t *testing.T) {
	avail := newFakeAvailabilityStore()
	// сегодня среда 2026-08-26
	wed := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	thu := wed.AddDate(0, 0, 1)
	fri := wed.AddDate(0, 0, 2)

	nineToFive := model.DaySchedule{Available: true, Ranges: []model.TimeRange{{StartMin: 540, EndMin: 1020}}}
	putDay(avail, 1, wed, nineToFive)
	putDay(avail, 1, thu, nineToFive)
	putDay(avail, 2, thu, nineToFive)
	putDay(avail, 2, fri, nineToFive)

	svc := newTestGroupService(avail)
	dates, err := svc.UpcomingFreeDates(context.Background(), []int64{1, 2}, 7)
	if err != nil {
		t.Fatal(err)
	}

	// общий день только четверг
	if len(dates) != 1 || !dates[0].Equal(thu) {
		t.Errorf("expected only thursday, got %v", dates)
	}
}

func TestUpcomingFreeDatesNoData(t *testing.T) {
	// пользователь без записей недоступен во все дни
	avail := newFakeAvailabilityStore()
	putDay(avail, 1, time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC),
		model.AllDaySchedule())

	svc := newTestGroupService(avail)
	dates, err := svc.UpcomingFreeDates(context.Background(), []int64{1, 2}, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 0 {
		t.Errorf("member without data must block all dates, got %v", dates)
	}
}

func TestCommonFreeRanges(t *testing.T) {
	avail := newFakeAvailabilityStore()
	date := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)

	putDay(avail, 1, date, model.DaySchedule{Available: true, Ranges: []model.TimeRange{
		{StartMin: 540, EndMin: 720},
		{StartMin: 780, EndMin: 1020},
	}})
	putDay(avail, 2, date, model.DaySchedule{Available: true, Ranges: []model.TimeRange{
		{StartMin: 600, EndMin: 840},
	}})

	svc := newTestGroupService(avail)
	got, err := svc.CommonFreeRanges(context.Background(), []int64{1, 2}, date)
	if err != nil {
		t.Fatal(err)
	}

	want := []model.TimeRange{{StartMin: 600, EndMin: 720}, {StartMin: 780, EndMin: 840}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCommonFreeRangesOneUnavailable(t *testing.T) {
	avail := newFakeAvailabilityStore()
	date := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)

	putDay(avail, 1, date, model.AllDaySchedule())
	putDay(avail, 2, date, model.DaySchedule{})

	svc := newTestGroupService(avail)
	got, err := svc.CommonFreeRanges(context.Background(), []int64{1, 2}, date)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("one unavailable member must empty the intersection, got %v", got)
	}
}

func TestCommonFreeRangesEmptyMembers(t *testing.T) {
	svc := newTestGroupService(newFakeAvailabilityStore())
	got, err := svc.CommonFreeRanges(context.Background(), nil, syncFixtureTime())
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("empty member list must yield nothing, got %v", got)
	}
}
