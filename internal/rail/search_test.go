package rail

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedSchedule serves a fixed timetable per calendar day.
type scriptedSchedule struct {
	byDay map[string][]Train
	err   error
	calls []string
}

func (s *scriptedSchedule) Timetable(ctx context.Context, originID, destID int, date time.Time) ([]Train, error) {
	key := date.Format("2006-01-02")
	s.calls = append(s.calls, key)
	if s.err != nil {
		return nil, s.err
	}
	return s.byDay[key], nil
}

func fixedNow() time.Time {
	return time.Date(2026, 9, 1, 12, 0, 0, 0, time.Local)
}

func trainAt(dep time.Time) Train {
	return Train{Departure: dep, Arrival: dep.Add(time.Hour), OriginID: 3700, DestID: 2100, Number: 1}
}

func TestAvailableTrainsFiltersAndSorts(t *testing.T) {
	now := fixedNow()
	sched := &scriptedSchedule{byDay: map[string][]Train{
		"2026-09-01": {
			trainAt(now.Add(3 * time.Hour)),
			trainAt(now.Add(-time.Hour)),
			trainAt(now.Add(time.Hour)),
		},
	}}
	svc := NewSearchService(sched)
	svc.now = fixedNow

	got, err := svc.AvailableTrains(context.Background(), 3700, 2100, now)
	if err != nil {
		t.Fatalf("AvailableTrains: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d trains, want 2", len(got))
	}
	if !got[0].Departure.Before(got[1].Departure) {
		t.Error("trains not sorted by departure")
	}
	if !got[0].Departure.After(now) {
		t.Error("past departure leaked through the filter")
	}
}

func TestFirstAvailableDaySkipsEmptyDays(t *testing.T) {
	now := fixedNow()
	thirdDay := now.AddDate(0, 0, 2)
	sched := &scriptedSchedule{byDay: map[string][]Train{
		thirdDay.Format("2006-01-02"): {trainAt(thirdDay)},
	}}
	svc := NewSearchService(sched)
	svc.now = fixedNow

	trains, day, ok, err := svc.FirstAvailableDay(context.Background(), 3700, 2100)
	if err != nil {
		t.Fatalf("FirstAvailableDay: %v", err)
	}
	if !ok {
		t.Fatal("no day found")
	}
	if day.Format("2006-01-02") != thirdDay.Format("2006-01-02") {
		t.Errorf("day = %v, want %v", day, thirdDay)
	}
	if len(trains) != 1 {
		t.Errorf("got %d trains, want 1", len(trains))
	}
}

func TestFirstAvailableDayWindowExhausted(t *testing.T) {
	sched := &scriptedSchedule{byDay: map[string][]Train{}}
	svc := NewSearchService(sched)
	svc.now = fixedNow

	_, _, ok, err := svc.FirstAvailableDay(context.Background(), 3700, 2100)
	if err != nil {
		t.Fatalf("FirstAvailableDay: %v", err)
	}
	if ok {
		t.Error("found a day in an empty window")
	}
	if len(sched.calls) != searchWindowDays {
		t.Errorf("scanned %d days, want %d", len(sched.calls), searchWindowDays)
	}
}

func TestFirstAvailableDayAbortsOnError(t *testing.T) {
	sched := &scriptedSchedule{err: errors.New("remote down")}
	svc := NewSearchService(sched)
	svc.now = fixedNow

	_, _, _, err := svc.FirstAvailableDay(context.Background(), 3700, 2100)
	if err == nil {
		t.Fatal("scan did not abort on schedule error")
	}
	if len(sched.calls) != 1 {
		t.Errorf("scan continued after error, %d calls", len(sched.calls))
	}
}

func TestResolveExact(t *testing.T) {
	now := fixedNow()
	target := trainAt(now.Add(2 * time.Hour))
	renumbered := target
	renumbered.Number = 999
	sched := &scriptedSchedule{byDay: map[string][]Train{
		"2026-09-01": {trainAt(now.Add(time.Hour)), renumbered},
	}}
	svc := NewSearchService(sched)
	svc.now = fixedNow

	got, ok, err := svc.ResolveExact(context.Background(), 3700, 2100, target, now)
	if err != nil {
		t.Fatalf("ResolveExact: %v", err)
	}
	if !ok {
		t.Fatal("target not found despite matching times")
	}
	if got.Number != 999 {
		t.Errorf("resolved train number = %d, want the live record", got.Number)
	}

	missing := trainAt(now.Add(5 * time.Hour))
	if _, ok, _ := svc.ResolveExact(context.Background(), 3700, 2100, missing, now); ok {
		t.Error("resolved a train that is not on the schedule")
	}
}
