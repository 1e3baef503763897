package rail

import (
	"context"
	"sort"
	"time"

	"github.com/yairigal/train-coupon-bot/internal/logger"
	"log/slog"
)

// searchWindowDays bounds the forward scan for the first day with departures.
const searchWindowDays = 7

// ScheduleSource lists scheduled trains for a station pair and date.
type ScheduleSource interface {
	Timetable(ctx context.Context, originID, destID int, date time.Time) ([]Train, error)
}

// SearchService finds bookable departures on top of a ScheduleSource.
type SearchService struct {
	source ScheduleSource
	now    func() time.Time
}

// NewSearchService wraps a schedule source.
func NewSearchService(source ScheduleSource) *SearchService {
	return &SearchService{source: source, now: time.Now}
}

// AvailableTrains returns the trains for the pair/date whose departure is
// strictly in the future, sorted by departure.
func (s *SearchService) AvailableTrains(ctx context.Context, originID, destID int, date time.Time) ([]Train, error) {
	trains, err := s.source.Timetable(ctx, originID, destID, date)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var available []Train
	for _, t := range trains {
		if t.Departure.After(now) {
			available = append(available, t)
		}
	}
	sort.Slice(available, func(i, j int) bool {
		return available[i].Departure.Before(available[j].Departure)
	})
	return available, nil
}

// FirstAvailableDay scans the next searchWindowDays calendar days starting
// today and returns the candidate list of the earliest day with at least one
// future departure, plus that day. ok is false when the whole window is
// empty. Any remote error aborts the scan.
func (s *SearchService) FirstAvailableDay(ctx context.Context, originID, destID int) ([]Train, time.Time, bool, error) {
	start := s.now()
	for i := 0; i < searchWindowDays; i++ {
		day := start.AddDate(0, 0, i)
		trains, err := s.AvailableTrains(ctx, originID, destID, day)
		if err != nil {
			return nil, time.Time{}, false, err
		}
		if len(trains) > 0 {
			logger.RAIL.Debug("first available day",
				slog.String("event", "rail.search"),
				slog.Int("origin_id", originID),
				slog.Int("dest_id", destID),
				slog.String("day", day.Format("2006-01-02")),
				slog.Int("count", len(trains)),
			)
			return trains, day, true, nil
		}
	}
	return nil, time.Time{}, false, nil
}

// ResolveExact re-queries the live schedule for the target's day and returns
// the train whose departure and arrival match the target exactly. ok is
// false when the train is no longer on the schedule.
func (s *SearchService) ResolveExact(ctx context.Context, originID, destID int, target Train, at time.Time) (Train, bool, error) {
	trains, err := s.AvailableTrains(ctx, originID, destID, at)
	if err != nil {
		return Train{}, false, err
	}
	for _, t := range trains {
		if t.Same(target) {
			return t, true, nil
		}
	}
	return Train{}, false, nil
}
