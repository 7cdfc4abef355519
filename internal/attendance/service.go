package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pickup/internal/apperr"
	"pickup/internal/metrics"
)

// Store is the storage accessor the workflows need.
type Store interface {
	DailyLogs(ctx context.Context, childID int64, date string) ([]Log, error)
	PickerIDs(ctx context.Context, childID int64) ([]int64, error)
	InsertLog(ctx context.Context, l Log) (Log, error)
	RecordsByDate(ctx context.Context, date string) ([]Record, error)
	AllRecords(ctx context.Context) ([]Record, error)
	Dates(ctx context.Context) ([]string, error)
	DeleteByDate(ctx context.Context, date string) (int64, error)
}

var (
	ErrMissingFields   = apperr.Validation("childId and action are required")
	ErrCheckInDisabled = apperr.Validation("Only departure (OUT) is allowed. Check-in is disabled.")
	ErrUnknownPicker   = apperr.Validation("pickerId must be an authorized picker for this child")
	ErrInvalidDate     = apperr.Validation("Query parameter date is required and must be YYYY-MM-DD")
)

// Service coordinates departure eligibility, recording and reporting.
type Service struct {
	store Store
	guard CapGuard
	rules Rules
	log   *zap.Logger

	errWindow   error
	errCapacity error
}

// NewService creates a service backed by a store. A nil guard keeps read-then-insert.
func NewService(store Store, guard CapGuard, rules Rules, log *zap.Logger) *Service {
	if guard == nil {
		guard = NopGuard{}
	}
	if rules.DailyLimit <= 0 {
		rules.DailyLimit = 2
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: store,
		guard: guard,
		rules: rules,
		log:   log,
		errWindow: apperr.Validation(fmt.Sprintf("Departure allowed only between %02d:00–%02d:00.",
			rules.WindowStart, rules.WindowEnd)),
		errCapacity: apperr.Capacity(fmt.Sprintf("Daily attendance limit reached for this child (max %d scans).",
			rules.DailyLimit)),
	}
}

// RecordDeparture validates and persists one departure.
func (s *Service) RecordDeparture(ctx context.Context, in DepartureInput) (Log, error) {
	if in.ChildID == 0 || in.Action == "" {
		metrics.Reject("missing_fields")
		return Log{}, ErrMissingFields
	}
	if in.Action != ActionOut {
		metrics.Reject("check_in")
		return Log{}, ErrCheckInDisabled
	}
	now := s.rules.CurrentTime()
	if !in.Emergency && !s.rules.IsValidScanTime(in.Action, now) {
		metrics.Reject("outside_window")
		return Log{}, s.errWindow
	}

	date := now.Format(dateLayout)
	logs, err := s.store.DailyLogs(ctx, in.ChildID, date)
	if err != nil {
		return Log{}, fmt.Errorf("daily logs: %w", err)
	}
	if len(logs) >= s.rules.DailyLimit {
		metrics.Reject("daily_cap")
		return Log{}, s.errCapacity
	}

	if in.PickerID != nil {
		ids, err := s.store.PickerIDs(ctx, in.ChildID)
		if err != nil {
			return Log{}, fmt.Errorf("picker ids: %w", err)
		}
		found := false
		for _, id := range ids {
			if id == *in.PickerID {
				found = true
				break
			}
		}
		if !found {
			metrics.Reject("unknown_picker")
			return Log{}, ErrUnknownPicker
		}
	}

	release, err := s.guard.Reserve(ctx, in.ChildID, date, len(logs), s.rules.DailyLimit)
	if err != nil {
		if errors.Is(err, errGuardFull) {
			metrics.Reject("daily_cap")
			return Log{}, s.errCapacity
		}
		return Log{}, err
	}

	ts := now
	if in.Timestamp != nil {
		ts = *in.Timestamp
	}
	childID := in.ChildID
	rec, err := s.store.InsertLog(ctx, Log{
		ChildID:   &childID,
		TeacherID: in.TeacherID,
		PickerID:  in.PickerID,
		Action:    ActionOut,
		Timestamp: ts,
		Date:      date,
	})
	if err != nil {
		release(context.WithoutCancel(ctx))
		return Log{}, err
	}
	metrics.Departures.Inc()
	s.log.Info("departure recorded",
		zap.Int64("log_id", rec.ID),
		zap.Int64("child_id", childID),
		zap.Bool("emergency", in.Emergency),
		zap.String("date", date))
	return rec, nil
}

// Today returns today's named records.
func (s *Service) Today(ctx context.Context) (DayReport, error) {
	return s.day(ctx, s.rules.Today())
}

// ByDate returns the named records of an exact YYYY-MM-DD date.
func (s *Service) ByDate(ctx context.Context, date string) (DayReport, error) {
	if !IsExactDate(date) {
		return DayReport{}, ErrInvalidDate
	}
	return s.day(ctx, date)
}

func (s *Service) day(ctx context.Context, date string) (DayReport, error) {
	records, err := s.store.RecordsByDate(ctx, date)
	if err != nil {
		return DayReport{}, err
	}
	if records == nil {
		records = []Record{}
	}
	return DayReport{Date: date, Count: len(records), Records: records}, nil
}

// Dates lists every date that has at least one log.
func (s *Service) Dates(ctx context.Context) ([]string, error) {
	dates, err := s.store.Dates(ctx)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}

// Export collects the rows for a file export. An empty or malformed date exports everything.
func (s *Service) Export(ctx context.Context, date string) (Export, error) {
	if IsExactDate(date) {
		records, err := s.store.RecordsByDate(ctx, date)
		if err != nil {
			return Export{}, err
		}
		return Export{Name: "departures-" + date, Records: records, Location: s.rules.loc()}, nil
	}
	records, err := s.store.AllRecords(ctx)
	if err != nil {
		return Export{}, err
	}
	return Export{Name: "attendance-export", Records: records, Location: s.rules.loc()}, nil
}

// DeleteByDate removes all logs of a date given as YYYY-MM-DD or an ISO timestamp.
func (s *Service) DeleteByDate(ctx context.Context, raw string) (int64, error) {
	date, ok := DatePrefix(raw)
	if !ok {
		return 0, apperr.Validation("Query parameter date is required and must be YYYY-MM-DD")
	}
	n, err := s.store.DeleteByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	if err := s.guard.Reset(ctx, date); err != nil {
		s.log.Warn("cap guard reset failed", zap.String("date", date), zap.Error(err))
	}
	s.log.Info("attendance deleted", zap.String("date", date), zap.Int64("deleted", n))
	return n, nil
}

// ParseTimestamp reads an optional client timestamp.
func ParseTimestamp(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, apperr.Validation("timestamp must be an ISO 8601 date-time")
	}
	return &t, nil
}
