package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/scheduler"
)

// StoreLister adapts a reservation repository to the scheduler's read-only view.
func StoreLister(repo persistence.ReservationRepository) scheduler.ReservationLister {
	return scheduler.ReservationListerFunc(func(ctx context.Context) ([]scheduler.Reservation, error) {
		records, err := repo.ListReservations(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]scheduler.Reservation, 0, len(records))
		for _, r := range records {
			out = append(out, SchedulerReservation(r))
		}
		return out, nil
	})
}

// AvailabilityService validates booking-form queries and answers them from the scheduler core.
type AvailabilityService struct {
	resolver *scheduler.Resolver
	tracker  *scheduler.Tracker
	policy   BookingPolicy
	logger   *slog.Logger
}

// NewAvailabilityService constructs an AvailabilityService. A nil tracker gets a fresh one.
func NewAvailabilityService(resolver *scheduler.Resolver, tracker *scheduler.Tracker, policy BookingPolicy, logger *slog.Logger) *AvailabilityService {
	if tracker == nil {
		tracker = scheduler.NewTracker()
	}
	return &AvailabilityService{
		resolver: resolver,
		tracker:  tracker,
		policy:   policy.withDefaults(),
		logger:   defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// Policy exposes the booking policy used for validation.
func (s *AvailabilityService) Policy() BookingPolicy {
	return s.policy
}

// TimeSlots returns every grid point for the day.
func (s *AvailabilityService) TimeSlots() []string {
	return s.resolver.Grid().GenerateTimeSlots()
}

// StartTimes returns the grid points that may begin a booking.
func (s *AvailabilityService) StartTimes() []string {
	return s.resolver.Grid().StartTimes()
}

// IsAvailable reports whether the interval in q is free.
func (s *AvailabilityService) IsAvailable(ctx context.Context, q AvailabilityQuery) (available bool, err error) {
	if s == nil || s.resolver == nil {
		return false, fmt.Errorf("AvailabilityService is not configured")
	}

	logger := s.loggerWith(ctx, "IsAvailable",
		"date", q.Date,
		"room", q.RoomName,
		"start_time", q.StartTime,
		"end_time", q.EndTime,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "availability check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "availability checked", "available", available)
	}()

	vErr := s.validateScope(q.Date, q.RoomName)
	vErr.merge(s.validateInterval(q.StartTime, q.EndTime))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	available, err = s.resolver.IsTimeSlotAvailable(ctx, q.Date, q.StartTime, q.EndTime, q.RoomName)
	return
}

// EndTimes lists the end times reachable from q.StartTime. When a newer query for the same key
// began while this one was computing, the result is marked stale and carries no options.
func (s *AvailabilityService) EndTimes(ctx context.Context, q EndTimesQuery) (result EndTimesResult, err error) {
	if s == nil || s.resolver == nil {
		return EndTimesResult{}, fmt.Errorf("AvailabilityService is not configured")
	}

	logger := s.loggerWith(ctx, "EndTimes",
		"date", q.Date,
		"room", q.RoomName,
		"start_time", q.StartTime,
		"seq", q.Seq,
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "end time lookup failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "end times resolved", "options", len(result.EndTimes), "stale", result.Stale)
	}()

	vErr := s.validateScope(q.Date, q.RoomName)
	if strings.TrimSpace(q.StartTime) == "" {
		vErr.Add("start_time", "start time is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var tok scheduler.Token
	if q.Seq == 0 {
		tok = s.tracker.Begin(q.Key)
	} else {
		tok = s.tracker.Observe(q.Key, q.Seq)
	}
	result.Seq = tok.Seq

	if !s.tracker.Current(tok) {
		result.Stale = true
		return
	}

	var endTimes []string
	endTimes, err = s.resolver.AvailableEndTimes(ctx, q.Date, q.StartTime, q.RoomName)
	if err != nil {
		return
	}

	if !s.tracker.Current(tok) {
		result.Stale = true
		return
	}
	result.EndTimes = endTimes
	return
}

// DaySlots reports, for every start time, whether a booking could begin there.
func (s *AvailabilityService) DaySlots(ctx context.Context, date, roomName string) (slots []scheduler.SlotStatus, err error) {
	if s == nil || s.resolver == nil {
		return nil, fmt.Errorf("AvailabilityService is not configured")
	}

	logger := s.loggerWith(ctx, "DaySlots", "date", date, "room", roomName)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "day slot lookup failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if vErr := s.validateScope(date, roomName); vErr.HasErrors() {
		err = vErr
		return
	}
	return s.resolver.DaySlots(ctx, date, roomName)
}

const (
	keySeparator    = "/"
	maxFormNameSize = 32
)

// ValidFormName reports whether form may scope supersede tracking: empty, or at most 32 ASCII
// letters, digits, '-' or '_'.
func ValidFormName(form string) bool {
	form = strings.TrimSpace(form)
	if len(form) > maxFormNameSize {
		return false
	}
	for _, c := range form {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// EndTimesKey scopes supersede tracking to one booking form of one account.
func EndTimesKey(accountID, form string) string {
	form = strings.TrimSpace(form)
	if form == "" {
		form = "default"
	}
	return accountID + keySeparator + form
}

// ForgetAccount drops supersede history for every form of accountID, e.g. on logout.
func (s *AvailabilityService) ForgetAccount(accountID string) {
	if s == nil || accountID == "" {
		return
	}
	s.tracker.ForgetPrefix(accountID + keySeparator)
}

func (s *AvailabilityService) validateScope(date, roomName string) *ValidationError {
	vErr := &ValidationError{}
	if !validDate(date) {
		vErr.Add("date", "date must be formatted as YYYY-MM-DD")
	}
	if strings.TrimSpace(roomName) == "" {
		vErr.Add("room", "room is required")
	} else if !s.policy.HasRoom(roomName) {
		vErr.Add("room", "room is not in the catalogue")
	}
	return vErr
}

// validateInterval rejects intervals the overlap formula would misjudge.
func (s *AvailabilityService) validateInterval(start, end string) *ValidationError {
	vErr := &ValidationError{}
	grid := s.resolver.Grid()
	startIdx, endIdx := grid.IndexOf(start), grid.IndexOf(end)
	if startIdx < 0 || startIdx == grid.Len()-1 {
		vErr.Add("start_time", "start time must be a bookable grid point")
	}
	if endIdx < 0 {
		vErr.Add("end_time", "end time must be a grid point")
	}
	if startIdx >= 0 && endIdx >= 0 && endIdx <= startIdx {
		vErr.Add("end_time", "end time must be after start time")
	}
	return vErr
}
