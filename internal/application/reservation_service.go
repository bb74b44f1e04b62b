package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/scheduler"
)

// ReservationService books, moderates and reports on reservations.
type ReservationService struct {
	reservations persistence.ReservationRepository
	availability *AvailabilityService
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewReservationService constructs a ReservationService.
func NewReservationService(reservations persistence.ReservationRepository, availability *AvailabilityService, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		availability: availability,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

func (s *ReservationService) ready() error {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil || s.availability == nil {
		return fmt.Errorf("ReservationService is not configured")
	}
	return nil
}

// CreateReservation validates the booking form, re-checks availability and stores a confirmed
// reservation on behalf of the principal. A booking that lands between the re-check and the
// insert is not detected.
func (s *ReservationService) CreateReservation(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if err = s.ready(); err != nil {
		return
	}

	in := params.Input
	logger := s.loggerWith(ctx, "CreateReservation",
		"principal_id", params.Principal.AccountID,
		"room", in.RoomName,
		"date", in.Date,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	if !params.Principal.Authenticated() {
		err = ErrUnauthorized
		return
	}

	in.RoomName = strings.TrimSpace(in.RoomName)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.ClassName = strings.TrimSpace(in.ClassName)
	if vErr := s.validateInput(in); vErr.HasErrors() {
		err = vErr
		return
	}

	var available bool
	available, err = s.availability.resolver.IsTimeSlotAvailable(ctx, in.Date, in.StartTime, in.EndTime, in.RoomName)
	if err != nil {
		return
	}

	now := s.now()
	reservation = Reservation{
		ID:        s.idGenerator(),
		UserID:    params.Principal.AccountID,
		UserName:  params.Principal.Name,
		Email:     params.Principal.Email,
		RoomName:  in.RoomName,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Purpose:   in.Purpose,
		FormLevel: in.FormLevel,
		ClassName: in.ClassName,
		Status:    scheduler.StatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if !available {
		err = s.explainConflict(ctx, reservation)
		reservation = Reservation{}
		return
	}

	if err = s.reservations.CreateReservation(ctx, reservation.record()); err != nil {
		err = mapRepoError(err)
		reservation = Reservation{}
		return
	}
	return
}

func (s *ReservationService) explainConflict(ctx context.Context, candidate Reservation) error {
	conflicts, err := s.conflictsFor(ctx, candidate.record())
	if err != nil {
		return err
	}
	return &SlotUnavailableError{Conflicts: conflicts}
}

// conflictsFor lists the non-cancelled reservations that candidate would overlap, ignoring
// candidate itself.
func (s *ReservationService) conflictsFor(ctx context.Context, candidate persistence.Reservation) ([]scheduler.Conflict, error) {
	all, err := s.reservations.ListReservations(ctx)
	if err != nil {
		return nil, err
	}
	existing := make([]scheduler.Reservation, 0, len(all))
	for _, r := range all {
		existing = append(existing, SchedulerReservation(r))
	}
	return scheduler.DetectConflicts(existing, SchedulerReservation(candidate)), nil
}

func (s *ReservationService) validateInput(in ReservationInput) *ValidationError {
	policy := s.availability.policy
	vErr := s.availability.validateScope(in.Date, in.RoomName)
	if first, last := policy.DateWindow(s.now()); validDate(in.Date) && (in.Date < first || in.Date > last) {
		vErr.Add("date", fmt.Sprintf("date must be between %s and %s", first, last))
	}
	vErr.merge(s.availability.validateInterval(in.StartTime, in.EndTime))
	if in.Purpose == "" {
		vErr.Add("purpose", "purpose is required")
	}
	if in.FormLevel < policy.MinFormLevel || in.FormLevel > policy.MaxFormLevel {
		vErr.Add("form_level", fmt.Sprintf("form level must be between %d and %d", policy.MinFormLevel, policy.MaxFormLevel))
	}
	if !policy.HasClass(in.ClassName) {
		vErr.Add("class_name", "class is not offered")
	}
	return vErr
}

// CancelReservation lets the owner withdraw their own reservation. Cancelling twice is a no-op.
func (s *ReservationService) CancelReservation(ctx context.Context, principal Principal, id string) (reservation Reservation, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "CancelReservation",
		"principal_id", principal.AccountID,
		"reservation_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	if !principal.Authenticated() {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Reservation
	existing, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if existing.UserID != principal.AccountID {
		err = ErrUnauthorized
		return
	}

	reservation, err = s.setStatus(ctx, existing, scheduler.StatusCancelled)
	return
}

// UpdateStatus lets an admin confirm, park or cancel any reservation.
func (s *ReservationService) UpdateStatus(ctx context.Context, principal Principal, id, status string) (reservation Reservation, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateStatus",
		"principal_id", principal.AccountID,
		"reservation_id", id,
		"status", status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update reservation status", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation status updated")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if !validStatus(status) {
		err = &ValidationError{FieldErrors: map[string]string{"status": "status must be confirmed, pending or cancelled"}}
		return
	}

	var existing persistence.Reservation
	existing, err = s.reservations.GetReservation(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	reservation, err = s.setStatus(ctx, existing, status)
	return
}

func (s *ReservationService) setStatus(ctx context.Context, existing persistence.Reservation, status string) (Reservation, error) {
	if existing.Status == status {
		return reservationFromRecord(existing), nil
	}
	if existing.Status == scheduler.StatusCancelled {
		conflicts, err := s.conflictsFor(ctx, existing)
		if err != nil {
			return Reservation{}, err
		}
		if len(conflicts) > 0 {
			return Reservation{}, &SlotUnavailableError{Conflicts: conflicts}
		}
	}
	existing.Status = status
	existing.UpdatedAt = s.now()
	if err := s.reservations.UpdateReservation(ctx, existing); err != nil {
		return Reservation{}, mapRepoError(err)
	}
	return reservationFromRecord(existing), nil
}

// DeleteReservation removes a reservation outright. Admins only.
func (s *ReservationService) DeleteReservation(ctx context.Context, principal Principal, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "DeleteReservation",
		"principal_id", principal.AccountID,
		"reservation_id", id,
	)

	if err := s.reservations.DeleteReservation(ctx, id); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "reservation deleted")
	return nil
}

// ListMine returns the principal's reservations, newest first, with stats over them.
func (s *ReservationService) ListMine(ctx context.Context, principal Principal) (listing ReservationListing, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if !principal.Authenticated() {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "ListMine", "principal_id", principal.AccountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list reservations", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var all []Reservation
	if all, err = s.loadAll(ctx); err != nil {
		return
	}

	mine := make([]Reservation, 0)
	for _, r := range all {
		if r.UserID == principal.AccountID {
			mine = append(mine, r)
		}
	}
	sortReservations(mine, SortByCreated)
	listing = ReservationListing{Reservations: mine, Stats: countStatuses(mine)}
	return
}

// Calendar marks every date of month ("YYYY-MM") that carries non-cancelled reservations,
// splitting the principal's own from everyone else's.
func (s *ReservationService) Calendar(ctx context.Context, principal Principal, month string) (days []CalendarDay, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if !principal.Authenticated() {
		err = ErrUnauthorized
		return
	}
	if t, perr := time.Parse(MonthLayout, month); perr != nil || t.Format(MonthLayout) != month {
		err = &ValidationError{FieldErrors: map[string]string{"month": "month must be formatted as YYYY-MM"}}
		return
	}

	var all []Reservation
	if all, err = s.loadAll(ctx); err != nil {
		return
	}

	byDate := make(map[string]*CalendarDay)
	prefix := month + "-"
	for _, r := range all {
		if r.Status == scheduler.StatusCancelled || !strings.HasPrefix(r.Date, prefix) {
			continue
		}
		day, ok := byDate[r.Date]
		if !ok {
			day = &CalendarDay{Date: r.Date}
			byDate[r.Date] = day
		}
		if r.UserID == principal.AccountID {
			day.Mine++
		} else {
			day.Others++
		}
	}

	days = make([]CalendarDay, 0, len(byDate))
	for _, day := range byDate {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return
}

// Dashboard lists every reservation matching q for admins. Stats cover the unfiltered set.
func (s *ReservationService) Dashboard(ctx context.Context, principal Principal, q DashboardQuery) (listing ReservationListing, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "Dashboard",
		"principal_id", principal.AccountID,
		"status", q.Status,
		"sort", string(q.Sort),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build dashboard", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	status := strings.TrimSpace(q.Status)
	if status == "" {
		status = StatusAll
	}
	if status != StatusAll && !validStatus(status) {
		err = &ValidationError{FieldErrors: map[string]string{"status": "status must be all, confirmed, pending or cancelled"}}
		return
	}
	order := q.Sort
	if order == "" {
		order = SortByDate
	}
	if order != SortByDate && order != SortByCreated {
		err = &ValidationError{FieldErrors: map[string]string{"sort": "sort must be date or created"}}
		return
	}

	var all []Reservation
	if all, err = s.loadAll(ctx); err != nil {
		return
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := make([]Reservation, 0, len(all))
	for _, r := range all {
		if status != StatusAll && r.Status != status {
			continue
		}
		if needle != "" && !matchesSearch(r, needle) {
			continue
		}
		filtered = append(filtered, r)
	}
	sortReservations(filtered, order)

	listing = ReservationListing{Reservations: filtered, Stats: countStatuses(all)}
	return
}

// Stats counts every reservation by status.
func (s *ReservationService) Stats(ctx context.Context) (ReservationStats, error) {
	if err := s.ready(); err != nil {
		return ReservationStats{}, err
	}
	all, err := s.loadAll(ctx)
	if err != nil {
		return ReservationStats{}, err
	}
	return countStatuses(all), nil
}

func (s *ReservationService) loadAll(ctx context.Context) ([]Reservation, error) {
	records, err := s.reservations.ListReservations(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	out := make([]Reservation, 0, len(records))
	for _, r := range records {
		out = append(out, reservationFromRecord(r))
	}
	return out, nil
}

func validStatus(status string) bool {
	switch status {
	case scheduler.StatusConfirmed, scheduler.StatusPending, scheduler.StatusCancelled:
		return true
	}
	return false
}

func matchesSearch(r Reservation, needle string) bool {
	for _, field := range []string{r.UserName, r.Email, r.RoomName, r.Purpose} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func sortReservations(list []Reservation, order SortOrder) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if order == SortByDate {
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			if a.StartTime != b.StartTime {
				return a.StartTime < b.StartTime
			}
			return a.ID < b.ID
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func countStatuses(list []Reservation) ReservationStats {
	stats := ReservationStats{Total: len(list)}
	for _, r := range list {
		switch r.Status {
		case scheduler.StatusConfirmed:
			stats.Confirmed++
		case scheduler.StatusPending:
			stats.Pending++
		case scheduler.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}
