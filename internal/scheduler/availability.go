package scheduler

import (
	"context"
	"errors"
)

// ReservationLister is the read side of the reservation store the resolver consults.
// Implementations return the full reservation set; filtering happens in the resolver.
type ReservationLister interface {
	ListReservations(ctx context.Context) ([]Reservation, error)
}

// ReservationListerFunc adapts a function to ReservationLister.
type ReservationListerFunc func(ctx context.Context) ([]Reservation, error)

// ListReservations calls f(ctx).
func (f ReservationListerFunc) ListReservations(ctx context.Context) ([]Reservation, error) {
	return f(ctx)
}

// SlotStatus pairs a start time with whether any end time can follow it.
type SlotStatus struct {
	Time      string
	Available bool
}

// Resolver answers availability questions against a grid and a reservation store.
// It holds no state between calls.
type Resolver struct {
	grid  *Grid
	store ReservationLister
}

// NewResolver wires a resolver to its grid and store.
func NewResolver(grid *Grid, store ReservationLister) (*Resolver, error) {
	if grid == nil {
		return nil, errors.New("scheduler: grid is required")
	}
	if store == nil {
		return nil, errors.New("scheduler: reservation store is required")
	}
	return &Resolver{grid: grid, store: store}, nil
}

// Grid returns the grid the resolver probes.
func (r *Resolver) Grid() *Grid {
	return r.grid
}

// IsTimeSlotAvailable reports whether [startTime, endTime) is free in the room on the date.
// Store errors are returned unchanged.
func (r *Resolver) IsTimeSlotAvailable(ctx context.Context, date, startTime, endTime, roomName string) (bool, error) {
	all, err := r.store.ListReservations(ctx)
	if err != nil {
		return false, err
	}
	return intervalFree(scope(all, date, roomName), startTime, endTime), nil
}

// AvailableEndTimes returns the contiguous run of grid points after startTime that can end
// a booking starting at startTime. The scan stops at the first conflicting end time.
// A startTime outside the grid yields an empty result without touching the store.
func (r *Resolver) AvailableEndTimes(ctx context.Context, date, startTime, roomName string) ([]string, error) {
	idx := r.grid.IndexOf(startTime)
	if idx < 0 {
		return []string{}, nil
	}

	all, err := r.store.ListReservations(ctx)
	if err != nil {
		return nil, err
	}
	return endTimesFrom(r.grid.slots, idx, scope(all, date, roomName)), nil
}

// DaySlots marks every start time of the day with whether at least one end time follows it.
func (r *Resolver) DaySlots(ctx context.Context, date, roomName string) ([]SlotStatus, error) {
	all, err := r.store.ListReservations(ctx)
	if err != nil {
		return nil, err
	}
	scoped := scope(all, date, roomName)

	starts := r.grid.slots[:len(r.grid.slots)-1]
	statuses := make([]SlotStatus, 0, len(starts))
	for i, start := range starts {
		next := r.grid.slots[i+1]
		statuses = append(statuses, SlotStatus{
			Time:      start,
			Available: intervalFree(scoped, start, next),
		})
	}
	return statuses, nil
}

// endTimesFrom assumes scoped already holds only blocking reservations for one room/date.
func endTimesFrom(slots []string, idx int, scoped []Reservation) []string {
	start := slots[idx]
	ends := make([]string, 0, len(slots)-idx-1)
	for _, candidate := range slots[idx+1:] {
		if !intervalFree(scoped, start, candidate) {
			break
		}
		ends = append(ends, candidate)
	}
	return ends
}
