package scheduler

// Status values a reservation may carry. Only StatusCancelled changes availability.
const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// Reservation is the slice of a stored booking the availability engine reads.
// Every other attribute is opaque payload owned by the store.
type Reservation struct {
	ID        string
	Date      string
	RoomName  string
	StartTime string
	EndTime   string
	Status    string
}

// Blocks reports whether the reservation participates in conflict checks for the scope.
func (r Reservation) Blocks(date, roomName string) bool {
	return r.Date == date && r.RoomName == roomName && r.Status != StatusCancelled
}

// Overlaps applies the half-open interval test: [start, end) and [otherStart, otherEnd)
// overlap iff start < otherEnd && end > otherStart. Times are "HH:MM" strings, so
// lexicographic comparison is chronological. Degenerate intervals are not guarded.
func Overlaps(start, end, otherStart, otherEnd string) bool {
	return start < otherEnd && end > otherStart
}

// Conflict names an existing reservation that collides with a candidate interval.
type Conflict struct {
	WithReservationID string
	RoomName          string
	StartTime         string
	EndTime           string
}

// DetectConflicts identifies every blocking reservation that overlaps the candidate.
func DetectConflicts(existing []Reservation, candidate Reservation) []Conflict {
	var conflicts []Conflict
	for _, r := range existing {
		if r.ID != "" && r.ID == candidate.ID {
			continue
		}
		if !r.Blocks(candidate.Date, candidate.RoomName) {
			continue
		}
		if Overlaps(candidate.StartTime, candidate.EndTime, r.StartTime, r.EndTime) {
			conflicts = append(conflicts, Conflict{
				WithReservationID: r.ID,
				RoomName:          r.RoomName,
				StartTime:         r.StartTime,
				EndTime:           r.EndTime,
			})
		}
	}
	return conflicts
}

// scope keeps the blocking reservations for one (date, room) pair.
func scope(all []Reservation, date, roomName string) []Reservation {
	scoped := make([]Reservation, 0, len(all))
	for _, r := range all {
		if r.Blocks(date, roomName) {
			scoped = append(scoped, r)
		}
	}
	return scoped
}

func intervalFree(scoped []Reservation, start, end string) bool {
	for _, r := range scoped {
		if Overlaps(start, end, r.StartTime, r.EndTime) {
			return false
		}
	}
	return true
}
