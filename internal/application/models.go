package application

import (
	"time"

	"github.com/example/ebilik/internal/persistence"
	"github.com/example/ebilik/internal/scheduler"
)

// Role discriminates the account variants.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Staff reports whether r belongs to the admin roster.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User types accepted at registration.
const (
	UserTypeTeacher = "teacher"
	UserTypeStaff   = "staff"
	UserTypeStudent = "student"
)

// Account is one of RegularUser, Admin or SuperAdmin.
type Account interface {
	AccountID() string
	AccountRole() Role
	DisplayName() string
	ContactEmail() string
	isAccount()
}

// RegularUser is a self-registered account that books rooms.
type RegularUser struct {
	ID        string
	FullName  string
	Email     string
	UserType  string
	CreatedAt time.Time
}

// Admin moderates reservations.
type Admin struct {
	ID        string
	FullName  string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// SuperAdmin additionally manages the roster and exports data.
type SuperAdmin struct {
	ID        string
	FullName  string
	Email     string
	Active    bool
	CreatedAt time.Time
}

func (u RegularUser) AccountID() string    { return u.ID }
func (u RegularUser) AccountRole() Role    { return RoleUser }
func (u RegularUser) DisplayName() string  { return u.FullName }
func (u RegularUser) ContactEmail() string { return u.Email }
func (RegularUser) isAccount()             {}

func (a Admin) AccountID() string    { return a.ID }
func (a Admin) AccountRole() Role    { return RoleAdmin }
func (a Admin) DisplayName() string  { return a.FullName }
func (a Admin) ContactEmail() string { return a.Email }
func (Admin) isAccount()             {}

func (a SuperAdmin) AccountID() string    { return a.ID }
func (a SuperAdmin) AccountRole() Role    { return RoleSuperAdmin }
func (a SuperAdmin) DisplayName() string  { return a.FullName }
func (a SuperAdmin) ContactEmail() string { return a.Email }
func (SuperAdmin) isAccount()             {}

// Principal represents the authenticated account invoking a service method.
type Principal struct {
	AccountID string
	Role      Role
	Name      string
	Email     string
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool {
	return p.AccountID != "" && p.Role.Valid()
}

// IsAdmin reports whether the principal may moderate reservations.
func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role.Staff()
}

// IsSuperAdmin reports whether the principal may manage the roster.
func (p Principal) IsSuperAdmin() bool {
	return p.Authenticated() && p.Role == RoleSuperAdmin
}

// Reservation is a booking of one room for one interval on one date.
type Reservation struct {
	ID        string
	UserID    string
	UserName  string
	Email     string
	RoomName  string
	Date      string
	StartTime string
	EndTime   string
	Purpose   string
	FormLevel int
	ClassName string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReservationInput captures caller provided booking fields.
type ReservationInput struct {
	Date      string
	StartTime string
	EndTime   string
	RoomName  string
	Purpose   string
	FormLevel int
	ClassName string
}

// CreateReservationParams wraps the data required to book a room.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// ReservationStats counts reservations per status.
type ReservationStats struct {
	Total     int
	Confirmed int
	Pending   int
	Cancelled int
}

// SortOrder selects the dashboard ordering.
type SortOrder string

const (
	// SortByDate orders by date then start time, ascending.
	SortByDate SortOrder = "date"
	// SortByCreated orders by creation time, newest first.
	SortByCreated SortOrder = "created"
)

// StatusAll disables status filtering on dashboards.
const StatusAll = "all"

// DashboardQuery filters and orders a reservation listing.
type DashboardQuery struct {
	Search string
	Status string
	Sort   SortOrder
}

// ReservationListing is a filtered set of reservations plus stats over the unfiltered set.
type ReservationListing struct {
	Reservations []Reservation
	Stats        ReservationStats
}

// CalendarDay marks how many non-cancelled reservations fall on a date.
type CalendarDay struct {
	Date   string
	Mine   int
	Others int
}

// DashboardStats summarises the whole installation for super admins.
type DashboardStats struct {
	Reservations ReservationStats
	Admins       int
	Users        int
}

// AvailabilityQuery names one candidate interval.
type AvailabilityQuery struct {
	Date      string
	RoomName  string
	StartTime string
	EndTime   string
}

// EndTimesQuery asks for the end times reachable from a start time. Key identifies the
// form instance being edited and Seq is the caller's request counter for that key; zero
// lets the service assign one.
type EndTimesQuery struct {
	Key       string
	Date      string
	RoomName  string
	StartTime string
	Seq       uint64
}

// EndTimesResult carries the options for an EndTimesQuery. Stale results carry no options.
type EndTimesResult struct {
	EndTimes []string
	Seq      uint64
	Stale    bool
}

// Session represents an authenticated session issued to an account.
type Session struct {
	ID        string
	AccountID string
	Role      Role
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// LoginParams captures the data required to sign in.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult captures the outcome of a successful login.
type LoginResult struct {
	Account Account
	Session Session
}

// RegisterUserParams captures self-registration input.
type RegisterUserParams struct {
	FullName string
	Email    string
	Password string
	UserType string
}

// AddAdminParams captures a roster addition by a super admin.
type AddAdminParams struct {
	Principal Principal
	FullName  string
	Email     string
	Password  string
	Role      Role
}

func reservationFromRecord(r persistence.Reservation) Reservation {
	return Reservation{
		ID:        r.ID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Email:     r.Email,
		RoomName:  r.RoomName,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Purpose:   r.Purpose,
		FormLevel: r.FormLevel,
		ClassName: r.ClassName,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r Reservation) record() persistence.Reservation {
	return persistence.Reservation{
		ID:        r.ID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Email:     r.Email,
		RoomName:  r.RoomName,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Purpose:   r.Purpose,
		FormLevel: r.FormLevel,
		ClassName: r.ClassName,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// SchedulerReservation projects a stored reservation onto the fields the availability core reads.
func SchedulerReservation(r persistence.Reservation) scheduler.Reservation {
	return scheduler.Reservation{
		ID:        r.ID,
		Date:      r.Date,
		RoomName:  r.RoomName,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Status:    r.Status,
	}
}

func userFromRecord(u persistence.User) RegularUser {
	return RegularUser{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		UserType:  u.UserType,
		CreatedAt: u.CreatedAt,
	}
}

func adminFromRecord(a persistence.AdminUser) Account {
	if Role(a.Role) == RoleSuperAdmin {
		return SuperAdmin{ID: a.ID, FullName: a.FullName, Email: a.Email, Active: a.Active, CreatedAt: a.CreatedAt}
	}
	return Admin{ID: a.ID, FullName: a.FullName, Email: a.Email, Active: a.Active, CreatedAt: a.CreatedAt}
}

func sessionFromRecord(s persistence.Session) Session {
	return Session{
		ID:        s.ID,
		AccountID: s.AccountID,
		Role:      Role(s.Role),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		RevokedAt: s.RevokedAt,
	}
}
