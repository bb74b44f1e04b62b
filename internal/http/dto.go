package http

import (
	"time"

	"github.com/example/ebilik/internal/application"
)

type accountResponse struct {
	Account accountDTO `json:"account"`
}

type accountDTO struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	UserType  string `json:"user_type,omitempty"`
	Active    *bool  `json:"active,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toAccountDTO(account application.Account) accountDTO {
	dto := accountDTO{
		ID:       account.AccountID(),
		Role:     string(account.AccountRole()),
		FullName: account.DisplayName(),
		Email:    account.ContactEmail(),
	}
	switch a := account.(type) {
	case application.RegularUser:
		dto.UserType = a.UserType
		dto.CreatedAt = formatTime(a.CreatedAt)
	case application.Admin:
		dto.Active = &a.Active
		dto.CreatedAt = formatTime(a.CreatedAt)
	case application.SuperAdmin:
		dto.Active = &a.Active
		dto.CreatedAt = formatTime(a.CreatedAt)
	}
	return dto
}

type reservationDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	RoomName  string `json:"room"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Purpose   string `json:"purpose"`
	FormLevel int    `json:"form_level"`
	ClassName string `json:"class_name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toReservationDTO(r application.Reservation) reservationDTO {
	return reservationDTO{
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
		CreatedAt: formatTime(r.CreatedAt),
		UpdatedAt: formatTime(r.UpdatedAt),
	}
}

func toReservationDTOs(list []application.Reservation) []reservationDTO {
	out := make([]reservationDTO, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationDTO(r))
	}
	return out
}

type statsDTO struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
}

func toStatsDTO(s application.ReservationStats) statsDTO {
	return statsDTO{Total: s.Total, Confirmed: s.Confirmed, Pending: s.Pending, Cancelled: s.Cancelled}
}

type listingResponse struct {
	Reservations []reservationDTO `json:"reservations"`
	Stats        statsDTO         `json:"stats"`
}

func toListingResponse(l application.ReservationListing) listingResponse {
	return listingResponse{Reservations: toReservationDTOs(l.Reservations), Stats: toStatsDTO(l.Stats)}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type slotsResponse struct {
	Slots []string `json:"slots"`
}

type availabilityResponse struct {
	Date      string `json:"date"`
	RoomName  string `json:"room"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
}

type endTimesResponse struct {
	StartTime string   `json:"start_time"`
	EndTimes  []string `json:"end_times"`
	Seq       uint64   `json:"seq"`
	Stale     bool     `json:"stale"`
}

type slotStatusDTO struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type dayResponse struct {
	Date     string          `json:"date"`
	RoomName string          `json:"room"`
	Slots    []slotStatusDTO `json:"slots"`
}

type roomsResponse struct {
	Rooms []string `json:"rooms"`
}

type classesResponse struct {
	FormLevels []int    `json:"form_levels"`
	Classes    []string `json:"classes"`
}
