package application

import (
	"slices"
	"strings"
	"time"
)

// DateLayout is the reservation date format.
const DateLayout = "2006-01-02"

// MonthLayout is the calendar month format.
const MonthLayout = "2006-01"

// DefaultRooms is the eBilik room catalogue.
var DefaultRooms = []string{
	"Makmal Komputer 1",
	"Makmal Komputer 2",
	"Makmal Komputer 3",
	"Bilik Tayangan",
	"Bilik Audio/Visual",
}

// DefaultClasses lists the class names offered on the booking form.
var DefaultClasses = []string{
	"Ibnu Sina",
	"Ibnu Rusyd",
	"Ibnu Khaldun",
	"Ibnu Zuhri",
	"Al-Khawarizmi",
	"Al-Farabi",
	"Al-Biruni",
	"Al-Haitham",
}

// BookingPolicy bounds what a booking form may contain.
type BookingPolicy struct {
	Rooms        []string
	Classes      []string
	MinFormLevel int
	MaxFormLevel int
	// WindowDays is how far ahead of today a date may be booked.
	WindowDays int
}

// DefaultBookingPolicy returns the stock catalogue with a 30 day window.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		Rooms:        slices.Clone(DefaultRooms),
		Classes:      slices.Clone(DefaultClasses),
		MinFormLevel: 1,
		MaxFormLevel: 5,
		WindowDays:   30,
	}
}

func (p BookingPolicy) withDefaults() BookingPolicy {
	def := DefaultBookingPolicy()
	if len(p.Rooms) == 0 {
		p.Rooms = def.Rooms
	}
	if len(p.Classes) == 0 {
		p.Classes = def.Classes
	}
	if p.MinFormLevel <= 0 {
		p.MinFormLevel = def.MinFormLevel
	}
	if p.MaxFormLevel < p.MinFormLevel {
		p.MaxFormLevel = def.MaxFormLevel
	}
	if p.WindowDays <= 0 {
		p.WindowDays = def.WindowDays
	}
	return p
}

// HasRoom reports whether name is in the catalogue.
func (p BookingPolicy) HasRoom(name string) bool {
	return slices.Contains(p.Rooms, name)
}

// HasClass reports whether name is an offered class.
func (p BookingPolicy) HasClass(name string) bool {
	return slices.Contains(p.Classes, name)
}

// FormLevels lists the accepted form levels in ascending order.
func (p BookingPolicy) FormLevels() []int {
	levels := make([]int, 0, p.MaxFormLevel-p.MinFormLevel+1)
	for l := p.MinFormLevel; l <= p.MaxFormLevel; l++ {
		levels = append(levels, l)
	}
	return levels
}

// DateWindow returns the first and last bookable dates relative to now.
func (p BookingPolicy) DateWindow(now time.Time) (first, last string) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.Format(DateLayout), today.AddDate(0, 0, p.WindowDays).Format(DateLayout)
}

// validDate reports whether value is a real calendar date in DateLayout.
func validDate(value string) bool {
	t, err := time.Parse(DateLayout, value)
	return err == nil && t.Format(DateLayout) == value
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
