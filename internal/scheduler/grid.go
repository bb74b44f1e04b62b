package scheduler

import (
	"fmt"
	"slices"
)

// GridConfig describes the operating day the slot grid covers.
type GridConfig struct {
	OpeningHour        int
	ClosingHour        int
	GranularityMinutes int
}

// DefaultGridConfig returns the 08:00 to 18:00 half-hour grid.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		OpeningHour:        8,
		ClosingHour:        18,
		GranularityMinutes: 30,
	}
}

// Validate reports configuration values that cannot produce a grid.
func (c GridConfig) Validate() error {
	if c.OpeningHour < 0 || c.OpeningHour > 23 {
		return fmt.Errorf("scheduler: opening hour %d out of range", c.OpeningHour)
	}
	if c.ClosingHour < 0 || c.ClosingHour > 23 {
		return fmt.Errorf("scheduler: closing hour %d out of range", c.ClosingHour)
	}
	if c.ClosingHour <= c.OpeningHour {
		return fmt.Errorf("scheduler: closing hour %d must be after opening hour %d", c.ClosingHour, c.OpeningHour)
	}
	if c.GranularityMinutes <= 0 || 60%c.GranularityMinutes != 0 {
		return fmt.Errorf("scheduler: granularity %d must divide an hour", c.GranularityMinutes)
	}
	return nil
}

// Grid is the materialized, ordered catalogue of bookable time points for one day.
// The zero value is not usable; construct with NewGrid or DefaultGrid.
type Grid struct {
	slots []string
	index map[string]int
}

// NewGrid validates the configuration and materializes the grid.
func NewGrid(cfg GridConfig) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slots := make([]string, 0, (cfg.ClosingHour-cfg.OpeningHour)*60/cfg.GranularityMinutes+1)
	for minutes := cfg.OpeningHour * 60; minutes <= cfg.ClosingHour*60; minutes += cfg.GranularityMinutes {
		slots = append(slots, FormatClock(minutes))
	}

	index := make(map[string]int, len(slots))
	for i, slot := range slots {
		index[slot] = i
	}

	return &Grid{slots: slots, index: index}, nil
}

// DefaultGrid returns the grid for DefaultGridConfig.
func DefaultGrid() *Grid {
	grid, err := NewGrid(DefaultGridConfig())
	if err != nil {
		panic(err)
	}
	return grid
}

// GenerateTimeSlots returns every grid point from opening to closing time inclusive.
// Each call returns a fresh copy so callers may modify the result.
func (g *Grid) GenerateTimeSlots() []string {
	return slices.Clone(g.slots)
}

// StartTimes returns the grid without its closing point; a booking cannot start at closing time.
func (g *Grid) StartTimes() []string {
	if len(g.slots) == 0 {
		return nil
	}
	return slices.Clone(g.slots[:len(g.slots)-1])
}

// IndexOf returns the position of t in the grid or -1.
func (g *Grid) IndexOf(t string) int {
	if i, ok := g.index[t]; ok {
		return i
	}
	return -1
}

// Contains reports whether t is a grid point.
func (g *Grid) Contains(t string) bool {
	_, ok := g.index[t]
	return ok
}

// Len returns the number of grid points.
func (g *Grid) Len() int {
	return len(g.slots)
}

// FormatClock renders minutes after midnight as a zero-padded "HH:MM" string.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseClock parses a zero-padded "HH:MM" string into minutes after midnight.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("scheduler: %q is not in HH:MM form", value)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if value[i] < '0' || value[i] > '9' {
			return 0, fmt.Errorf("scheduler: %q is not in HH:MM form", value)
		}
	}
	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[3]-'0')*10 + int(value[4]-'0')
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("scheduler: %q is not a valid time of day", value)
	}
	return hour*60 + minute, nil
}
