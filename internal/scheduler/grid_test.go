package scheduler

import (
	"slices"
	"testing"
)

func TestDefaultGrid_GenerateTimeSlots(t *testing.T) {
	grid := DefaultGrid()
	slots := grid.GenerateTimeSlots()

	if len(slots) != 21 {
		t.Fatalf("expected 21 slots, got %d", len(slots))
	}
	if slots[0] != "08:00" {
		t.Fatalf("expected first slot 08:00, got %s", slots[0])
	}
	if slots[len(slots)-1] != "18:00" {
		t.Fatalf("expected last slot 18:00, got %s", slots[len(slots)-1])
	}
	if slices.Contains(slots, "18:30") {
		t.Fatalf("grid must not extend past closing time: %v", slots)
	}

	t.Run("is deterministic", func(t *testing.T) {
		again := grid.GenerateTimeSlots()
		if !slices.Equal(slots, again) {
			t.Fatalf("expected identical grids, got %v and %v", slots, again)
		}
	})

	t.Run("is strictly increasing", func(t *testing.T) {
		for i := 0; i+1 < len(slots); i++ {
			if slots[i] >= slots[i+1] {
				t.Fatalf("slots %s and %s out of order", slots[i], slots[i+1])
			}
		}
	})

	t.Run("returns a copy", func(t *testing.T) {
		slots[0] = "00:00"
		if grid.GenerateTimeSlots()[0] != "08:00" {
			t.Fatal("mutating the result must not affect the grid")
		}
	})
}

func TestGrid_StartTimes(t *testing.T) {
	starts := DefaultGrid().StartTimes()
	if len(starts) != 20 {
		t.Fatalf("expected 20 start times, got %d", len(starts))
	}
	if starts[len(starts)-1] != "17:30" {
		t.Fatalf("expected last start time 17:30, got %s", starts[len(starts)-1])
	}
}

func TestGrid_IndexOf(t *testing.T) {
	grid := DefaultGrid()

	tests := []struct {
		time string
		want int
	}{
		{"08:00", 0},
		{"08:30", 1},
		{"12:00", 8},
		{"18:00", 20},
		{"07:30", -1},
		{"08:15", -1},
		{"8:00", -1},
	}
	for _, tt := range tests {
		if got := grid.IndexOf(tt.time); got != tt.want {
			t.Errorf("IndexOf(%q) = %d, want %d", tt.time, got, tt.want)
		}
		if got := grid.Contains(tt.time); got != (tt.want >= 0) {
			t.Errorf("Contains(%q) = %v", tt.time, got)
		}
	}
}

func TestNewGrid(t *testing.T) {
	t.Run("custom granularity", func(t *testing.T) {
		grid, err := NewGrid(GridConfig{OpeningHour: 9, ClosingHour: 11, GranularityMinutes: 15})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"09:00", "09:15", "09:30", "09:45", "10:00", "10:15", "10:30", "10:45", "11:00"}
		if got := grid.GenerateTimeSlots(); !slices.Equal(got, want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		invalid := []GridConfig{
			{OpeningHour: 18, ClosingHour: 8, GranularityMinutes: 30},
			{OpeningHour: 8, ClosingHour: 8, GranularityMinutes: 30},
			{OpeningHour: -1, ClosingHour: 8, GranularityMinutes: 30},
			{OpeningHour: 8, ClosingHour: 24, GranularityMinutes: 30},
			{OpeningHour: 8, ClosingHour: 18, GranularityMinutes: 0},
			{OpeningHour: 8, ClosingHour: 18, GranularityMinutes: 25},
		}
		for _, cfg := range invalid {
			if _, err := NewGrid(cfg); err == nil {
				t.Errorf("expected error for %+v", cfg)
			}
		}
	})
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "08:30", want: 510},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "8:30", wantErr: true},
		{in: "+8:30", wantErr: true},
		{in: "08-30", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if FormatClock(got) != tt.in {
			t.Errorf("FormatClock(%d) = %q, want %q", got, FormatClock(got), tt.in)
		}
	}
}
