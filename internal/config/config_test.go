package config_test

import (
	"testing"
	"time"

	"shiftcheck/internal/config"
)

func TestShiftWindow(t *testing.T) {
	cfg := config.Default()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	start, end, err := cfg.ShiftWindow("MORNING", date)
	if err != nil {
		t.Fatal(err)
	}
	if start.Hour() != 6 || end.Hour() != 14 || !end.After(start) {
		t.Fatalf("morning window: %v .. %v", start, end)
	}

	// The night shift ends on the following day.
	start, end, err = cfg.ShiftWindow("NIGHT", date)
	if err != nil {
		t.Fatal(err)
	}
	if start.Day() != 2 || end.Day() != 3 {
		t.Fatalf("night window should wrap to the next day: %v .. %v", start, end)
	}
	if !end.After(start) {
		t.Fatalf("window inverted: %v .. %v", start, end)
	}

	if _, _, err := cfg.ShiftWindow("GRAVEYARD", date); err == nil {
		t.Fatalf("unknown shift should error")
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad, err := config.FromYAML([]byte("shifts:\n  DAY:\n    start: \"25:00\"\n    end: \"13:00\"\n"))
	if err == nil {
		t.Fatalf("bad clock should be rejected, got %+v", bad)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.ToYAML()
	if err != nil {
		t.Fatal(err)
	}
	back, err := config.FromYAML(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Shifts) != len(cfg.Shifts) {
		t.Fatalf("shifts lost in round trip: %+v", back.Shifts)
	}
}
