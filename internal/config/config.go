package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models shiftcheck.yml.
type Config struct {
	Shifts map[string]Shift `yaml:"shifts"`
	Notify struct {
		// Roles whose users receive skip/failure notifications.
		Roles []string `yaml:"roles"`
	} `yaml:"notify"`
}

// Shift is a named working window. Start and End are HH:MM clock times;
// a window whose End is before its Start wraps to the next day.
type Shift struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

const fileName = "shiftcheck.yml"

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, fileName)
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with sc config import --file <path>", Path(workspace))
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates a config document.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

// Default returns the built-in shift catalog and notification audience.
func Default() *Config {
	cfg := &Config{
		Shifts: map[string]Shift{
			"MORNING":   {Start: "06:00", End: "14:00"},
			"AFTERNOON": {Start: "14:00", End: "22:00"},
			"NIGHT":     {Start: "22:00", End: "06:00"},
		},
	}
	cfg.Notify.Roles = []string{"ADMIN", "MANAGER"}
	return cfg
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Shifts) == 0 {
		return fmt.Errorf("config.shifts is required")
	}
	for name, s := range c.Shifts {
		if name == "" {
			return fmt.Errorf("config.shifts contains empty shift name")
		}
		if _, err := parseClock(s.Start); err != nil {
			return fmt.Errorf("shift %s start: %w", name, err)
		}
		if _, err := parseClock(s.End); err != nil {
			return fmt.Errorf("shift %s end: %w", name, err)
		}
	}
	for _, role := range c.Notify.Roles {
		if role == "" {
			return fmt.Errorf("config.notify.roles contains empty role")
		}
	}
	return nil
}

// ShiftNames lists configured shift names in stable order.
func (c *Config) ShiftNames() []string {
	names := make([]string, 0, len(c.Shifts))
	for name := range c.Shifts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShiftWindow resolves the UTC start and end of a shift on a given date.
// Night-style shifts whose end time precedes their start wrap to the next day.
func (c *Config) ShiftWindow(shift string, date time.Time) (start, end time.Time, err error) {
	s, ok := c.Shifts[shift]
	if !ok {
		return start, end, fmt.Errorf("unknown shift %s", shift)
	}
	startClock, err := parseClock(s.Start)
	if err != nil {
		return start, end, err
	}
	endClock, err := parseClock(s.End)
	if err != nil {
		return start, end, err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start = day.Add(startClock)
	end = day.Add(endClock)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", v)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ToYAML renders the config for export.
func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}
