//
//
package catalog

import (
	"errors"
	"fmt"
)

// ErrEmptyCatalog is returned when a catalog has no instruments.
var ErrEmptyCatalog = errors.New("catalog has no instruments")

// Status is the operating state reported for an instrument.
type Status string

// Instrument operating states.
const (
	StatusRunning     Status = "running"
	StatusStandby     Status = "standby"
	StatusMaintenance Status = "maintenance"
)

// Statuses lists every state an unpinned instrument can be in.
var Statuses = []Status{StatusRunning, StatusStandby, StatusMaintenance}

var statusTexts = map[Status]string{
	StatusRunning:     "正常运行",
	StatusStandby:     "待机",
	StatusMaintenance: "维护中",
}

// Text returns the display text for the status.
func (s Status) Text() string {
	return statusTexts[s]
}

// Valid reports whether s is one of the defined states.
func (s Status) Valid() bool {
	_, ok := statusTexts[s]
	return ok
}

// Range is the closed interval a parameter value is drawn from.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// UnmarshalYAML accepts the compact `[min, max]` form.
func (r *Range) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var pair []float64
	if err := unmarshal(&pair); err != nil {
		return fmt.Errorf("range must be a [min, max] sequence: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("range must have exactly 2 values, got %d", len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// Parameter describes one measured quantity of an instrument.
type Parameter struct {
	Label string `yaml:"label" json:"label"`
	Unit  string `yaml:"unit" json:"unit"`
	Key   string `yaml:"key" json:"key"`
	Range Range  `yaml:"range" json:"range"`
}

// Instrument is a static catalog entry.
type Instrument struct {
	ID       int    `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"type"`
	// PinnedStatus, when set, is reported on every snapshot instead of a random state.
	PinnedStatus Status      `yaml:"pinnedStatus,omitempty" json:"-"`
	Parameters   []Parameter `yaml:"parameters" json:"parameters"`
}

// Catalog is the ordered instrument list.
type Catalog struct {
	Instruments []Instrument `yaml:"instruments"`
}

// New creates a catalog from the given instruments. The slice is copied.
func New(instruments ...Instrument) *Catalog {
	c := &Catalog{Instruments: make([]Instrument, len(instruments))}
	copy(c.Instruments, instruments)
	return c
}

// Len returns the number of instruments.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Instruments)
}

// Find returns the instrument with the given id.
func (c *Catalog) Find(id int) (Instrument, bool) {
	if c == nil {
		return Instrument{}, false
	}
	for _, inst := range c.Instruments {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instrument{}, false
}

// Validate checks structural rules: at least one instrument, unique ids,
// unique non-empty parameter keys per instrument, ordered ranges and valid pins.
func (c *Catalog) Validate() error {
	if c.Len() == 0 {
		return ErrEmptyCatalog
	}

	seen := make(map[int]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if seen[inst.ID] {
			return fmt.Errorf("instrument %d: duplicate id %d", i, inst.ID)
		}
		seen[inst.ID] = true

		if inst.PinnedStatus != "" && !inst.PinnedStatus.Valid() {
			return fmt.Errorf("instrument %d: invalid pinned status %q", inst.ID, inst.PinnedStatus)
		}

		keys := make(map[string]bool, len(inst.Parameters))
		for _, p := range inst.Parameters {
			if p.Key == "" {
				return fmt.Errorf("instrument %d: parameter %q has no key", inst.ID, p.Label)
			}
			if keys[p.Key] {
				return fmt.Errorf("instrument %d: duplicate parameter key %q", inst.ID, p.Key)
			}
			keys[p.Key] = true

			if p.Range.Min > p.Range.Max {
				return fmt.Errorf("instrument %d: parameter %s range min %v > max %v",
					inst.ID, p.Key, p.Range.Min, p.Range.Max)
			}
		}
	}

	return nil
}
