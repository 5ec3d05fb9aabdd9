package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()

	if err := c.Validate(); err != nil {
		t.Fatalf("Default() catalog invalid: %v", err)
	}

	if c.Len() != 5 {
		t.Errorf("Expected 5 instruments, got %d", c.Len())
	}

	// Catalog order is preserved
	for i, inst := range c.Instruments {
		if inst.ID != i+1 {
			t.Errorf("Instrument %d has id %d, expected %d", i, inst.ID, i+1)
		}
	}
}

func TestValidateEmptyCatalog(t *testing.T) {
	if err := New().Validate(); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog, got %v", err)
	}

	var nilCatalog *Catalog
	if err := nilCatalog.Validate(); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog for nil catalog, got %v", err)
	}
}

func TestValidateRejectsBadInstruments(t *testing.T) {
	level := Parameter{Label: "液位", Unit: "%", Key: "level", Range: Range{80, 95}}

	tests := []struct {
		name    string
		catalog *Catalog
		want    string
	}{
		{
			name:    "duplicate id",
			catalog: New(Instrument{ID: 1, Parameters: []Parameter{level}}, Instrument{ID: 1}),
			want:    "duplicate id",
		},
		{
			name:    "missing key",
			catalog: New(Instrument{ID: 1, Parameters: []Parameter{{Label: "x", Range: Range{0, 1}}}}),
			want:    "has no key",
		},
		{
			name:    "duplicate key",
			catalog: New(Instrument{ID: 1, Parameters: []Parameter{level, level}}),
			want:    "duplicate parameter key",
		},
		{
			name:    "inverted range",
			catalog: New(Instrument{ID: 1, Parameters: []Parameter{{Key: "p", Range: Range{2, 1}}}}),
			want:    "range min",
		},
		{
			name:    "bad pin",
			catalog: New(Instrument{ID: 1, PinnedStatus: "broken"}),
			want:    "invalid pinned status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFind(t *testing.T) {
	c := Default()

	inst, ok := c.Find(4)
	if !ok {
		t.Fatal("Find(4) returned false")
	}
	if inst.Category != "泵" {
		t.Errorf("Expected pump category, got %s", inst.Category)
	}

	if _, ok := c.Find(99); ok {
		t.Error("Find(99) should not find an instrument")
	}
}

func TestStatusText(t *testing.T) {
	for _, s := range Statuses {
		if s.Text() == "" {
			t.Errorf("Status %s has no display text", s)
		}
		if !s.Valid() {
			t.Errorf("Status %s should be valid", s)
		}
	}

	if Status("offline").Valid() {
		t.Error("Unknown status should not be valid")
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
instruments:
  - id: 1
    name: "Tank#1"
    category: tank
    pinnedStatus: running
    parameters:
      - label: level
        unit: "%"
        key: level
        range: [80, 95]
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if c.Len() != 1 {
		t.Fatalf("Expected 1 instrument, got %d", c.Len())
	}

	inst := c.Instruments[0]
	if inst.PinnedStatus != StatusRunning {
		t.Errorf("Expected pinned running status, got %q", inst.PinnedStatus)
	}
	if got := inst.Parameters[0].Range; got.Min != 80 || got.Max != 95 {
		t.Errorf("Expected range [80,95], got %+v", got)
	}
}

func TestParseRejectsMalformedRange(t *testing.T) {
	doc := `
instruments:
  - id: 1
    parameters:
      - key: level
        range: [80]
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("Expected error for single-value range")
	}
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	_, err := Parse([]byte("instruments: []\n"))
	if !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "instruments:\n  - id: 7\n    name: pump\n    parameters:\n      - key: speed\n        unit: rpm\n        range: [2800, 3200]\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, ok := c.Find(7); !ok {
		t.Error("Loaded catalog missing instrument 7")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestBroadcastCatalogPinsRunning(t *testing.T) {
	c := Broadcast()

	if err := c.Validate(); err != nil {
		t.Fatalf("Broadcast() catalog invalid: %v", err)
	}
	if c.Len() != 4 {
		t.Errorf("Expected 4 instruments, got %d", c.Len())
	}
	for _, inst := range c.Instruments {
		if inst.PinnedStatus != StatusRunning {
			t.Errorf("Instrument %d pinned to %q, expected running", inst.ID, inst.PinnedStatus)
		}
	}
	if _, ok := c.Find(4); ok {
		t.Error("Expected no instrument with id 4")
	}
}

func TestBuiltin(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"", 5},
		{BuiltinLab, 5},
		{BuiltinBroadcast, 4},
	}

	for _, tt := range tests {
		c, err := Builtin(tt.name)
		if err != nil {
			t.Fatalf("Builtin(%q) failed: %v", tt.name, err)
		}
		if c.Len() != tt.want {
			t.Errorf("Builtin(%q): expected %d instruments, got %d", tt.name, tt.want, c.Len())
		}
	}

	if _, err := Builtin("plant"); !errors.Is(err, ErrUnknownBuiltin) {
		t.Errorf("Expected ErrUnknownBuiltin, got %v", err)
	}
}
