//
//
package snapshot

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lng-monitor/relay/internal/catalog"
)

// Value is one parameter reading.
type Value struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Key   string  `json:"key"`
}

// Equipment is the state of one instrument within a snapshot.
type Equipment struct {
	ID         int            `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Status     catalog.Status `json:"status"`
	StatusText string         `json:"statusText"`
	LastUpdate time.Time      `json:"lastUpdate"`
	Parameters []Value        `json:"parameters"`
}

// Snapshot holds one entry per catalog instrument, in catalog order.
type Snapshot []Equipment

// precisionByUnit maps unit classes to the number of decimals kept.
var precisionByUnit = map[string]int{
	"rpm": 0,
	"%":   1,
	"A":   1,
	"℃":   1,
	"°C":  1,
	"MPa": 3,
	"kPa": 3,
	"Pa":  3,
	"bar": 3,
}

const defaultPrecision = 3

// Precision returns the decimal precision for a unit.
func Precision(unit string) int {
	if p, ok := precisionByUnit[unit]; ok {
		return p
	}
	return defaultPrecision
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// Generate builds a snapshot for the catalog using rng, stamped with now.
func Generate(c *catalog.Catalog, rng *rand.Rand, now time.Time) Snapshot {
	snap := make(Snapshot, 0, c.Len())
	if c == nil {
		return snap
	}

	for _, inst := range c.Instruments {
		status := inst.PinnedStatus
		if status == "" {
			status = catalog.Statuses[rng.IntN(len(catalog.Statuses))]
		}

		values := make([]Value, len(inst.Parameters))
		for i, p := range inst.Parameters {
			values[i] = Value{
				Label: p.Label,
				Value: draw(rng, p.Range, Precision(p.Unit)),
				Unit:  p.Unit,
				Key:   p.Key,
			}
		}

		snap = append(snap, Equipment{
			ID:         inst.ID,
			Name:       inst.Name,
			Type:       inst.Category,
			Status:     status,
			StatusText: status.Text(),
			LastUpdate: now,
			Parameters: values,
		})
	}

	return snap
}

// draw picks a uniform value in r, rounds it and keeps it inside r.
func draw(rng *rand.Rand, r catalog.Range, decimals int) float64 {
	v := Round(r.Min+rng.Float64()*(r.Max-r.Min), decimals)
	return math.Min(math.Max(v, r.Min), r.Max)
}

// Generator produces snapshots from a fixed catalog. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	rng     *rand.Rand
	clock   func() time.Time
}

// NewGenerator creates a generator. A zero seed seeds from the current time.
func NewGenerator(c *catalog.Catalog, seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		catalog: c,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source, for tests.
func (g *Generator) SetClock(clock func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clock = clock
}

// Catalog returns the catalog the generator draws from.
func (g *Generator) Catalog() *catalog.Catalog {
	return g.catalog
}

// Next produces a new snapshot.
func (g *Generator) Next() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Generate(g.catalog, g.rng, g.clock())
}
