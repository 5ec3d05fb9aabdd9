//
//
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads a YAML catalog file and validates it.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes a YAML catalog document and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	return &c, nil
}

// Default returns the built-in laboratory inventory.
func Default() *Catalog {
	return New(
		Instrument{
			ID:       1,
			Name:     "试验深冷式再液化装置",
			Category: "再液化装置",
			Parameters: []Parameter{
				{Label: "进口压力", Unit: "MPa", Key: "inletPressure", Range: Range{0.2, 0.3}},
				{Label: "进口温度", Unit: "℃", Key: "inletTemp", Range: Range{-165, -160}},
				{Label: "出口压力", Unit: "MPa", Key: "outletPressure", Range: Range{0.15, 0.25}},
				{Label: "出口温度", Unit: "℃", Key: "outletTemp", Range: Range{-158, -155}},
				{Label: "处理流量", Unit: "m³/h", Key: "processFlow", Range: Range{10, 20}},
			},
		},
		Instrument{
			ID:       2,
			Name:     "LNG低温储罐#1",
			Category: "储罐",
			Parameters: []Parameter{
				{Label: "液位", Unit: "%", Key: "level", Range: Range{80, 95}},
				{Label: "压力", Unit: "MPa", Key: "pressure", Range: Range{0.07, 0.09}},
				{Label: "温度", Unit: "℃", Key: "temperature", Range: Range{-163, -161}},
			},
		},
		Instrument{
			ID:       3,
			Name:     "LNG低温储罐#2",
			Category: "储罐",
			Parameters: []Parameter{
				{Label: "液位", Unit: "%", Key: "level", Range: Range{85, 98}},
				{Label: "压力", Unit: "MPa", Key: "pressure", Range: Range{0.075, 0.095}},
				{Label: "温度", Unit: "℃", Key: "temperature", Range: Range{-164, -160}},
			},
		},
		Instrument{
			ID:       4,
			Name:     "LNG潜液泵#1",
			Category: "泵",
			Parameters: []Parameter{
				{Label: "流量", Unit: "m³/h", Key: "flow", Range: Range{15, 25}},
				{Label: "扬程", Unit: "m", Key: "head", Range: Range{45, 55}},
				{Label: "转速", Unit: "rpm", Key: "speed", Range: Range{2800, 3200}},
				{Label: "电流", Unit: "A", Key: "current", Range: Range{8, 12}},
			},
		},
		Instrument{
			ID:       5,
			Name:     "强制汽化器",
			Category: "汽化器",
			Parameters: []Parameter{
				{Label: "进口压力", Unit: "kPa", Key: "inletPressure", Range: Range{240, 250}},
				{Label: "出口温度", Unit: "℃", Key: "outletTemp", Range: Range{14, 16}},
				{Label: "汽化量", Unit: "kg/h", Key: "vaporRate", Range: Range{100, 150}},
			},
		},
	)
}

// Broadcast returns the live-feed inventory. Every instrument reports running.
func Broadcast() *Catalog {
	return New(
		Instrument{
			ID:           1,
			Name:         "试验深冷式再液化装置",
			Category:     "再液化装置",
			PinnedStatus: StatusRunning,
			Parameters: []Parameter{
				{Label: "进口压力", Unit: "MPa", Key: "inletPressure", Range: Range{0.24, 0.26}},
				{Label: "进口温度", Unit: "℃", Key: "inletTemp", Range: Range{-163.5, -161.5}},
				{Label: "出口温度", Unit: "℃", Key: "outletTemp", Range: Range{-166.8, -164.8}},
			},
		},
		Instrument{
			ID:           2,
			Name:         "深冷LNG加热器",
			Category:     "加热器",
			PinnedStatus: StatusRunning,
			Parameters: []Parameter{
				{Label: "丙烷压力", Unit: "MPa", Key: "propanePressure", Range: Range{0.14, 0.16}},
				{Label: "丙烷温度", Unit: "℃", Key: "propaneTemp", Range: Range{24.8, 26.8}},
				{Label: "进气压力", Unit: "MPa", Key: "inletPressure", Range: Range{0.11, 0.13}},
				{Label: "进气温度", Unit: "℃", Key: "inletTemp", Range: Range{-159.3, -157.3}},
				{Label: "LNG出口温度", Unit: "℃", Key: "lngOutletTemp", Range: Range{-146.2, -144.2}},
			},
		},
		Instrument{
			ID:           3,
			Name:         "#1 LNG储罐",
			Category:     "储罐",
			PinnedStatus: StatusRunning,
			Parameters: []Parameter{
				{Label: "液位", Unit: "%", Key: "level", Range: Range{84.7, 85.7}},
				{Label: "压力", Unit: "MPa", Key: "pressure", Range: Range{0.07, 0.09}},
				{Label: "LNG出口温度", Unit: "℃", Key: "lngOutletTemp", Range: Range{-163.1, -161.1}},
			},
		},
		Instrument{
			ID:           5,
			Name:         "#1 LNG输送泵",
			Category:     "泵",
			PinnedStatus: StatusRunning,
			Parameters: []Parameter{
				{Label: "电流", Unit: "A", Key: "current", Range: Range{44.2, 46.2}},
				{Label: "液位", Unit: "%", Key: "level", Range: Range{78, 79}},
				{Label: "转速", Unit: "rpm", Key: "speed", Range: Range{2800, 2900}},
				{Label: "压力", Unit: "MPa", Key: "pressure", Range: Range{0.21, 0.23}},
				{Label: "出口压力", Unit: "MPa", Key: "outletPressure", Range: Range{0.34, 0.36}},
				{Label: "进口压力", Unit: "MPa", Key: "inletPressure", Range: Range{0.07, 0.09}},
			},
		},
	)
}

// Built-in catalog names.
const (
	BuiltinLab       = "lab"
	BuiltinBroadcast = "broadcast"
)

// ErrUnknownBuiltin is returned by Builtin for unrecognized names.
var ErrUnknownBuiltin = errors.New("unknown built-in catalog")

// Builtin returns a built-in catalog by name. An empty name selects the lab inventory.
func Builtin(name string) (*Catalog, error) {
	switch name {
	case "", BuiltinLab:
		return Default(), nil
	case BuiltinBroadcast:
		return Broadcast(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuiltin, name)
	}
}
