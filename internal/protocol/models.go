package protocol

import (
	"fmt"
	"strings"
)

// Model identifies a supported plug model
type Model string

const (
	ModelH5080 Model = "H5080" // single-outlet plug
	ModelH5082 Model = "H5082" // dual-outlet plug
	ModelH5086 Model = "H5086" // single-outlet plug with energy monitor
)

// GATT characteristic UUIDs, identical across all supported models
const (
	WriteCharacteristicUUID  = "00010203-0405-0607-0809-0a0b0c0d2b11"
	NotifyCharacteristicUUID = "00010203-0405-0607-0809-0a0b0c0d2b10"
)

// switchCodes holds the state bytes a switch frame carries for one port
type switchCodes struct {
	on  byte
	off byte
}

// Spec describes everything model specific about a plug: how it advertises
// itself, how many ports it has, which state bytes drive them and how its
// broadcasts encode power state.
type Spec struct {
	Model      Model
	NamePrefix string   // advertised local name prefix
	PortNames  []string // display names, one per port

	codes      []switchCodes
	parseState func(data []byte) []bool
}

// lastByteOn decodes single-port state from the final manufacturer data byte
func lastByteOn(data []byte) []bool {
	return []bool{data[len(data)-1] == 0x01}
}

// specs is the closed registry of supported models. Adding a model means
// adding an entry here; nothing else in the engine is model aware.
var specs = map[Model]*Spec{
	ModelH5080: {
		Model:      ModelH5080,
		NamePrefix: "ihoment_H5080_",
		PortNames:  []string{"Outlet"},
		codes:      []switchCodes{{on: 0xff, off: 0xf0}},
		parseState: lastByteOn,
	},
	ModelH5082: {
		Model:      ModelH5082,
		NamePrefix: "ihoment_H5082_",
		PortNames:  []string{"Left", "Right"},
		codes: []switchCodes{
			{on: 0x22, off: 0x20},
			{on: 0x11, off: 0x10},
		},
		parseState: func(data []byte) []bool {
			// Both ports share one state byte: bit 0x02 is the left
			// outlet, bit 0x01 the right
			b := data[len(data)-1]
			return []bool{b&0x02 != 0, b&0x01 != 0}
		},
	},
	ModelH5086: {
		Model:      ModelH5086,
		NamePrefix: "GVH5086",
		PortNames:  []string{"Outlet"},
		codes:      []switchCodes{{on: 0x01, off: 0x00}},
		parseState: lastByteOn,
	},
}

// Models returns the supported models in a stable order
func Models() []Model {
	return []Model{ModelH5080, ModelH5082, ModelH5086}
}

// SpecFor returns the spec for a model
func SpecFor(model Model) (*Spec, bool) {
	spec, ok := specs[model]
	return spec, ok
}

// SpecForName matches an advertised local name against the registry
func SpecForName(name string) (*Spec, bool) {
	for _, model := range Models() {
		spec := specs[model]
		if strings.HasPrefix(name, spec.NamePrefix) {
			return spec, true
		}
	}
	return nil, false
}

// Ports returns the number of switchable ports
func (s *Spec) Ports() int {
	return len(s.codes)
}

// SwitchFrame builds the switch frame for one port of this model
func (s *Spec) SwitchFrame(port int, on bool) ([]byte, error) {
	if port < 0 || port >= len(s.codes) {
		return nil, fmt.Errorf("model %s has no port %d (ports 0-%d)", s.Model, port, len(s.codes)-1)
	}
	code := s.codes[port].off
	if on {
		code = s.codes[port].on
	}
	return BuildFrame(MsgTypeCommand, SubtypeSwitch, []byte{code})
}

// ParseAdvState decodes per-port power state from manufacturer data.
// ok is false when the data is absent, in which case state is unknown
// rather than off.
func (s *Spec) ParseAdvState(data []byte) ([]bool, bool) {
	if len(data) == 0 {
		return nil, false
	}
	return s.parseState(data), true
}
