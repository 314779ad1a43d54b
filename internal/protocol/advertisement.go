package protocol

// Advertisement is the subset of a BLE advertisement the engine cares about
type Advertisement struct {
	LocalName        string
	ManufacturerData []byte
}

// PlugInfo is what an advertisement reveals about a supported plug
type PlugInfo struct {
	Model    Model
	Name     string // full advertised local name
	States   []bool // per-port power state, valid only when HasState is set
	HasState bool   // false when manufacturer data was absent
}

// ParseAdvertisement inspects an advertisement and reports whether it comes
// from a supported plug. Identity comes from the advertised name prefix;
// power state comes from the manufacturer data when present. Advertisements
// from anything else return ok=false, which is not an error condition: most
// of the airspace belongs to other people's devices.
func ParseAdvertisement(adv Advertisement) (PlugInfo, bool) {
	spec, ok := SpecForName(adv.LocalName)
	if !ok {
		return PlugInfo{}, false
	}

	info := PlugInfo{Model: spec.Model, Name: adv.LocalName}
	if states, ok := spec.ParseAdvState(adv.ManufacturerData); ok {
		info.States = states
		info.HasState = true
	}
	return info, true
}
