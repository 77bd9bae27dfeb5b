package device

import "time"

// Device is one appliance managed by the bridge.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Type     DeviceType `json:"type"`
	Domain   Domain     `json:"domain"`
	Protocol Protocol   `json:"protocol"`

	// ApplianceType is the vendor category byte (0xAC for air conditioners).
	ApplianceType int `json:"appliance_type"`

	Capabilities []Capability `json:"capabilities"`

	// State is the last published representation, replaced wholesale on update.
	State          State      `json:"state"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty"`

	HealthStatus   HealthStatus `json:"health_status"`
	HealthLastSeen *time.Time   `json:"health_last_seen,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of d.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.State = deepCopyMap(d.State)
	if d.Capabilities != nil {
		cpy.Capabilities = append([]Capability(nil), d.Capabilities...)
	}
	if d.StateUpdatedAt != nil {
		t := *d.StateUpdatedAt
		cpy.StateUpdatedAt = &t
	}
	if d.HealthLastSeen != nil {
		t := *d.HealthLastSeen
		cpy.HealthLastSeen = &t
	}
	return &cpy
}

// HasCapability reports whether the device declares c.
func (d *Device) HasCapability(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// State is a device state as decoded from JSON: numbers are float64 and
// lists are []any once read back from storage.
type State map[string]any

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case State:
		return State(deepCopyMap(val))
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// Domain groups devices by what they do.
type Domain string

// DomainClimate is the only domain the bridge manages.
const DomainClimate Domain = "climate"

// Protocol identifies how the bridge reaches a device.
type Protocol string

// ProtocolMidea marks devices reached through the Midea cloud.
const ProtocolMidea Protocol = "midea"

// DeviceType is the device classification within its domain.
type DeviceType string

// DeviceTypeAirConditioner is a split or portable air conditioner.
const DeviceTypeAirConditioner DeviceType = "air_conditioner"

// Capability is a feature a device exposes.
type Capability string

// Capabilities of a Midea air conditioner.
const (
	CapOnOff           Capability = "on_off"
	CapTemperatureRead Capability = "temperature_read"
	CapTemperatureSet  Capability = "temperature_set"
	CapModeSelect      Capability = "mode_select"
	CapFanSpeed        Capability = "fan_speed"
	CapSwing           Capability = "swing"
	CapEcoMode         Capability = "eco_mode"
)

// AllCapabilities returns every known capability.
func AllCapabilities() []Capability {
	return []Capability{
		CapOnOff, CapTemperatureRead, CapTemperatureSet,
		CapModeSelect, CapFanSpeed, CapSwing, CapEcoMode,
	}
}

// HealthStatus is the reachability of a device as last observed.
type HealthStatus string

// Health statuses.
const (
	HealthStatusOnline  HealthStatus = "online"
	HealthStatusOffline HealthStatus = "offline"
	HealthStatusUnknown HealthStatus = "unknown"
)
