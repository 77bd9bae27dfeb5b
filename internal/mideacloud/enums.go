package mideacloud

import "fmt"

// DeviceType is the appliance category reported by the cloud.
type DeviceType uint8

// Appliance categories known to the Midea cloud. Only air conditioners are
// driven by the bridge; the rest are listed so they can be named in logs.
const (
	TypeDehumidifier    DeviceType = 0xA1
	TypeAirConditioner  DeviceType = 0xAC
	TypeWaterHeater     DeviceType = 0xE2
	TypeFrontLoadWasher DeviceType = 0xDB
)

// String renders the type the way the cloud API documents it ("0xac").
func (t DeviceType) String() string {
	return fmt.Sprintf("0x%02x", uint8(t))
}

// OperationalMode is the running mode of an air conditioner.
type OperationalMode int

// Operational modes, with the wire values used by the appliance.
const (
	ModeAuto    OperationalMode = 1
	ModeCool    OperationalMode = 2
	ModeDry     OperationalMode = 3
	ModeHeat    OperationalMode = 4
	ModeFanOnly OperationalMode = 5
)

// FanSpeed is the indoor fan setting.
type FanSpeed int

// Fan speeds, with the wire values used by the appliance.
const (
	FanHigh   FanSpeed = 80
	FanMedium FanSpeed = 60
	FanLow    FanSpeed = 40
	FanAuto   FanSpeed = 102
)

// SwingMode is the louvre swing setting.
type SwingMode int

// Swing modes, with the wire values used by the appliance.
const (
	SwingOff        SwingMode = 0x0
	SwingVertical   SwingMode = 0xC
	SwingHorizontal SwingMode = 0x3
	SwingBoth       SwingMode = 0xF
)

// namedValue pairs an enum value with its published name. Tables are kept
// in declaration order because the lists are shown to users in that order.
type namedValue[T ~int] struct {
	value T
	name  string
}

var operationalModes = []namedValue[OperationalMode]{
	{ModeAuto, "auto"},
	{ModeCool, "cool"},
	{ModeDry, "dry"},
	{ModeHeat, "heat"},
	{ModeFanOnly, "fan_only"},
}

var fanSpeeds = []namedValue[FanSpeed]{
	{FanHigh, "High"},
	{FanMedium, "Medium"},
	{FanLow, "Low"},
	{FanAuto, "Auto"},
}

var swingModes = []namedValue[SwingMode]{
	{SwingOff, "Off"},
	{SwingVertical, "Vertical"},
	{SwingHorizontal, "Horizontal"},
	{SwingBoth, "Both"},
}

func nameOf[T ~int](table []namedValue[T], v T) (string, bool) {
	for _, e := range table {
		if e.value == v {
			return e.name, true
		}
	}
	return "", false
}

func valueOf[T ~int](table []namedValue[T], name string) (T, bool) {
	for _, e := range table {
		if e.name == name {
			return e.value, true
		}
	}
	var zero T
	return zero, false
}

func namesOf[T ~int](table []namedValue[T]) []string {
	names := make([]string, len(table))
	for i, e := range table {
		names[i] = e.name
	}
	return names
}

// String returns the mode name, or "unknown(n)" for values outside the table.
func (m OperationalMode) String() string {
	if name, ok := nameOf(operationalModes, m); ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// String returns the fan speed name.
func (f FanSpeed) String() string {
	if name, ok := nameOf(fanSpeeds, f); ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(f))
}

// String returns the swing mode name.
func (s SwingMode) String() string {
	if name, ok := nameOf(swingModes, s); ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// OperationalModes returns a fresh slice of every operational mode name.
// Callers may append to it.
func OperationalModes() []string { return namesOf(operationalModes) }

// FanSpeeds returns a fresh slice of every fan speed name.
func FanSpeeds() []string { return namesOf(fanSpeeds) }

// SwingModes returns a fresh slice of every swing mode name.
func SwingModes() []string { return namesOf(swingModes) }

// ParseOperationalMode looks up a mode by name. Names are case sensitive.
func ParseOperationalMode(name string) (OperationalMode, error) {
	if v, ok := valueOf(operationalModes, name); ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// ParseFanSpeed looks up a fan speed by name.
func ParseFanSpeed(name string) (FanSpeed, error) {
	if v, ok := valueOf(fanSpeeds, name); ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFanSpeed, name)
}

// ParseSwingMode looks up a swing mode by name.
func ParseSwingMode(name string) (SwingMode, error) {
	if v, ok := valueOf(swingModes, name); ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSwingMode, name)
}
