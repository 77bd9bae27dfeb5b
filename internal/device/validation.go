package device

import (
	"fmt"
	"strings"
)

const maxNameLength = 100

// ValidateDevice checks the fields a device must carry before it is stored.
func ValidateDevice(d *Device) error {
	var problems []string

	if strings.TrimSpace(d.ID) == "" {
		problems = append(problems, "id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	} else if len(d.Name) > maxNameLength {
		problems = append(problems, fmt.Sprintf("name exceeds %d characters", maxNameLength))
	}
	if d.Domain != DomainClimate {
		problems = append(problems, fmt.Sprintf("unsupported domain %q", d.Domain))
	}
	if d.Protocol != ProtocolMidea {
		problems = append(problems, fmt.Sprintf("unsupported protocol %q", d.Protocol))
	}
	if d.Type != DeviceTypeAirConditioner {
		problems = append(problems, fmt.Sprintf("unsupported type %q", d.Type))
	}
	if d.ApplianceType < 0 || d.ApplianceType > 0xFF {
		problems = append(problems, "appliance_type must fit in one byte")
	}

	known := make(map[Capability]bool)
	for _, c := range AllCapabilities() {
		known[c] = true
	}
	for _, c := range d.Capabilities {
		if !known[c] {
			problems = append(problems, fmt.Sprintf("unknown capability %q", c))
		}
	}

	switch d.HealthStatus {
	case "", HealthStatusOnline, HealthStatusOffline, HealthStatusUnknown:
	default:
		problems = append(problems, fmt.Sprintf("unknown health status %q", d.HealthStatus))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDevice, strings.Join(problems, "; "))
	}
	return nil
}
