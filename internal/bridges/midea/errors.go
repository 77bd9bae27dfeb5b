package midea

import "errors"

// Errors returned by climate entities and the bridge.
var (
	// ErrApplyFailed wraps any failure of Appliance.Apply. The entity keeps
	// its snapshot and pending flag when this is returned.
	ErrApplyFailed = errors.New("midea: apply failed")

	ErrInvalidMode      = errors.New("midea: invalid hvac mode")
	ErrInvalidFanMode   = errors.New("midea: invalid fan mode")
	ErrInvalidSwingMode = errors.New("midea: invalid swing mode")

	// ErrPendingChanges is returned by Refresh while a change has not been flushed.
	ErrPendingChanges = errors.New("midea: changes pending")

	ErrUnsupportedDevice = errors.New("midea: unsupported device type")
	ErrDeviceNotFound    = errors.New("midea: device not found")
	ErrInvalidCommand    = errors.New("midea: invalid command")
	ErrInvalidParameters = errors.New("midea: invalid parameters")
)
