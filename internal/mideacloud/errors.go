package mideacloud

import "errors"

// Domain errors for the mideacloud package.
var (
	// ErrUnknownDriver is returned by Open when no driver is registered
	// under the requested name.
	ErrUnknownDriver = errors.New("mideacloud: unknown driver")

	// ErrMissingCredentials is returned when the app key, username or
	// password is empty.
	ErrMissingCredentials = errors.New("mideacloud: missing credentials")

	// ErrUnknownMode is returned when an operational mode name is not recognised.
	ErrUnknownMode = errors.New("mideacloud: unknown operational mode")

	// ErrUnknownFanSpeed is returned when a fan speed name is not recognised.
	ErrUnknownFanSpeed = errors.New("mideacloud: unknown fan speed")

	// ErrUnknownSwingMode is returned when a swing mode name is not recognised.
	ErrUnknownSwingMode = errors.New("mideacloud: unknown swing mode")

	// ErrApplianceOffline is returned when Apply or Refresh is called on an
	// appliance the cloud reports as offline.
	ErrApplianceOffline = errors.New("mideacloud: appliance offline")

	// ErrClientClosed is returned by calls on a closed client.
	ErrClientClosed = errors.New("mideacloud: client closed")
)
