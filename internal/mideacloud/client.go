package mideacloud

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Credentials identify a Midea cloud account.
type Credentials struct {
	AppKey   string
	Username string
	Password string
}

// Validate reports ErrMissingCredentials when any field is empty.
func (c Credentials) Validate() error {
	switch {
	case c.AppKey == "":
		return fmt.Errorf("%w: app key is empty", ErrMissingCredentials)
	case c.Username == "":
		return fmt.Errorf("%w: username is empty", ErrMissingCredentials)
	case c.Password == "":
		return fmt.Errorf("%w: password is empty", ErrMissingCredentials)
	}
	return nil
}

// String redacts the password.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AppKey:%s, Username:%s, Password:[REDACTED]}", c.AppKey, c.Username)
}

// Client is a session with the Midea cloud.
type Client interface {
	// Devices lists every appliance bound to the account, whatever its type.
	Devices(ctx context.Context) ([]Appliance, error)

	// Close ends the session.
	Close() error
}

// Appliance is the handle for one physical appliance. Setters change a
// local copy only; Apply pushes every pending change in one request and
// Refresh overwrites the local copy with the appliance's reported state.
type Appliance interface {
	ID() string
	Type() DeviceType
	Online() bool

	PowerState() bool
	SetPowerState(on bool)

	OperationalMode() OperationalMode
	SetOperationalMode(mode OperationalMode)

	FanSpeed() FanSpeed
	SetFanSpeed(speed FanSpeed)

	SwingMode() SwingMode
	SetSwingMode(mode SwingMode)

	EcoMode() bool
	SetEcoMode(on bool)

	TargetTemperature() float64
	SetTargetTemperature(celsius float64)

	IndoorTemperature() float64
	OutdoorTemperature() float64

	Apply(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// Config selects a driver and carries what it needs to open a session.
type Config struct {
	// Driver is the registered driver name. Empty selects DefaultDriver.
	Driver string

	Credentials Credentials

	// Fleet seeds the simulator driver. Other drivers ignore it.
	Fleet []SimulatedAppliance
}

// DefaultDriver is used when Config.Driver is empty.
const DefaultDriver = "simulator"

// DriverFunc opens a client session.
type DriverFunc func(ctx context.Context, cfg Config) (Client, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFunc)
)

// Register makes a driver available under name. It panics if the name is
// taken or fn is nil, since both are programming errors caught at init.
func Register(name string, fn DriverFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if fn == nil {
		panic("mideacloud: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("mideacloud: Register called twice for driver " + name)
	}
	drivers[name] = fn
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open validates the credentials and opens a session with the configured driver.
func Open(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	name := cfg.Driver
	if name == "" {
		name = DefaultDriver
	}

	driversMu.RLock()
	fn, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}

	client, err := fn(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s driver: %w", name, err)
	}
	return client, nil
}
