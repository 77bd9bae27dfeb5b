package mideacloud

import (
	"context"
	"sync"
)

// SimulatedAppliance seeds one appliance of the simulator fleet.
type SimulatedAppliance struct {
	ID                 string
	Type               DeviceType
	Online             bool
	PowerState         bool
	Mode               OperationalMode
	FanSpeed           FanSpeed
	SwingMode          SwingMode
	EcoMode            bool
	TargetTemperature  float64
	IndoorTemperature  float64
	OutdoorTemperature float64
}

// DefaultFleet is used when the simulator is opened without a fleet: one
// air conditioner and one dehumidifier, so both the managed and the
// skipped path are visible.
func DefaultFleet() []SimulatedAppliance {
	return []SimulatedAppliance{
		{
			ID:                 "sim-ac-1",
			Type:               TypeAirConditioner,
			Online:             true,
			Mode:               ModeCool,
			FanSpeed:           FanAuto,
			SwingMode:          SwingOff,
			TargetTemperature:  24,
			IndoorTemperature:  26.5,
			OutdoorTemperature: 31,
		},
		{
			ID:     "sim-dh-1",
			Type:   TypeDehumidifier,
			Online: true,
		},
	}
}

func init() {
	Register(DefaultDriver, func(_ context.Context, cfg Config) (Client, error) {
		fleet := cfg.Fleet
		if len(fleet) == 0 {
			fleet = DefaultFleet()
		}
		return NewSimulator(fleet), nil
	})
}

// Simulator is an in-memory Midea cloud. Each appliance keeps a remote
// record that only Apply writes and only Refresh reads.
type Simulator struct {
	mu         sync.Mutex
	appliances []*SimulatedDevice
	closed     bool
}

// NewSimulator builds a simulator holding the given fleet.
func NewSimulator(fleet []SimulatedAppliance) *Simulator {
	s := &Simulator{appliances: make([]*SimulatedDevice, 0, len(fleet))}
	for _, seed := range fleet {
		s.appliances = append(s.appliances, &SimulatedDevice{local: seed, remote: seed})
	}
	return s
}

// Devices returns every appliance in the fleet.
func (s *Simulator) Devices(ctx context.Context) ([]Appliance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClientClosed
	}
	out := make([]Appliance, len(s.appliances))
	for i, a := range s.appliances {
		out[i] = a
	}
	return out, nil
}

// Device returns the simulated appliance with the given id, or nil.
func (s *Simulator) Device(id string) *SimulatedDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appliances {
		if a.local.ID == id {
			return a
		}
	}
	return nil
}

// Close marks the session closed.
func (s *Simulator) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// SimulatedDevice implements Appliance for the simulator.
type SimulatedDevice struct {
	mu        sync.Mutex
	local     SimulatedAppliance
	remote    SimulatedAppliance
	applies   int
	refreshes int
	applyErr  error
}

// ID returns the appliance id.
func (d *SimulatedDevice) ID() string { return d.local.ID }

// Type returns the appliance category.
func (d *SimulatedDevice) Type() DeviceType { return d.local.Type }

// Online reports the cloud's view of connectivity.
func (d *SimulatedDevice) Online() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remote.Online
}

func (d *SimulatedDevice) PowerState() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.PowerState
}

func (d *SimulatedDevice) SetPowerState(on bool) {
	d.mu.Lock()
	d.local.PowerState = on
	d.mu.Unlock()
}

func (d *SimulatedDevice) OperationalMode() OperationalMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.Mode
}

func (d *SimulatedDevice) SetOperationalMode(mode OperationalMode) {
	d.mu.Lock()
	d.local.Mode = mode
	d.mu.Unlock()
}

func (d *SimulatedDevice) FanSpeed() FanSpeed {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.FanSpeed
}

func (d *SimulatedDevice) SetFanSpeed(speed FanSpeed) {
	d.mu.Lock()
	d.local.FanSpeed = speed
	d.mu.Unlock()
}

func (d *SimulatedDevice) SwingMode() SwingMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.SwingMode
}

func (d *SimulatedDevice) SetSwingMode(mode SwingMode) {
	d.mu.Lock()
	d.local.SwingMode = mode
	d.mu.Unlock()
}

func (d *SimulatedDevice) EcoMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.EcoMode
}

func (d *SimulatedDevice) SetEcoMode(on bool) {
	d.mu.Lock()
	d.local.EcoMode = on
	d.mu.Unlock()
}

func (d *SimulatedDevice) TargetTemperature() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.TargetTemperature
}

func (d *SimulatedDevice) SetTargetTemperature(celsius float64) {
	d.mu.Lock()
	d.local.TargetTemperature = celsius
	d.mu.Unlock()
}

func (d *SimulatedDevice) IndoorTemperature() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.IndoorTemperature
}

func (d *SimulatedDevice) OutdoorTemperature() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.local.OutdoorTemperature
}

// Apply copies the local settings to the remote record. Sensor readings
// and connectivity are owned by the appliance and are not pushed.
func (d *SimulatedDevice) Apply(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.applyErr != nil {
		err := d.applyErr
		d.applyErr = nil
		return err
	}
	if !d.remote.Online {
		return ErrApplianceOffline
	}

	d.remote.PowerState = d.local.PowerState
	d.remote.Mode = d.local.Mode
	d.remote.FanSpeed = d.local.FanSpeed
	d.remote.SwingMode = d.local.SwingMode
	d.remote.EcoMode = d.local.EcoMode
	d.remote.TargetTemperature = d.local.TargetTemperature
	d.applies++
	return nil
}

// Refresh overwrites the local copy with the remote record.
func (d *SimulatedDevice) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.remote.Online {
		return ErrApplianceOffline
	}
	d.local = d.remote
	d.refreshes++
	return nil
}

// FailNextApply makes the next Apply return err without touching the remote record.
func (d *SimulatedDevice) FailNextApply(err error) {
	d.mu.Lock()
	d.applyErr = err
	d.mu.Unlock()
}

// SetOnline changes the cloud's connectivity flag for the appliance.
func (d *SimulatedDevice) SetOnline(online bool) {
	d.mu.Lock()
	d.remote.Online = online
	d.local.Online = online
	d.mu.Unlock()
}

// SetReadings changes the sensor readings on both copies, as if the
// appliance had reported them.
func (d *SimulatedDevice) SetReadings(indoor, outdoor float64) {
	d.mu.Lock()
	d.remote.IndoorTemperature, d.local.IndoorTemperature = indoor, indoor
	d.remote.OutdoorTemperature, d.local.OutdoorTemperature = outdoor, outdoor
	d.mu.Unlock()
}

// Remote returns a copy of the remote record.
func (d *SimulatedDevice) Remote() SimulatedAppliance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remote
}

// ApplyCount returns how many Apply calls reached the remote record.
func (d *SimulatedDevice) ApplyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applies
}

// RefreshCount returns how many Refresh calls succeeded.
func (d *SimulatedDevice) RefreshCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refreshes
}
