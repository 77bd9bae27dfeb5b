package midea

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/vistecsol/ha-midea-ac/internal/mideacloud"
)

// HVACModeOff is the synthetic mode listed when off is included as a state.
const HVACModeOff = "off"

// Fixed entity attributes.
const (
	TemperatureUnit = "°C"
	MinTemp         = 17.0
	MaxTemp         = 30.0

	// Climate feature flags, using the host's bit values.
	FeatureTargetTemperature = 1
	FeatureFanMode           = 8
	FeatureSwingMode         = 32

	SupportedFeatures = FeatureTargetTemperature | FeatureFanMode | FeatureSwingMode

	DefaultTempStep = 1.0
)

// ClimateConfig holds the per-platform options shared by every entity.
type ClimateConfig struct {
	TempStep          float64
	IncludeOffAsState bool
}

// StateListener receives the representation of an entity after every
// successful flush or refresh. It is called without the entity lock held,
// one call at a time and in flush order; a state overtaken by a newer one
// is dropped.
type StateListener func(ctx context.Context, state ClimateState)

// Climate reconciles one air conditioner between its restored snapshot,
// the live appliance handle and local changes that have not been applied.
//
// While a snapshot is present, the mode, fan, swing and target temperature
// getters return the snapshot value and write it into the handle, so the
// first Apply after a restart pushes the last known settings. The first
// successful flush drops the snapshot for good.
//
// Methods are safe for concurrent use; commands on one entity are serialised.
type Climate struct {
	mu         sync.Mutex
	appliance  mideacloud.Appliance
	tempStep   float64
	includeOff bool

	snapshot *Snapshot
	changed  bool
	seq      uint64

	listener StateListener

	// pubMu orders listener calls. published is the seq last delivered.
	pubMu     sync.Mutex
	published uint64
}

// NewClimate creates the entity for appliance. snapshot may be nil.
func NewClimate(appliance mideacloud.Appliance, cfg ClimateConfig, snapshot *Snapshot) *Climate {
	step := cfg.TempStep
	if step <= 0 {
		step = DefaultTempStep
	}
	return &Climate{
		appliance:  appliance,
		tempStep:   step,
		includeOff: cfg.IncludeOffAsState,
		snapshot:   snapshot,
	}
}

// SetListener registers the function that publishes the representation.
func (c *Climate) SetListener(fn StateListener) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// UniqueID is the appliance id.
func (c *Climate) UniqueID() string { return c.appliance.ID() }

// Name is "midea_{id}".
func (c *Climate) Name() string { return "midea_" + c.appliance.ID() }

// ShouldPoll is always false: state only changes through commands.
func (c *Climate) ShouldPoll() bool { return false }

// AssumedState is always true; the cloud does not push state changes.
func (c *Climate) AssumedState() bool { return true }

func (c *Climate) TemperatureUnit() string { return TemperatureUnit }

func (c *Climate) MinTemp() float64 { return MinTemp }

func (c *Climate) MaxTemp() float64 { return MaxTemp }

func (c *Climate) TargetTemperatureStep() float64 { return c.tempStep }

func (c *Climate) SupportedFeatures() int { return SupportedFeatures }

// Available reports the appliance's online flag.
func (c *Climate) Available() bool { return c.appliance.Online() }

// HasSnapshot reports whether the restored snapshot is still in effect.
func (c *Climate) HasSnapshot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot != nil
}

// Pending reports whether a change is waiting to be applied.
func (c *Climate) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// HVACMode returns the current mode, or "off" when off is included as a
// state and the appliance is powered down.
func (c *Climate) HVACMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hvacModeLocked()
}

// FanMode returns the fan speed name.
func (c *Climate) FanMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fanModeLocked()
}

// SwingMode returns the swing mode name.
func (c *Climate) SwingMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swingModeLocked()
}

// TargetTemperature returns the set point in °C.
func (c *Climate) TargetTemperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.targetTemperatureLocked()
}

// HVACModes lists the selectable modes.
func (c *Climate) HVACModes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hvacModesLocked()
}

// FanModes lists the selectable fan speeds.
func (c *Climate) FanModes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fanModesLocked()
}

// SwingModes lists the selectable swing modes.
func (c *Climate) SwingModes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swingModesLocked()
}

// CurrentTemperature is the indoor reading, or the restored reading while
// the snapshot holds one.
func (c *Climate) CurrentTemperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTemperatureLocked()
}

// OutdoorTemperature is always live.
func (c *Climate) OutdoorTemperature() float64 { return c.appliance.OutdoorTemperature() }

// IsOn reports the power state.
func (c *Climate) IsOn() bool { return c.appliance.PowerState() }

// AwayMode reports the eco mode.
func (c *Climate) AwayMode() bool { return c.appliance.EcoMode() }

func (c *Climate) hvacModeLocked() string {
	if s := c.snapshot; s != nil {
		if s.State != HVACModeOff {
			if mode, err := parseOperationalMode(s.State); err == nil {
				c.appliance.SetOperationalMode(mode)
			}
		}
		switch {
		case c.includeOff:
			c.appliance.SetPowerState(s.State != HVACModeOff)
		case s.Power != nil:
			c.appliance.SetPowerState(*s.Power)
		}
		return s.State
	}

	if c.includeOff && !c.appliance.PowerState() {
		return HVACModeOff
	}
	return c.appliance.OperationalMode().String()
}

func (c *Climate) fanModeLocked() string {
	if s := c.snapshot; s != nil {
		if speed, err := parseFanSpeed(s.FanMode); err == nil {
			c.appliance.SetFanSpeed(speed)
		}
		return s.FanMode
	}
	return c.appliance.FanSpeed().String()
}

func (c *Climate) swingModeLocked() string {
	if s := c.snapshot; s != nil {
		if mode, err := parseSwingMode(s.SwingMode); err == nil {
			c.appliance.SetSwingMode(mode)
		}
		return s.SwingMode
	}
	return c.appliance.SwingMode().String()
}

func (c *Climate) targetTemperatureLocked() float64 {
	if s := c.snapshot; s != nil {
		c.appliance.SetTargetTemperature(s.Temperature)
		return s.Temperature
	}
	return c.appliance.TargetTemperature()
}

func (c *Climate) hvacModesLocked() []string {
	if s := c.snapshot; s != nil && len(s.HVACModes) > 0 {
		modes := make([]string, 0, len(s.HVACModes))
		for _, m := range s.HVACModes {
			if m == HVACModeOff && !c.includeOff {
				continue
			}
			modes = append(modes, m)
		}
		return modes
	}
	modes := mideacloud.OperationalModes()
	if c.includeOff {
		modes = append(modes, HVACModeOff)
	}
	return modes
}

func (c *Climate) fanModesLocked() []string {
	if s := c.snapshot; s != nil && len(s.FanModes) > 0 {
		return append([]string(nil), s.FanModes...)
	}
	return mideacloud.FanSpeeds()
}

func (c *Climate) swingModesLocked() []string {
	if s := c.snapshot; s != nil && len(s.SwingModes) > 0 {
		return append([]string(nil), s.SwingModes...)
	}
	return mideacloud.SwingModes()
}

func (c *Climate) currentTemperatureLocked() float64 {
	if s := c.snapshot; s != nil && s.CurrentTemperature != nil {
		return *s.CurrentTemperature
	}
	return c.appliance.IndoorTemperature()
}

// SetTemperature sets the target, truncated to a whole degree. NaN and
// infinities fail with ErrInvalidParameters.
func (c *Climate) SetTemperature(ctx context.Context, celsius float64) error {
	return c.command(ctx, func() error {
		if math.IsNaN(celsius) || math.IsInf(celsius, 0) {
			return fmt.Errorf("%w: temperature %v is not finite", ErrInvalidParameters, celsius)
		}
		c.appliance.SetTargetTemperature(math.Trunc(celsius))
		return nil
	})
}

// SetHVACMode selects a mode. With off included as a state, "off" powers the
// appliance down and leaves its mode alone, and any other mode powers it up.
func (c *Climate) SetHVACMode(ctx context.Context, hvacMode string) error {
	return c.command(ctx, func() error {
		if c.includeOff && hvacMode == HVACModeOff {
			c.appliance.SetPowerState(false)
			return nil
		}
		mode, err := parseOperationalMode(hvacMode)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMode, err)
		}
		if c.includeOff {
			c.appliance.SetPowerState(true)
		}
		c.appliance.SetOperationalMode(mode)
		return nil
	})
}

// SetFanMode selects a fan speed by name.
func (c *Climate) SetFanMode(ctx context.Context, fanMode string) error {
	return c.command(ctx, func() error {
		speed, err := parseFanSpeed(fanMode)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFanMode, err)
		}
		c.appliance.SetFanSpeed(speed)
		return nil
	})
}

// SetSwingMode selects a swing mode by name.
func (c *Climate) SetSwingMode(ctx context.Context, swingMode string) error {
	return c.command(ctx, func() error {
		mode, err := parseSwingMode(swingMode)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSwingMode, err)
		}
		c.appliance.SetSwingMode(mode)
		return nil
	})
}

// TurnOn powers the appliance up.
func (c *Climate) TurnOn(ctx context.Context) error {
	return c.command(ctx, func() error {
		c.appliance.SetPowerState(true)
		return nil
	})
}

// TurnOff powers the appliance down.
func (c *Climate) TurnOff(ctx context.Context) error {
	return c.command(ctx, func() error {
		c.appliance.SetPowerState(false)
		return nil
	})
}

// TurnAwayModeOn enables eco mode.
func (c *Climate) TurnAwayModeOn(ctx context.Context) error {
	return c.command(ctx, func() error {
		c.appliance.SetEcoMode(true)
		return nil
	})
}

// TurnAwayModeOff disables eco mode.
func (c *Climate) TurnAwayModeOff(ctx context.Context) error {
	return c.command(ctx, func() error {
		c.appliance.SetEcoMode(false)
		return nil
	})
}

// Update pushes pending changes, if any. It never reads from the appliance.
func (c *Climate) Update(ctx context.Context) error {
	c.mu.Lock()
	state, flushed, err := c.flushLocked(ctx)
	listener, seq := c.listener, c.seq
	c.mu.Unlock()

	if flushed {
		c.deliver(ctx, listener, seq, state)
	}
	return err
}

// Publish hands the current representation to the listener. While the
// snapshot is present this runs the read path, so it doubles as the
// activation step.
func (c *Climate) Publish(ctx context.Context) {
	c.mu.Lock()
	state := c.stateLocked()
	c.seq++
	listener, seq := c.listener, c.seq
	c.mu.Unlock()

	c.deliver(ctx, listener, seq, state)
}

// Refresh reloads the handle from the appliance. It refuses with
// ErrPendingChanges while a change is unapplied, and leaves the snapshot
// in place.
func (c *Climate) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.changed {
		c.mu.Unlock()
		return ErrPendingChanges
	}
	if err := c.appliance.Refresh(ctx); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("refreshing %s: %w", c.appliance.ID(), err)
	}
	state := c.stateLocked()
	c.seq++
	listener, seq := c.listener, c.seq
	c.mu.Unlock()

	c.deliver(ctx, listener, seq, state)
	return nil
}

// State builds the current representation. While the snapshot is present
// this runs the read path, so the snapshot values land in the handle.
func (c *Climate) State() ClimateState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// command applies mutate to the handle, marks the entity changed and
// flushes. A mutate error leaves the handle and flag untouched.
func (c *Climate) command(ctx context.Context, mutate func() error) error {
	c.mu.Lock()
	if err := mutate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.changed = true
	state, flushed, err := c.flushLocked(ctx)
	listener, seq := c.listener, c.seq
	c.mu.Unlock()

	if flushed {
		c.deliver(ctx, listener, seq, state)
	}
	return err
}

// deliver calls listener with the state numbered seq unless a newer state
// has already gone out. Must be called without c.mu held.
func (c *Climate) deliver(ctx context.Context, listener StateListener, seq uint64, state ClimateState) {
	if listener == nil {
		return
	}
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if seq <= c.published {
		return
	}
	c.published = seq
	listener(ctx, state)
}

// flushLocked applies pending changes, drops the snapshot and clears the
// flag. On failure the snapshot and flag are kept.
func (c *Climate) flushLocked(ctx context.Context) (ClimateState, bool, error) {
	if !c.changed {
		return ClimateState{}, false, nil
	}
	if err := c.appliance.Apply(ctx); err != nil {
		return ClimateState{}, false, fmt.Errorf("%w: %s: %w", ErrApplyFailed, c.appliance.ID(), err)
	}
	c.snapshot = nil
	state := c.stateLocked()
	c.changed = false
	c.seq++
	return state, true, nil
}

func (c *Climate) stateLocked() ClimateState {
	return ClimateState{
		UniqueID:           c.appliance.ID(),
		FriendlyName:       c.Name(),
		HVACMode:           c.hvacModeLocked(),
		HVACModes:          c.hvacModesLocked(),
		FanMode:            c.fanModeLocked(),
		FanModes:           c.fanModesLocked(),
		SwingMode:          c.swingModeLocked(),
		SwingModes:         c.swingModesLocked(),
		Temperature:        c.targetTemperatureLocked(),
		CurrentTemperature: c.currentTemperatureLocked(),
		OutdoorTemperature: c.appliance.OutdoorTemperature(),
		TargetTempStep:     c.tempStep,
		MinTemp:            MinTemp,
		MaxTemp:            MaxTemp,
		TemperatureUnit:    TemperatureUnit,
		AwayMode:           c.appliance.EcoMode(),
		IsOn:               c.appliance.PowerState(),
		Available:          c.appliance.Online(),
		AssumedState:       true,
		SupportedFeatures:  SupportedFeatures,
	}
}

// Enum names are matched exactly first, then case-insensitively, so a
// restored "high" still finds the "High" fan speed.

func parseOperationalMode(name string) (mideacloud.OperationalMode, error) {
	return mideacloud.ParseOperationalMode(canonicalName(name, mideacloud.OperationalModes()))
}

func parseFanSpeed(name string) (mideacloud.FanSpeed, error) {
	return mideacloud.ParseFanSpeed(canonicalName(name, mideacloud.FanSpeeds()))
}

func parseSwingMode(name string) (mideacloud.SwingMode, error) {
	return mideacloud.ParseSwingMode(canonicalName(name, mideacloud.SwingModes()))
}

func canonicalName(name string, names []string) string {
	for _, n := range names {
		if n == name {
			return n
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n
		}
	}
	return name
}
