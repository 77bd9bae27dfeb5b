package midea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/mqtt"
	"github.com/vistecsol/ha-midea-ac/internal/mideacloud"
)

// ChannelStateChanged is the broadcast channel for published states.
const ChannelStateChanged = "climate.state_changed"

// State sources recorded with each published state.
const (
	SourceCommand = "command"
	SourceRestore = "restore"
	SourceRefresh = "refresh"
)

// Device health values written to the registry.
const (
	DeviceOnline  = "online"
	DeviceOffline = "offline"
)

// Logger is the logging surface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the interface for MQTT operations.
// The infrastructure client is adapted to it in main.go.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// DeviceRegistry persists the managed appliances and their last state.
// It is optional; without it nothing is restored across restarts.
type DeviceRegistry interface {
	// EnsureDevice creates the device record if it does not exist and
	// returns the state persisted for it, which may be empty.
	EnsureDevice(ctx context.Context, seed DeviceSeed) (map[string]any, error)

	SetDeviceState(ctx context.Context, id string, state map[string]any) error
	SetDeviceHealth(ctx context.Context, id string, status string) error
}

// StateRecorder appends published states to a history. Optional.
type StateRecorder interface {
	RecordStateChange(ctx context.Context, deviceID string, state map[string]any, source string) error
}

// TelemetryWriter receives every published state. Optional.
type TelemetryWriter interface {
	WriteClimateState(state ClimateState) error
}

// Broadcaster fans published states out to live subscribers. Optional.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// DeviceSeed holds the registry fields derivable from the cloud listing.
type DeviceSeed struct {
	ID            string
	Name          string
	ApplianceType int
	Capabilities  []string
}

// seedCapabilities are declared for every air conditioner.
var seedCapabilities = []string{
	"on_off", "temperature_read", "temperature_set",
	"mode_select", "fan_speed", "swing", "eco_mode",
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	Climate        ClimateConfig
	HealthInterval time.Duration
	Version        string

	// Cloud is the open vendor session. The bridge does not close it.
	Cloud mideacloud.Client

	MQTTClient MQTTClient

	Registry    DeviceRegistry
	History     StateRecorder
	Telemetry   TelemetryWriter
	Broadcaster Broadcaster
	Metrics     *MetricsCollector
	Logger      Logger
}

// Bridge sets up one Climate per air conditioner on the account and
// connects them to MQTT, persistence and telemetry.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	climateCfg ClimateConfig
	cloud      mideacloud.Client
	mqtt       MQTTClient
	health     *HealthReporter

	registry    DeviceRegistry
	history     StateRecorder
	telemetry   TelemetryWriter
	broadcaster Broadcaster
	metrics     *MetricsCollector

	climates   map[string]*Climate
	climatesMu sync.RWMutex

	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger Logger
}

// NewBridge creates a bridge. Call Start to set up the entities.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Cloud == nil {
		return nil, fmt.Errorf("cloud client is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		climateCfg:  opts.Climate,
		cloud:       opts.Cloud,
		mqtt:        opts.MQTTClient,
		registry:    opts.Registry,
		history:     opts.History,
		telemetry:   opts.Telemetry,
		broadcaster: opts.Broadcaster,
		metrics:     opts.Metrics,
		climates:    make(map[string]*Climate),
		ctx:         ctx,
		ctxCancel:   ctxCancel,
		logger:      opts.Logger,
	}
	if b.metrics != nil && b.metrics.source == nil {
		b.metrics.source = b
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Stats:     b.fleetStats,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start lists the account's appliances, activates an entity for every air
// conditioner, subscribes to commands and requests and starts health
// reporting. Unsupported appliances are logged and skipped.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	if err := b.setup(ctx); err != nil {
		return err
	}

	topics := mqtt.Topics{}
	if err := b.mqtt.Subscribe(topics.AllCommands(), 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", topics.AllCommands())

	if err := b.mqtt.Subscribe(topics.AllRequests(), 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to requests: %w", err)
	}
	b.logInfo("subscribed to requests", "topic", topics.AllRequests())

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("bridge started", "climates", len(b.Climates()))
	return nil
}

// Stop shuts the bridge down. In-flight commands see a cancelled context.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

func (b *Bridge) setup(ctx context.Context) error {
	appliances, err := b.cloud.Devices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	for _, appliance := range appliances {
		if appliance.Type() != mideacloud.TypeAirConditioner {
			b.logError("unsupported device type", ErrUnsupportedDevice,
				"device_id", appliance.ID(),
				"type", appliance.Type().String())
			continue
		}
		b.activate(ctx, appliance)
	}
	return nil
}

// activate creates the entity for appliance, restores its snapshot from
// the registry and publishes its first state. Building that state runs the
// read path, which writes the snapshot into the handle.
func (b *Bridge) activate(ctx context.Context, appliance mideacloud.Appliance) {
	id := appliance.ID()

	var snapshot *Snapshot
	if b.registry != nil {
		persisted, err := b.registry.EnsureDevice(ctx, DeviceSeed{
			ID:            id,
			Name:          "midea_" + id,
			ApplianceType: int(appliance.Type()),
			Capabilities:  append([]string(nil), seedCapabilities...),
		})
		if err != nil {
			b.logError("failed to register device", err, "device_id", id)
		} else if s, ok := SnapshotFromState(persisted); ok {
			snapshot = s
		}
	}

	climate := NewClimate(appliance, b.climateCfg, snapshot)
	climate.SetListener(func(ctx context.Context, state ClimateState) {
		b.publishState(ctx, state, sourceFrom(ctx))
	})

	b.climatesMu.Lock()
	b.climates[id] = climate
	b.climatesMu.Unlock()

	climate.Publish(withSource(ctx, SourceRestore))
	b.logInfo("climate activated", "device_id", id, "restored", snapshot != nil)
}

// Climates returns the managed entities ordered by ID.
func (b *Bridge) Climates() []*Climate {
	b.climatesMu.RLock()
	out := make([]*Climate, 0, len(b.climates))
	for _, c := range b.climates {
		out = append(out, c)
	}
	b.climatesMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID() < out[j].UniqueID() })
	return out
}

// Climate returns the entity for deviceID.
func (b *Bridge) Climate(deviceID string) (*Climate, bool) {
	b.climatesMu.RLock()
	defer b.climatesMu.RUnlock()
	c, ok := b.climates[deviceID]
	return c, ok
}

// States returns the current representation of every entity.
func (b *Bridge) States() []ClimateState {
	climates := b.Climates()
	states := make([]ClimateState, 0, len(climates))
	for _, c := range climates {
		states = append(states, c.State())
	}
	return states
}

func (b *Bridge) fleetStats() (managed, online int) {
	for _, c := range b.Climates() {
		managed++
		if c.Available() {
			online++
		}
	}
	return managed, online
}

// publishState sends state everywhere it is consumed. Failures of the
// individual sinks are logged and do not stop the others.
func (b *Bridge) publishState(ctx context.Context, state ClimateState, source string) {
	id := state.UniqueID
	msg := NewStateMessage(state)

	if payload, err := json.Marshal(msg); err != nil {
		b.logError("failed to marshal state", err, "device_id", id)
	} else if err := b.mqtt.Publish(mqtt.Topics{}.State(id), payload, 1, true); err != nil {
		b.logError("failed to publish state", err, "device_id", id)
	}

	if b.registry != nil {
		if err := b.registry.SetDeviceState(ctx, id, state.ToMap()); err != nil {
			b.logError("failed to persist state", err, "device_id", id)
		}
		health := DeviceOffline
		if state.Available {
			health = DeviceOnline
		}
		if err := b.registry.SetDeviceHealth(ctx, id, health); err != nil {
			b.logError("failed to persist health", err, "device_id", id)
		}
	}

	if b.history != nil {
		if err := b.history.RecordStateChange(ctx, id, state.ToMap(), source); err != nil {
			b.logError("failed to record state history", err, "device_id", id)
		}
	}

	if b.telemetry != nil {
		if err := b.telemetry.WriteClimateState(state); err != nil {
			b.logDebug("telemetry write skipped", "device_id", id, "error", err)
		}
	}

	if b.broadcaster != nil {
		b.broadcaster.Broadcast(ChannelStateChanged, msg)
	}
}

type sourceKey struct{}

// withSource tags ctx with the origin of the state a listener will see.
func withSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceCommand
}

// errorCode maps an error from ExecuteCommand or a request to its wire code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrDeviceNotFound):
		return ErrCodeDeviceNotFound
	case errors.Is(err, ErrInvalidCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidParameters),
		errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrInvalidFanMode),
		errors.Is(err, ErrInvalidSwingMode):
		return ErrCodeInvalidParameters
	case errors.Is(err, ErrPendingChanges):
		return ErrCodePendingChanges
	default:
		return ErrCodeApplyFailed
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bridge) logError(msg string, err error, args ...any) {
	if b.logger != nil {
		b.logger.Error(msg, append([]any{"error", err}, args...)...)
	}
}
