package main

import (
	"context"
	"fmt"

	"github.com/vistecsol/ha-midea-ac/internal/bridges/midea"
	"github.com/vistecsol/ha-midea-ac/internal/device"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/config"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/influxdb"
	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/mqtt"
	"github.com/vistecsol/ha-midea-ac/internal/mideacloud"
)

// mqttSubscriber is the part of the infrastructure MQTT client the adapter
// wraps. *mqtt.Client satisfies it.
type mqttSubscriber interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	IsConnected() bool
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The primary difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Midea bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client mqttSubscriber
}

// Publish implements midea.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements midea.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Bridge handlers report failures through acks, never through the return value.
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements midea.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// registryAdapter exposes the device registry to the bridge.
type registryAdapter struct {
	registry *device.Registry
}

// EnsureDevice implements midea.DeviceRegistry.
func (a *registryAdapter) EnsureDevice(ctx context.Context, seed midea.DeviceSeed) (map[string]any, error) {
	caps := make([]device.Capability, 0, len(seed.Capabilities))
	for _, c := range seed.Capabilities {
		caps = append(caps, device.Capability(c))
	}

	d, _, err := a.registry.CreateDeviceIfNotExists(ctx, &device.Device{
		ID:            seed.ID,
		Name:          seed.Name,
		Type:          device.DeviceTypeAirConditioner,
		Domain:        device.DomainClimate,
		Protocol:      device.ProtocolMidea,
		ApplianceType: seed.ApplianceType,
		Capabilities:  caps,
		HealthStatus:  device.HealthStatusUnknown,
	})
	if err != nil {
		return nil, err
	}
	return d.State, nil
}

// SetDeviceState implements midea.DeviceRegistry.
func (a *registryAdapter) SetDeviceState(ctx context.Context, id string, state map[string]any) error {
	return a.registry.SetDeviceState(ctx, id, device.State(state))
}

// SetDeviceHealth implements midea.DeviceRegistry.
func (a *registryAdapter) SetDeviceHealth(ctx context.Context, id string, status string) error {
	return a.registry.SetDeviceHealth(ctx, id, device.HealthStatus(status))
}

// historyAdapter records published states in the state history table.
type historyAdapter struct {
	repo device.StateHistoryRepository
}

// RecordStateChange implements midea.StateRecorder.
func (a *historyAdapter) RecordStateChange(ctx context.Context, deviceID string, state map[string]any, source string) error {
	return a.repo.RecordStateChange(ctx, deviceID, device.State(state), source)
}

// climateWriter is the part of the InfluxDB client the telemetry adapter uses.
type climateWriter interface {
	WriteClimateReading(r influxdb.ClimateReading)
}

// influxTelemetryAdapter flattens published states into InfluxDB points.
type influxTelemetryAdapter struct {
	client climateWriter
}

// WriteClimateState implements midea.TelemetryWriter.
func (a *influxTelemetryAdapter) WriteClimateState(s midea.ClimateState) error {
	a.client.WriteClimateReading(climateReading(s))
	return nil
}

func climateReading(s midea.ClimateState) influxdb.ClimateReading {
	current := s.CurrentTemperature
	outdoor := s.OutdoorTemperature
	return influxdb.ClimateReading{
		DeviceID:           s.UniqueID,
		HVACMode:           s.HVACMode,
		FanMode:            s.FanMode,
		SwingMode:          s.SwingMode,
		On:                 s.IsOn,
		Available:          s.Available,
		AwayMode:           s.AwayMode,
		TargetTemperature:  s.Temperature,
		CurrentTemperature: &current,
		OutdoorTemperature: &outdoor,
	}
}

// simulatedFleet converts the configured simulator devices. An empty list
// lets the driver fall back to its default fleet.
func simulatedFleet(cfg config.SimulatorConfig) ([]mideacloud.SimulatedAppliance, error) {
	fleet := make([]mideacloud.SimulatedAppliance, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		app := mideacloud.SimulatedAppliance{
			ID:                 d.ID,
			Type:               mideacloud.DeviceType(d.Type),
			Online:             d.Online,
			PowerState:         d.Power,
			Mode:               mideacloud.ModeAuto,
			FanSpeed:           mideacloud.FanAuto,
			SwingMode:          mideacloud.SwingOff,
			EcoMode:            d.EcoMode,
			TargetTemperature:  d.TargetTemperature,
			IndoorTemperature:  d.IndoorTemperature,
			OutdoorTemperature: d.OutdoorTemperature,
		}

		var err error
		if d.Mode != "" {
			if app.Mode, err = mideacloud.ParseOperationalMode(d.Mode); err != nil {
				return nil, fmt.Errorf("device %s: %w", d.ID, err)
			}
		}
		if d.FanSpeed != "" {
			if app.FanSpeed, err = mideacloud.ParseFanSpeed(d.FanSpeed); err != nil {
				return nil, fmt.Errorf("device %s: %w", d.ID, err)
			}
		}
		if d.SwingMode != "" {
			if app.SwingMode, err = mideacloud.ParseSwingMode(d.SwingMode); err != nil {
				return nil, fmt.Errorf("device %s: %w", d.ID, err)
			}
		}
		fleet = append(fleet, app)
	}
	return fleet, nil
}
