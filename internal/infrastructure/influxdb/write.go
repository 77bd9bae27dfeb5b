package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementClimate       = "climate"
	MeasurementDeviceMetrics = "device_metrics"
)

// ClimateReading is one published climate state, flattened for storage.
// Nil temperatures are omitted from the point.
type ClimateReading struct {
	DeviceID  string
	HVACMode  string
	FanMode   string
	SwingMode string

	On        bool
	Available bool
	AwayMode  bool

	TargetTemperature  float64
	CurrentTemperature *float64
	OutdoorTemperature *float64
}

// NewClimatePoint builds the point stored for r. Modes are tags so queries
// can group by them; temperatures and flags are fields.
func NewClimatePoint(r ClimateReading, ts time.Time) *write.Point {
	tags := map[string]string{
		"device_id":  r.DeviceID,
		"hvac_mode":  r.HVACMode,
		"fan_mode":   r.FanMode,
		"swing_mode": r.SwingMode,
	}
	fields := map[string]interface{}{
		"target_temperature": r.TargetTemperature,
		"on":                 r.On,
		"available":          r.Available,
		"away_mode":          r.AwayMode,
	}
	if r.CurrentTemperature != nil {
		fields["current_temperature"] = *r.CurrentTemperature
	}
	if r.OutdoorTemperature != nil {
		fields["outdoor_temperature"] = *r.OutdoorTemperature
	}
	return write.NewPoint(MeasurementClimate, tags, fields, ts)
}

// WriteClimateReading queues a climate point. It is a no-op when disconnected.
func (c *Client) WriteClimateReading(r ClimateReading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(NewClimatePoint(r, time.Now()))
}

// WriteDeviceMetric queues a single named value for a device, such as
// "apply_failures".
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		MeasurementDeviceMetrics,
		map[string]string{"device_id": deviceID, "measurement": measurement},
		map[string]interface{}{"value": value},
		time.Now(),
	))
}
