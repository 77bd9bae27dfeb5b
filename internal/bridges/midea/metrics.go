package midea

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// ClimateSource lists the entities a collector reports on.
type ClimateSource interface {
	Climates() []*Climate
}

// MetricsCollector exports per-appliance gauges and command counters.
type MetricsCollector struct {
	source ClimateSource

	available      *prometheus.GaugeVec
	powerOn        *prometheus.GaugeVec
	awayMode       *prometheus.GaugeVec
	hvacMode       *prometheus.GaugeVec
	targetTemp     *prometheus.GaugeVec
	indoorTemp     *prometheus.GaugeVec
	outdoorTemp    *prometheus.GaugeVec
	snapshotActive *prometheus.GaugeVec
	pending        *prometheus.GaugeVec
	entities       prometheus.Gauge

	commands      *prometheus.CounterVec
	applyFailures *prometheus.CounterVec
}

// NewMetricsCollector creates a collector reading from source. A nil source
// is bound to the bridge the collector is passed to.
func NewMetricsCollector(source ClimateSource) *MetricsCollector {
	labels := []string{"device_id"}
	return &MetricsCollector{
		source: source,
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_available",
			Help: "Whether the appliance reports itself online (1=online, 0=offline)",
		}, labels),
		powerOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_power_on",
			Help: "Appliance power state (1=on, 0=off)",
		}, labels),
		awayMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_away_mode",
			Help: "Eco mode (1=active, 0=inactive)",
		}, labels),
		hvacMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_hvac_mode",
			Help: "Current hvac mode (1=active)",
		}, []string{"device_id", "mode"}),
		targetTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_target_temperature_celsius",
			Help: "Target temperature (celsius)",
		}, labels),
		indoorTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_indoor_temperature_celsius",
			Help: "Indoor temperature (celsius)",
		}, labels),
		outdoorTemp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_outdoor_temperature_celsius",
			Help: "Outdoor temperature (celsius)",
		}, labels),
		snapshotActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_snapshot_active",
			Help: "Whether the restored snapshot still governs reads (1=yes)",
		}, labels),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "midea_climate_pending_changes",
			Help: "Whether a change is waiting to be applied (1=yes)",
		}, labels),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "midea_climate_entities",
			Help: "Number of climate entities managed by the bridge",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midea_commands_total",
			Help: "Commands handled, by command and result",
		}, []string{"command", "result"}),
		applyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "midea_apply_failures_total",
			Help: "Failed pushes of pending changes to the appliance",
		}, labels),
	}
}

// ObserveCommand counts a handled command. Apply failures are also
// counted per device.
func (c *MetricsCollector) ObserveCommand(deviceID, command string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, ErrApplyFailed) {
			c.applyFailures.WithLabelValues(deviceID).Inc()
		}
	}
	c.commands.WithLabelValues(command, result).Inc()
}

func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.available.Describe(ch)
	c.powerOn.Describe(ch)
	c.awayMode.Describe(ch)
	c.hvacMode.Describe(ch)
	c.targetTemp.Describe(ch)
	c.indoorTemp.Describe(ch)
	c.outdoorTemp.Describe(ch)
	c.snapshotActive.Describe(ch)
	c.pending.Describe(ch)
	c.entities.Describe(ch)
	c.commands.Describe(ch)
	c.applyFailures.Describe(ch)
}

func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.available.Reset()
	c.powerOn.Reset()
	c.awayMode.Reset()
	c.hvacMode.Reset()
	c.targetTemp.Reset()
	c.indoorTemp.Reset()
	c.outdoorTemp.Reset()
	c.snapshotActive.Reset()
	c.pending.Reset()

	var climates []*Climate
	if c.source != nil {
		climates = c.source.Climates()
	}
	c.entities.Set(float64(len(climates)))

	for _, climate := range climates {
		id := climate.UniqueID()
		snapshot := climate.HasSnapshot()
		pending := climate.Pending()
		state := climate.State()

		c.available.WithLabelValues(id).Set(boolGauge(state.Available))
		c.powerOn.WithLabelValues(id).Set(boolGauge(state.IsOn))
		c.awayMode.WithLabelValues(id).Set(boolGauge(state.AwayMode))
		c.hvacMode.WithLabelValues(id, state.HVACMode).Set(1)
		c.targetTemp.WithLabelValues(id).Set(state.Temperature)
		c.indoorTemp.WithLabelValues(id).Set(state.CurrentTemperature)
		c.outdoorTemp.WithLabelValues(id).Set(state.OutdoorTemperature)
		c.snapshotActive.WithLabelValues(id).Set(boolGauge(snapshot))
		c.pending.WithLabelValues(id).Set(boolGauge(pending))
	}

	c.available.Collect(ch)
	c.powerOn.Collect(ch)
	c.awayMode.Collect(ch)
	c.hvacMode.Collect(ch)
	c.targetTemp.Collect(ch)
	c.indoorTemp.Collect(ch)
	c.outdoorTemp.Collect(ch)
	c.snapshotActive.Collect(ch)
	c.pending.Collect(ch)
	c.entities.Collect(ch)
	c.commands.Collect(ch)
	c.applyFailures.Collect(ch)
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
