package midea

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type staticSource []*Climate

func (s staticSource) Climates() []*Climate { return s }

func gather(t *testing.T, c prometheus.Collector) map[string][]*dto.Metric {
	t.Helper()
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	out := make(map[string][]*dto.Metric, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf.GetMetric()
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestMetricsCollector_Gauges(t *testing.T) {
	app := newFakeAppliance("ac-1")
	c := NewClimate(app, ClimateConfig{IncludeOffAsState: true}, coolSnapshot())

	metrics := gather(t, NewMetricsCollector(staticSource{c}))

	checks := map[string]float64{
		"midea_climate_available":                   1,
		"midea_climate_power_on":                    1,
		"midea_climate_away_mode":                   0,
		"midea_climate_target_temperature_celsius":  23,
		"midea_climate_indoor_temperature_celsius":  27,
		"midea_climate_outdoor_temperature_celsius": 8,
		"midea_climate_snapshot_active":             1,
		"midea_climate_pending_changes":             0,
	}
	for name, want := range checks {
		ms := metrics[name]
		if len(ms) != 1 {
			t.Errorf("%s: %d series, want 1", name, len(ms))
			continue
		}
		if got := ms[0].GetGauge().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
		if labelValue(ms[0], "device_id") != "ac-1" {
			t.Errorf("%s device_id = %q", name, labelValue(ms[0], "device_id"))
		}
	}

	modes := metrics["midea_climate_hvac_mode"]
	if len(modes) != 1 || labelValue(modes[0], "mode") != "cool" {
		t.Errorf("hvac mode series = %v", modes)
	}
	if got := metrics["midea_climate_entities"][0].GetGauge().GetValue(); got != 1 {
		t.Errorf("entities = %v, want 1", got)
	}
}

func TestMetricsCollector_Commands(t *testing.T) {
	mc := NewMetricsCollector(staticSource{})

	mc.ObserveCommand("ac-1", CommandTurnOn, nil)
	mc.ObserveCommand("ac-1", CommandTurnOn, fmt.Errorf("%w: boom", ErrApplyFailed))
	mc.ObserveCommand("ac-1", CommandSetFanMode, ErrInvalidFanMode)

	metrics := gather(t, mc)

	results := make(map[string]float64)
	for _, m := range metrics["midea_commands_total"] {
		results[labelValue(m, "command")+"/"+labelValue(m, "result")] = m.GetCounter().GetValue()
	}
	want := map[string]float64{
		"turn_on/ok":         1,
		"turn_on/error":      1,
		"set_fan_mode/error": 1,
	}
	for k, v := range want {
		if results[k] != v {
			t.Errorf("commands %s = %v, want %v", k, results[k], v)
		}
	}

	failures := metrics["midea_apply_failures_total"]
	if len(failures) != 1 || failures[0].GetCounter().GetValue() != 1 {
		t.Errorf("apply failures = %v, want one series at 1", failures)
	}
}

func TestMetricsCollector_NilIsSafe(t *testing.T) {
	var mc *MetricsCollector
	mc.ObserveCommand("ac-1", CommandTurnOff, errors.New("x"))
}

func TestMetricsCollector_ReflectsPendingAfterFailure(t *testing.T) {
	app := newFakeAppliance("ac-1")
	app.setApplyErr(errors.New("offline"))
	c := NewClimate(app, ClimateConfig{}, nil)
	_ = c.TurnOff(context.Background())

	metrics := gather(t, NewMetricsCollector(staticSource{c}))
	if got := metrics["midea_climate_pending_changes"][0].GetGauge().GetValue(); got != 1 {
		t.Errorf("pending = %v, want 1", got)
	}
	if got := metrics["midea_climate_snapshot_active"][0].GetGauge().GetValue(); got != 0 {
		t.Errorf("snapshot_active = %v, want 0", got)
	}
}
