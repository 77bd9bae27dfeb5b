package midea

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestSnapshotFromState_DecodedJSON(t *testing.T) {
	raw := `{
		"hvac_mode": "heat",
		"fan_mode": "Low",
		"swing_mode": "Vertical",
		"temperature": 21,
		"is_on": true,
		"current_temperature": 19.5,
		"hvac_modes": ["auto", "cool", "off"],
		"fan_modes": ["High", "Low"],
		"swing_modes": ["Off"]
	}`
	var state map[string]any
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		t.Fatal(err)
	}

	s, ok := SnapshotFromState(state)
	if !ok {
		t.Fatal("SnapshotFromState() = false")
	}
	if s.State != "heat" || s.FanMode != "Low" || s.SwingMode != "Vertical" || s.Temperature != 21 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Power == nil || !*s.Power {
		t.Error("Power should be recorded as true")
	}
	if s.CurrentTemperature == nil || *s.CurrentTemperature != 19.5 {
		t.Errorf("CurrentTemperature = %v", s.CurrentTemperature)
	}
	if !slices.Equal(s.HVACModes, []string{"auto", "cool", "off"}) {
		t.Errorf("HVACModes = %v", s.HVACModes)
	}
	if !slices.Equal(s.FanModes, []string{"High", "Low"}) {
		t.Errorf("FanModes = %v", s.FanModes)
	}
}

func TestSnapshotFromState_ClimateStateMap(t *testing.T) {
	state := ClimateState{
		HVACMode:    "cool",
		HVACModes:   []string{"cool"},
		FanMode:     "Auto",
		SwingMode:   "Off",
		Temperature: 24,
		IsOn:        false,
	}

	s, ok := SnapshotFromState(state.ToMap())
	if !ok {
		t.Fatal("SnapshotFromState() = false")
	}
	if s.Power == nil || *s.Power {
		t.Error("Power should be recorded as false")
	}
	if !slices.Equal(s.HVACModes, []string{"cool"}) {
		t.Errorf("HVACModes = %v", s.HVACModes)
	}
}

func TestSnapshotFromState_Incomplete(t *testing.T) {
	complete := map[string]any{
		"hvac_mode":   "cool",
		"fan_mode":    "Auto",
		"swing_mode":  "Off",
		"temperature": 24.0,
	}

	if _, ok := SnapshotFromState(nil); ok {
		t.Error("nil state should not produce a snapshot")
	}

	for key := range complete {
		t.Run("without "+key, func(t *testing.T) {
			state := make(map[string]any, len(complete))
			for k, v := range complete {
				if k != key {
					state[k] = v
				}
			}
			if _, ok := SnapshotFromState(state); ok {
				t.Errorf("state without %s should not produce a snapshot", key)
			}
		})
	}

	t.Run("wrong type", func(t *testing.T) {
		state := map[string]any{
			"hvac_mode":   "cool",
			"fan_mode":    "Auto",
			"swing_mode":  "Off",
			"temperature": "24",
		}
		if _, ok := SnapshotFromState(state); ok {
			t.Error("string temperature should not produce a snapshot")
		}
	})
}

func TestSnapshotFromState_OptionalFieldsAbsent(t *testing.T) {
	s, ok := SnapshotFromState(map[string]any{
		"hvac_mode":   "dry",
		"fan_mode":    "Medium",
		"swing_mode":  "Both",
		"temperature": 25,
	})
	if !ok {
		t.Fatal("SnapshotFromState() = false")
	}
	if s.Power != nil || s.CurrentTemperature != nil {
		t.Errorf("optional fields should be nil: %+v", s)
	}
	if s.HVACModes != nil || s.FanModes != nil || s.SwingModes != nil {
		t.Errorf("lists should be nil: %+v", s)
	}
}
