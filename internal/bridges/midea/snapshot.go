package midea

// Snapshot is the last state published for an entity before the process
// started. It is read from the persisted device state and is immutable.
type Snapshot struct {
	State       string
	FanMode     string
	SwingMode   string
	Temperature float64

	// Power is the recorded is_on value. Nil when it was not recorded.
	Power *bool

	CurrentTemperature *float64

	HVACModes  []string
	FanModes   []string
	SwingModes []string
}

// SnapshotFromState rebuilds a snapshot from a persisted climate state as
// produced by ClimateState.ToMap and read back from JSON. It reports false
// when the state lacks any of hvac_mode, fan_mode, swing_mode or
// temperature, in which case the entity starts without a snapshot.
func SnapshotFromState(state map[string]any) (*Snapshot, bool) {
	if len(state) == 0 {
		return nil, false
	}

	s := &Snapshot{}
	var ok bool
	if s.State, ok = stringField(state, "hvac_mode"); !ok {
		return nil, false
	}
	if s.FanMode, ok = stringField(state, "fan_mode"); !ok {
		return nil, false
	}
	if s.SwingMode, ok = stringField(state, "swing_mode"); !ok {
		return nil, false
	}
	if s.Temperature, ok = numberField(state, "temperature"); !ok {
		return nil, false
	}

	if on, ok := state["is_on"].(bool); ok {
		s.Power = &on
	}
	if t, ok := numberField(state, "current_temperature"); ok {
		s.CurrentTemperature = &t
	}
	s.HVACModes = stringsField(state, "hvac_modes")
	s.FanModes = stringsField(state, "fan_modes")
	s.SwingModes = stringsField(state, "swing_modes")

	return s, true
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// stringsField accepts both []string (in-process) and []any (decoded JSON).
func stringsField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
