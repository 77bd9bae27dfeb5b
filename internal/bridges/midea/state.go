package midea

// ClimateState is the externally observed representation of an entity.
// It is what the bridge publishes and persists, and what the next session
// restores its snapshot from.
type ClimateState struct {
	UniqueID     string `json:"unique_id"`
	FriendlyName string `json:"friendly_name"`

	HVACMode   string   `json:"hvac_mode"`
	HVACModes  []string `json:"hvac_modes"`
	FanMode    string   `json:"fan_mode"`
	FanModes   []string `json:"fan_modes"`
	SwingMode  string   `json:"swing_mode"`
	SwingModes []string `json:"swing_modes"`

	Temperature        float64 `json:"temperature"`
	CurrentTemperature float64 `json:"current_temperature"`
	OutdoorTemperature float64 `json:"outdoor_temperature"`
	TargetTempStep     float64 `json:"target_temp_step"`
	MinTemp            float64 `json:"min_temp"`
	MaxTemp            float64 `json:"max_temp"`
	TemperatureUnit    string  `json:"temperature_unit"`

	AwayMode          bool `json:"away_mode"`
	IsOn              bool `json:"is_on"`
	Available         bool `json:"available"`
	AssumedState      bool `json:"assumed_state"`
	SupportedFeatures int  `json:"supported_features"`
}

// ToMap flattens the state for the device registry. Lists are copied.
func (s ClimateState) ToMap() map[string]any {
	return map[string]any{
		"unique_id":           s.UniqueID,
		"friendly_name":       s.FriendlyName,
		"hvac_mode":           s.HVACMode,
		"hvac_modes":          append([]string(nil), s.HVACModes...),
		"fan_mode":            s.FanMode,
		"fan_modes":           append([]string(nil), s.FanModes...),
		"swing_mode":          s.SwingMode,
		"swing_modes":         append([]string(nil), s.SwingModes...),
		"temperature":         s.Temperature,
		"current_temperature": s.CurrentTemperature,
		"outdoor_temperature": s.OutdoorTemperature,
		"target_temp_step":    s.TargetTempStep,
		"min_temp":            s.MinTemp,
		"max_temp":            s.MaxTemp,
		"temperature_unit":    s.TemperatureUnit,
		"away_mode":           s.AwayMode,
		"is_on":               s.IsOn,
		"available":           s.Available,
		"assumed_state":       s.AssumedState,
		"supported_features":  s.SupportedFeatures,
	}
}
