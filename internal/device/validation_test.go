package device

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Device)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Device) {}},
		{name: "empty id", mutate: func(d *Device) { d.ID = " " }, wantErr: true},
		{name: "empty name", mutate: func(d *Device) { d.Name = "" }, wantErr: true},
		{name: "long name", mutate: func(d *Device) { d.Name = strings.Repeat("x", maxNameLength+1) }, wantErr: true},
		{name: "wrong domain", mutate: func(d *Device) { d.Domain = "lighting" }, wantErr: true},
		{name: "wrong protocol", mutate: func(d *Device) { d.Protocol = "knx" }, wantErr: true},
		{name: "wrong type", mutate: func(d *Device) { d.Type = "dimmer" }, wantErr: true},
		{name: "appliance type out of range", mutate: func(d *Device) { d.ApplianceType = 0x100 }, wantErr: true},
		{name: "unknown capability", mutate: func(d *Device) { d.Capabilities = []Capability{"teleport"} }, wantErr: true},
		{name: "unknown health", mutate: func(d *Device) { d.HealthStatus = "sick" }, wantErr: true},
		{name: "known health", mutate: func(d *Device) { d.HealthStatus = HealthStatusOffline }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDevice("ac-1", "Living room")
			tt.mutate(d)
			err := ValidateDevice(d)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDevice) {
					t.Errorf("ValidateDevice() error = %v, want ErrInvalidDevice", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateDevice() unexpected error = %v", err)
			}
		})
	}
}

func TestValidateDevice_ReportsEveryProblem(t *testing.T) {
	err := ValidateDevice(&Device{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"id is required", "name is required", "unsupported domain"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestDevice_DeepCopy(t *testing.T) {
	d := testDevice("ac-1", "Living room")
	d.State = State{"modes": []any{"cool"}, "nested": map[string]any{"a": 1.0}}

	cpy := d.DeepCopy()
	cpy.State["modes"].([]any)[0] = "heat"
	cpy.State["nested"].(map[string]any)["a"] = 2.0
	cpy.Capabilities[0] = CapSwing

	if d.State["modes"].([]any)[0] != "cool" {
		t.Error("slice in state shared with copy")
	}
	if d.State["nested"].(map[string]any)["a"] != 1.0 {
		t.Error("nested map shared with copy")
	}
	if d.Capabilities[0] != CapOnOff {
		t.Error("capabilities shared with copy")
	}

	var nilDevice *Device
	if nilDevice.DeepCopy() != nil {
		t.Error("DeepCopy of nil should be nil")
	}
}
