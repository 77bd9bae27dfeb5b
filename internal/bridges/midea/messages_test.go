package midea

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCommandMessageJSON(t *testing.T) {
	payload := `{
		"id": "cmd-123",
		"timestamp": "2026-01-20T10:30:00Z",
		"device_id": "sim-ac-1",
		"command": "set_temperature",
		"parameters": {"temperature": 22.5}
	}`

	var cmd CommandMessage
	if err := json.Unmarshal([]byte(payload), &cmd); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cmd.ID != "cmd-123" || cmd.DeviceID != "sim-ac-1" || cmd.Command != CommandSetTemperature {
		t.Errorf("decoded = %+v", cmd)
	}
	if !cmd.Timestamp.Equal(time.Date(2026, 1, 20, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", cmd.Timestamp)
	}
	if got, err := numberParam(cmd.Parameters, "temperature"); err != nil || got != 22.5 {
		t.Errorf("temperature = %v, %v", got, err)
	}
}

func TestNewAckError(t *testing.T) {
	cmd := CommandMessage{ID: "cmd-1", DeviceID: "sim-ac-1", Command: CommandTurnOn}

	ack := NewAckError(cmd, ErrCodeApplyFailed, "cloud timeout")
	if ack.Status != AckFailed {
		t.Errorf("Status = %q, want failed", ack.Status)
	}
	if ack.CommandID != "cmd-1" || ack.DeviceID != "sim-ac-1" {
		t.Errorf("ack = %+v", ack)
	}
	if ack.Error == nil || ack.Error.Code != ErrCodeApplyFailed {
		t.Errorf("Error = %+v", ack.Error)
	}

	data, err := json.Marshal(NewAck(cmd))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, present := raw["error"]; present {
		t.Error("accepted ack should omit error")
	}
}

func TestStateMessageJSON(t *testing.T) {
	msg := NewStateMessage(ClimateState{
		UniqueID:    "sim-ac-1",
		HVACMode:    "cool",
		HVACModes:   []string{"auto", "cool", "off"},
		Temperature: 24,
	})
	if msg.DeviceID != "sim-ac-1" {
		t.Errorf("DeviceID = %q", msg.DeviceID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	state, ok := raw["state"].(map[string]any)
	if !ok {
		t.Fatalf("state missing from %s", data)
	}
	if state["hvac_mode"] != "cool" || state["temperature"] != 24.0 {
		t.Errorf("state = %v", state)
	}
}

func TestResponses(t *testing.T) {
	req := RequestMessage{RequestID: "req-1", Action: ActionReadState}

	ok := NewResponse(req, map[string]any{"x": 1})
	if !ok.Success || ok.RequestID != "req-1" || ok.Error != nil {
		t.Errorf("NewResponse = %+v", ok)
	}

	bad := NewErrorResponse(req, ErrCodeInvalidRequest, "nope")
	if bad.Success || bad.Error == nil || bad.Error.Code != ErrCodeInvalidRequest {
		t.Errorf("NewErrorResponse = %+v", bad)
	}
}

func TestNewCommandID(t *testing.T) {
	id := NewCommandID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("NewCommandID() = %q is not a UUID: %v", id, err)
	}
	if id == NewCommandID() {
		t.Error("NewCommandID() returned the same ID twice")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrDeviceNotFound, ErrCodeDeviceNotFound},
		{ErrInvalidCommand, ErrCodeInvalidCommand},
		{ErrInvalidParameters, ErrCodeInvalidParameters},
		{ErrInvalidMode, ErrCodeInvalidParameters},
		{ErrInvalidFanMode, ErrCodeInvalidParameters},
		{ErrInvalidSwingMode, ErrCodeInvalidParameters},
		{ErrPendingChanges, ErrCodePendingChanges},
		{ErrApplyFailed, ErrCodeApplyFailed},
		{errors.New("other"), ErrCodeApplyFailed},
	}
	for _, tt := range tests {
		if got := errorCode(tt.err); got != tt.want {
			t.Errorf("errorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParams(t *testing.T) {
	params := map[string]any{
		"f":     21.5,
		"i":     22,
		"n":     json.Number("23.5"),
		"s":     "24",
		"bad":   true,
		"mode":  "cool",
		"empty": "",

		"nan":    "NaN",
		"inf":    "Inf",
		"neginf": "-Inf",
		"fnan":   math.NaN(),
		"finf":   math.Inf(1),
	}

	for key, want := range map[string]float64{"f": 21.5, "i": 22, "n": 23.5, "s": 24} {
		if got, err := numberParam(params, key); err != nil || got != want {
			t.Errorf("numberParam(%s) = %v, %v; want %v", key, got, err, want)
		}
	}
	for _, key := range []string{"bad", "missing", "mode", "nan", "inf", "neginf", "fnan", "finf"} {
		if _, err := numberParam(params, key); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("numberParam(%s) error = %v, want ErrInvalidParameters", key, err)
		}
	}

	if got, err := stringParam(params, "mode"); err != nil || got != "cool" {
		t.Errorf("stringParam(mode) = %q, %v", got, err)
	}
	for _, key := range []string{"empty", "f", "missing"} {
		if _, err := stringParam(params, key); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("stringParam(%s) error = %v, want ErrInvalidParameters", key, err)
		}
	}
}
