package midea

import (
	"time"

	"github.com/google/uuid"
)

// Command names accepted on midea/command/{device_id} and the HTTP API.
const (
	CommandSetTemperature = "set_temperature"
	CommandSetHVACMode    = "set_hvac_mode"
	CommandSetFanMode     = "set_fan_mode"
	CommandSetSwingMode   = "set_swing_mode"
	CommandTurnOn         = "turn_on"
	CommandTurnOff        = "turn_off"
	CommandAwayModeOn     = "away_mode_on"
	CommandAwayModeOff    = "away_mode_off"
)

// Commands lists every supported command name.
func Commands() []string {
	return []string{
		CommandSetTemperature, CommandSetHVACMode, CommandSetFanMode, CommandSetSwingMode,
		CommandTurnOn, CommandTurnOff, CommandAwayModeOn, CommandAwayModeOff,
	}
}

// CommandMessage asks the bridge to change one appliance.
type CommandMessage struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	DeviceID   string         `json:"device_id"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source is where the command came from ("mqtt", "api").
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// Error codes carried by failed acks and responses.
const (
	ErrCodeDeviceNotFound    = "DEVICE_NOT_FOUND"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeApplyFailed       = "APPLY_FAILED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodePendingChanges    = "PENDING_CHANGES"
	ErrCodeRefreshFailed     = "REFRESH_FAILED"
)

// AckMessage answers a CommandMessage on midea/ack/{device_id}.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes why a command failed.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateMessage is the retained payload on midea/state/{device_id}.
type StateMessage struct {
	DeviceID  string       `json:"device_id"`
	Timestamp time.Time    `json:"timestamp"`
	State     ClimateState `json:"state"`
}

// Request actions accepted on midea/request/{device_id}.
const (
	ActionReadState = "read_state"
	ActionReadAll   = "read_all"
	ActionUpdate    = "update"
	ActionRefresh   = "refresh"
)

// RequestMessage asks for a read or a sync. The answer goes to
// midea/response/{request_id}.
type RequestMessage struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	DeviceID  string    `json:"device_id,omitempty"`
}

// ResponseMessage answers a RequestMessage.
type ResponseMessage struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     *AckError      `json:"error,omitempty"`
}

// HealthStatus is the bridge's overall state.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
	HealthOffline  HealthStatus = "offline"
)

// HealthMessage is the retained payload on midea/health.
type HealthMessage struct {
	Timestamp      time.Time    `json:"timestamp"`
	Status         HealthStatus `json:"status"`
	Version        string       `json:"version"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	DevicesManaged int          `json:"devices_managed"`
	DevicesOnline  int          `json:"devices_online"`
	Reason         string       `json:"reason,omitempty"`
}

// NewAck builds an accepted ack for cmd.
func NewAck(cmd CommandMessage) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    AckAccepted,
	}
}

// NewAckError builds a failed ack for cmd.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := NewAck(cmd)
	ack.Status = AckFailed
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewStateMessage wraps state for publishing.
func NewStateMessage(state ClimateState) StateMessage {
	return StateMessage{
		DeviceID:  state.UniqueID,
		Timestamp: time.Now().UTC(),
		State:     state,
	}
}

// NewResponse builds a successful response.
func NewResponse(req RequestMessage, data map[string]any) ResponseMessage {
	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Success:   true,
		Data:      data,
	}
}

// NewErrorResponse builds a failed response.
func NewErrorResponse(req RequestMessage, code, message string) ResponseMessage {
	return ResponseMessage{
		RequestID: req.RequestID,
		Timestamp: time.Now().UTC(),
		Error:     &AckError{Code: code, Message: message},
	}
}

// NewCommandID returns a fresh ID for commands that arrive without one.
func NewCommandID() string {
	return uuid.NewString()
}
