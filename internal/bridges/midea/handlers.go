package midea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vistecsol/ha-midea-ac/internal/infrastructure/mqtt"
)

// handleMQTTMessage routes incoming messages by their second topic level.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	deviceID, ok := mqtt.DeviceIDFromTopic(topic)
	if !ok {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	switch strings.Split(topic, "/")[1] {
	case "command":
		b.handleCommand(deviceID, payload)
	case "request":
		b.handleRequest(deviceID, payload)
	default:
		b.logError("unknown message type", fmt.Errorf("topic: %s", topic))
	}
}

// handleCommand executes a command and acknowledges it on the device's
// ack topic. The topic's device ID wins over the one in the payload.
func (b *Bridge) handleCommand(deviceID string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err, "device_id", deviceID)
		b.publishAck(NewAckError(CommandMessage{ID: NewCommandID(), DeviceID: deviceID},
			ErrCodeInvalidCommand, "malformed command payload"))
		return
	}
	if cmd.ID == "" {
		cmd.ID = NewCommandID()
	}
	cmd.DeviceID = deviceID
	if cmd.Source == "" {
		cmd.Source = "mqtt"
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command,
		"source", cmd.Source)

	if _, err := b.ExecuteCommand(b.ctx, cmd.DeviceID, cmd.Command, cmd.Parameters); err != nil {
		b.logError("command execution failed", err, "command_id", cmd.ID, "device_id", cmd.DeviceID)
		b.publishAck(NewAckError(cmd, errorCode(err), err.Error()))
		return
	}
	b.publishAck(NewAck(cmd))
}

// ExecuteCommand runs one command against an entity and returns its state
// after the flush.
func (b *Bridge) ExecuteCommand(ctx context.Context, deviceID, command string, params map[string]any) (ClimateState, error) {
	state, err := b.executeCommand(ctx, deviceID, command, params)
	b.metrics.ObserveCommand(deviceID, command, err)
	return state, err
}

func (b *Bridge) executeCommand(ctx context.Context, deviceID, command string, params map[string]any) (ClimateState, error) {
	climate, ok := b.Climate(deviceID)
	if !ok {
		return ClimateState{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	ctx = withSource(ctx, SourceCommand)

	var err error
	switch command {
	case CommandSetTemperature:
		var t float64
		if t, err = numberParam(params, "temperature"); err == nil {
			err = climate.SetTemperature(ctx, t)
		}
	case CommandSetHVACMode:
		var mode string
		if mode, err = stringParam(params, "hvac_mode"); err == nil {
			err = climate.SetHVACMode(ctx, mode)
		}
	case CommandSetFanMode:
		var mode string
		if mode, err = stringParam(params, "fan_mode"); err == nil {
			err = climate.SetFanMode(ctx, mode)
		}
	case CommandSetSwingMode:
		var mode string
		if mode, err = stringParam(params, "swing_mode"); err == nil {
			err = climate.SetSwingMode(ctx, mode)
		}
	case CommandTurnOn:
		err = climate.TurnOn(ctx)
	case CommandTurnOff:
		err = climate.TurnOff(ctx)
	case CommandAwayModeOn:
		err = climate.TurnAwayModeOn(ctx)
	case CommandAwayModeOff:
		err = climate.TurnAwayModeOff(ctx)
	default:
		return ClimateState{}, fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}
	if err != nil {
		return ClimateState{}, err
	}
	return climate.State(), nil
}

// numberParam reads a finite number. NaN and infinities are rejected so
// they never reach the appliance or the JSON state.
func numberParam(params map[string]any, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParameters, key)
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalidParameters, key, err)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParameters, key)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParameters, key)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrInvalidParameters, key)
	}
	return f, nil
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidParameters, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidParameters, key)
	}
	return s, nil
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.Ack(ack.DeviceID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err, "device_id", ack.DeviceID)
	}
}

// handleRequest answers a request on midea/response/{request_id}.
func (b *Bridge) handleRequest(deviceID string, payload []byte) {
	var req RequestMessage
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logError("failed to parse request", err)
		return
	}
	if req.RequestID == "" {
		b.logWarn("request without request_id dropped", "device_id", deviceID, "action", req.Action)
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = deviceID
	}

	b.logInfo("received request",
		"request_id", req.RequestID,
		"action", req.Action,
		"device_id", req.DeviceID)

	resp := b.HandleRequest(b.ctx, req)

	respPayload, err := json.Marshal(resp)
	if err != nil {
		b.logError("failed to marshal response", err)
		return
	}
	if err := b.mqtt.Publish(mqtt.Topics{}.Response(req.RequestID), respPayload, 1, false); err != nil {
		b.logError("failed to publish response", err)
	}
}

// HandleRequest runs a read_state, read_all, update or refresh request.
func (b *Bridge) HandleRequest(ctx context.Context, req RequestMessage) ResponseMessage {
	if req.Action == ActionReadAll {
		return NewResponse(req, map[string]any{"states": b.States()})
	}

	climate, ok := b.Climate(req.DeviceID)
	switch req.Action {
	case ActionReadState, ActionUpdate, ActionRefresh:
		if !ok {
			return NewErrorResponse(req, ErrCodeDeviceNotFound,
				fmt.Sprintf("device %s not found", req.DeviceID))
		}
	default:
		return NewErrorResponse(req, ErrCodeInvalidRequest,
			fmt.Sprintf("unknown action: %s", req.Action))
	}

	switch req.Action {
	case ActionUpdate:
		if err := climate.Update(withSource(ctx, SourceCommand)); err != nil {
			return NewErrorResponse(req, ErrCodeApplyFailed, err.Error())
		}
	case ActionRefresh:
		if err := climate.Refresh(withSource(ctx, SourceRefresh)); err != nil {
			code := ErrCodeRefreshFailed
			if errors.Is(err, ErrPendingChanges) {
				code = ErrCodePendingChanges
			}
			return NewErrorResponse(req, code, err.Error())
		}
	}
	return NewResponse(req, map[string]any{"state": climate.State()})
}
