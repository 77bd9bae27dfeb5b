// Package mqtt is the bridge's connection to the MQTT broker.
//
// It wraps paho.mqtt.golang with validation, subscription tracking across
// reconnects, handler panic recovery, and a retained health status on
// midea/health that the broker flips to offline through the LWT when the
// bridge disappears.
//
// Topic layout:
//
//	midea/command/{device_id}    commands in
//	midea/ack/{device_id}        command acknowledgements out
//	midea/state/{device_id}      retained climate state out
//	midea/request/{device_id}    read/update/refresh requests in
//	midea/response/{request_id}  request responses out
//	midea/health                 retained bridge health out
package mqtt
