// Package midea exposes Midea air conditioners as climate entities and
// bridges them to MQTT.
//
// # Reconciliation
//
// Each Climate mediates between three sources of truth:
//
//   - the Snapshot restored from the state persisted by the previous run,
//   - the live mideacloud.Appliance handle,
//   - local changes made through the setters that have not been applied.
//
// While the snapshot is present, reads of hvac mode, fan mode, swing mode
// and target temperature return the snapshot value and write it into the
// handle. Setters mutate the handle, mark the entity changed and flush at
// once. A successful flush drops the snapshot for the lifetime of the
// entity; a failed one keeps it and leaves the change pending.
//
// # Topics
//
//	midea/command/{device_id}    in   CommandMessage
//	midea/ack/{device_id}        out  AckMessage
//	midea/state/{device_id}      out  StateMessage (retained)
//	midea/request/{device_id}    in   RequestMessage
//	midea/response/{request_id}  out  ResponseMessage
//	midea/health                 out  HealthMessage (retained, LWT)
//
// # Thread Safety
//
// All exported types are safe for concurrent use. Commands on one entity
// are serialised.
package midea
