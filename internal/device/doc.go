// Package device keeps the registry of appliances managed by the bridge.
//
// Each managed appliance has a row in the devices table holding its
// classification, capabilities, health and the last state the bridge
// published for it. That persisted state survives restarts and is what the
// climate entities restore their snapshot from. Every published state is
// also appended to state_history for audit and the history API.
//
// The Registry wraps a Repository with an in-memory cache. Cached devices
// are deep-copied on the way in and out, so callers may mutate what they
// receive.
package device
