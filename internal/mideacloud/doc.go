// Package mideacloud defines the contract between the bridge and a Midea
// cloud client.
//
// The bridge never talks to the Midea cloud directly. It opens a Client
// through a registered driver, lists the appliances bound to the account,
// and drives each appliance through plain attribute getters and setters
// followed by Apply (push the accumulated changes) or Refresh (pull the
// current appliance state).
//
//	┌──────────────┐  Devices/Apply/Refresh  ┌──────────────┐
//	│ midea bridge │◄───────────────────────►│    driver    │◄──► Midea cloud
//	└──────────────┘                          └──────────────┘
//
// # Drivers
//
// Drivers register themselves by name, in the manner of database/sql:
//
//	mideacloud.Register("simulator", openSimulator)
//	client, err := mideacloud.Open(ctx, mideacloud.Config{Driver: "simulator", ...})
//
// The "simulator" driver is built in. It keeps a remote copy of each
// appliance in memory so that Apply and Refresh behave like round trips
// to a real cloud.
//
// # Thread Safety
//
// Setters on an Appliance only change the local copy; callers serialise
// access per appliance. The simulator itself is safe for concurrent use.
package mideacloud
