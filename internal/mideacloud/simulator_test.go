package mideacloud

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func openTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	client, err := Open(context.Background(), Config{
		Credentials: Credentials{AppKey: "key", Username: "user", Password: "pass"},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sim, ok := client.(*Simulator)
	if !ok {
		t.Fatalf("Open() returned %T, want *Simulator", client)
	}
	return sim
}

func TestOpen_MissingCredentials(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Credentials: Credentials{AppKey: "key", Username: "user"},
	})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Open() error = %v, want ErrMissingCredentials", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Driver:      "cloud-v9",
		Credentials: Credentials{AppKey: "key", Username: "user", Password: "pass"},
	})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("Open() error = %v, want ErrUnknownDriver", err)
	}
}

func TestDrivers_IncludesSimulator(t *testing.T) {
	found := false
	for _, name := range Drivers() {
		if name == DefaultDriver {
			found = true
		}
	}
	if !found {
		t.Errorf("Drivers() = %v, want it to include %q", Drivers(), DefaultDriver)
	}
}

func TestCredentialsString_RedactsPassword(t *testing.T) {
	s := Credentials{AppKey: "k", Username: "u", Password: "hunter2"}.String()
	if strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked password: %s", s)
	}
}

func TestSimulator_DefaultFleet(t *testing.T) {
	sim := openTestSimulator(t)
	devices, err := sim.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Devices() returned %d appliances, want 2", len(devices))
	}
	if devices[0].Type() != TypeAirConditioner {
		t.Errorf("first appliance type = %s, want 0xac", devices[0].Type())
	}
}

func TestSimulator_ApplyPushesLocalChanges(t *testing.T) {
	sim := openTestSimulator(t)
	dev := sim.Device("sim-ac-1")

	dev.SetPowerState(true)
	dev.SetOperationalMode(ModeHeat)
	dev.SetTargetTemperature(21)

	if dev.Remote().Mode != ModeCool {
		t.Fatal("setters must not reach the remote record before Apply")
	}
	if err := dev.Apply(context.Background()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	remote := dev.Remote()
	if !remote.PowerState || remote.Mode != ModeHeat || remote.TargetTemperature != 21 {
		t.Errorf("remote after Apply = %+v", remote)
	}
	if dev.ApplyCount() != 1 {
		t.Errorf("ApplyCount() = %d, want 1", dev.ApplyCount())
	}
}

func TestSimulator_RefreshDiscardsLocalChanges(t *testing.T) {
	sim := openTestSimulator(t)
	dev := sim.Device("sim-ac-1")

	dev.SetFanSpeed(FanLow)
	if err := dev.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if dev.FanSpeed() != FanAuto {
		t.Errorf("FanSpeed() after Refresh = %s, want Auto", dev.FanSpeed())
	}
}

func TestSimulator_FailNextApply(t *testing.T) {
	sim := openTestSimulator(t)
	dev := sim.Device("sim-ac-1")
	boom := errors.New("cloud unavailable")

	dev.FailNextApply(boom)
	dev.SetEcoMode(true)
	if err := dev.Apply(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Apply() error = %v, want injected error", err)
	}
	if dev.Remote().EcoMode {
		t.Error("failed Apply must not change the remote record")
	}
	if err := dev.Apply(context.Background()); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if !dev.Remote().EcoMode {
		t.Error("second Apply should push eco mode")
	}
}

func TestSimulator_Offline(t *testing.T) {
	sim := openTestSimulator(t)
	dev := sim.Device("sim-ac-1")
	dev.SetOnline(false)

	if dev.Online() {
		t.Error("Online() = true after SetOnline(false)")
	}
	if err := dev.Apply(context.Background()); !errors.Is(err, ErrApplianceOffline) {
		t.Errorf("Apply() error = %v, want ErrApplianceOffline", err)
	}
}

func TestSimulator_Closed(t *testing.T) {
	sim := openTestSimulator(t)
	if err := sim.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := sim.Devices(context.Background()); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Devices() after Close error = %v, want ErrClientClosed", err)
	}
}
