package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockRepository is an in-memory Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device

	createErr       error
	updateStateErr  error
	updateHealthErr error
	listCalls       int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{devices: make(map[string]*Device)}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.devices[d.ID]; exists {
		return ErrDeviceExists
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	m.devices[d.ID] = d.DeepCopy()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MockRepository) UpdateState(_ context.Context, id string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateStateErr != nil {
		return m.updateStateErr
	}
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.State = deepCopyMap(state)
	return nil
}

func (m *MockRepository) UpdateHealth(_ context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateHealthErr != nil {
		return m.updateHealthErr
	}
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.HealthStatus = status
	d.HealthLastSeen = &lastSeen
	return nil
}

func testDevice(id, name string) *Device {
	return &Device{
		ID:            id,
		Name:          name,
		Type:          DeviceTypeAirConditioner,
		Domain:        DomainClimate,
		Protocol:      ProtocolMidea,
		ApplianceType: 0xAC,
		Capabilities:  []Capability{CapOnOff, CapTemperatureSet},
	}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMockRepository())

	if err := reg.CreateDevice(ctx, testDevice("ac-1", "Living room")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, err := reg.GetDevice(ctx, "ac-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Living room" {
		t.Errorf("Name = %q, want %q", got.Name, "Living room")
	}
	if reg.GetDeviceCount() != 1 {
		t.Errorf("GetDeviceCount() = %d, want 1", reg.GetDeviceCount())
	}
}

func TestRegistry_CreateDevice_Invalid(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	d := testDevice("ac-1", "")

	err := reg.CreateDevice(context.Background(), d)
	if !errors.Is(err, ErrInvalidDevice) {
		t.Fatalf("CreateDevice() error = %v, want ErrInvalidDevice", err)
	}
	if reg.GetDeviceCount() != 0 {
		t.Error("invalid device should not be cached")
	}
}

func TestRegistry_GetDevice_NotFound(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	if _, err := reg.GetDevice(context.Background(), "missing"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_GetDevice_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMockRepository())
	d := testDevice("ac-1", "Living room")
	d.State = State{"hvac_mode": "cool"}
	if err := reg.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	got, _ := reg.GetDevice(ctx, "ac-1")
	got.State["hvac_mode"] = "heat"
	got.Name = "changed"

	again, _ := reg.GetDevice(ctx, "ac-1")
	if again.State["hvac_mode"] != "cool" {
		t.Errorf("cache state mutated through returned copy: %v", again.State["hvac_mode"])
	}
	if again.Name != "Living room" {
		t.Errorf("cache name mutated through returned copy: %q", again.Name)
	}
}

func TestRegistry_CreateDeviceIfNotExists(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMockRepository())

	first := testDevice("ac-1", "First")
	first.State = State{"temperature": 22.0}
	got, created, err := reg.CreateDeviceIfNotExists(ctx, first)
	if err != nil {
		t.Fatalf("CreateDeviceIfNotExists() error = %v", err)
	}
	if !created {
		t.Error("first call should create the device")
	}
	if got.Name != "First" {
		t.Errorf("Name = %q, want First", got.Name)
	}

	got, created, err = reg.CreateDeviceIfNotExists(ctx, testDevice("ac-1", "Second"))
	if err != nil {
		t.Fatalf("CreateDeviceIfNotExists() error = %v", err)
	}
	if created {
		t.Error("second call should return the existing device")
	}
	if got.Name != "First" {
		t.Errorf("Name = %q, want the stored name First", got.Name)
	}
	if got.State["temperature"] != 22.0 {
		t.Errorf("stored state lost: %v", got.State)
	}
}

func TestRegistry_CreateDeviceIfNotExists_RepoError(t *testing.T) {
	repo := NewMockRepository()
	repo.createErr = errors.New("disk full")
	reg := NewRegistry(repo)

	if _, _, err := reg.CreateDeviceIfNotExists(context.Background(), testDevice("ac-1", "x")); err == nil {
		t.Error("expected repository error")
	}
}

func TestRegistry_SetDeviceState_ReplacesState(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMockRepository())
	d := testDevice("ac-1", "Living room")
	d.State = State{"hvac_mode": "cool", "stale": true}
	if err := reg.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := reg.SetDeviceState(ctx, "ac-1", State{"hvac_mode": "heat"}); err != nil {
		t.Fatalf("SetDeviceState() error = %v", err)
	}

	got, _ := reg.GetDevice(ctx, "ac-1")
	if got.State["hvac_mode"] != "heat" {
		t.Errorf("hvac_mode = %v, want heat", got.State["hvac_mode"])
	}
	if _, ok := got.State["stale"]; ok {
		t.Error("SetDeviceState should replace, not merge")
	}
	if got.StateUpdatedAt == nil {
		t.Error("StateUpdatedAt should be set")
	}
}

func TestRegistry_SetDeviceState_Error(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	d := testDevice("ac-1", "Living room")
	d.State = State{"hvac_mode": "cool"}
	if err := reg.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	repo.updateStateErr = errors.New("locked")
	if err := reg.SetDeviceState(ctx, "ac-1", State{"hvac_mode": "heat"}); err == nil {
		t.Fatal("expected error")
	}
	got, _ := reg.GetDevice(ctx, "ac-1")
	if got.State["hvac_mode"] != "cool" {
		t.Errorf("cache changed despite repository error: %v", got.State)
	}
}

func TestRegistry_SetDeviceHealth(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMockRepository())
	if err := reg.CreateDevice(ctx, testDevice("ac-1", "Living room")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	if err := reg.SetDeviceHealth(ctx, "ac-1", HealthStatusOffline); err != nil {
		t.Fatalf("SetDeviceHealth() error = %v", err)
	}
	got, _ := reg.GetDevice(ctx, "ac-1")
	if got.HealthStatus != HealthStatusOffline {
		t.Errorf("HealthStatus = %q, want offline", got.HealthStatus)
	}
	if got.HealthLastSeen == nil {
		t.Error("HealthLastSeen should be set")
	}
}

func TestRegistry_DeleteDevice(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMockRepository())
	if err := reg.CreateDevice(ctx, testDevice("ac-1", "Living room")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if err := reg.DeleteDevice(ctx, "ac-1"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := reg.GetDevice(ctx, "ac-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() after delete error = %v, want ErrDeviceNotFound", err)
	}
	if err := reg.DeleteDevice(ctx, "ac-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second DeleteDevice() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_RefreshCacheAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	repo.devices["b"] = testDevice("b", "Bedroom")
	repo.devices["a"] = testDevice("a", "Attic")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.GetDeviceCount() != 2 {
		t.Fatalf("GetDeviceCount() = %d, want 2", reg.GetDeviceCount())
	}

	listed, err := reg.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(listed) != 2 || listed[0].Name != "Attic" || listed[1].Name != "Bedroom" {
		t.Errorf("ListDevices() = %+v, want Attic then Bedroom", listed)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(NewMockRepository())
	if err := reg.CreateDevice(ctx, testDevice("ac-1", "Living room")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = reg.SetDeviceState(ctx, "ac-1", State{"temperature": float64(n)})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = reg.GetDevice(ctx, "ac-1")
			_, _ = reg.ListDevices(ctx)
		}()
	}
	wg.Wait()
}
