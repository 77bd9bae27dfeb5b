package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository persists devices.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Device, error)
	List(ctx context.Context) ([]Device, error)
	Create(ctx context.Context, device *Device) error
	Delete(ctx context.Context, id string) error

	// UpdateState replaces the stored state.
	UpdateState(ctx context.Context, id string, state State) error
	UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error
}

// SQLiteRepository implements Repository on the devices table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository using db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDeviceColumns = `
	SELECT id, name, type, domain, protocol, appliance_type, capabilities,
	       state, state_updated_at, health_status, health_last_seen,
	       created_at, updated_at
	FROM devices`

// GetByID returns ErrDeviceNotFound when no row matches.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDeviceColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting device %s: %w", id, err)
	}
	return d, nil
}

// List returns every device ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDeviceColumns+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts device and sets its timestamps. It returns ErrDeviceExists
// when the ID is taken.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	caps, err := json.Marshal(capabilitiesOrEmpty(device.Capabilities))
	if err != nil {
		return fmt.Errorf("marshalling capabilities: %w", err)
	}
	state, err := json.Marshal(stateOrEmpty(device.State))
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}
	if device.HealthStatus == "" {
		device.HealthStatus = HealthStatusUnknown
	}

	now := time.Now().UTC()
	device.CreatedAt, device.UpdatedAt = now, now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, type, domain, protocol, appliance_type,
		                     capabilities, state, state_updated_at, health_status,
		                     health_last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID, device.Name, string(device.Type), string(device.Domain), string(device.Protocol),
		device.ApplianceType, string(caps), string(state), nullableTime(device.StateUpdatedAt),
		string(device.HealthStatus), nullableTime(device.HealthLastSeen),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Delete removes the device and, through the foreign key, its history.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return expectOneRow(result)
}

// UpdateState replaces the stored state of a device.
func (r *SQLiteRepository) UpdateState(ctx context.Context, id string, state State) error {
	stateJSON, err := json.Marshal(stateOrEmpty(state))
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET state = ?, state_updated_at = ?, updated_at = ?
		WHERE id = ?`,
		string(stateJSON), now, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating device state: %w", err)
	}
	return expectOneRow(result)
}

// UpdateHealth updates the health status and last seen timestamp.
func (r *SQLiteRepository) UpdateHealth(ctx context.Context, id string, status HealthStatus, lastSeen time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET health_status = ?, health_last_seen = ?, updated_at = ?
		WHERE id = ?`,
		string(status), lastSeen.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating device health: %w", err)
	}
	return expectOneRow(result)
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d                        Device
		typ, domain, protocol    string
		capsJSON, stateJSON      string
		health                   string
		stateUpdated, healthSeen sql.NullString
		createdAt, updatedAt     string
	)
	if err := row.Scan(&d.ID, &d.Name, &typ, &domain, &protocol, &d.ApplianceType, &capsJSON,
		&stateJSON, &stateUpdated, &health, &healthSeen, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d.Type, d.Domain, d.Protocol = DeviceType(typ), Domain(domain), Protocol(protocol)
	d.HealthStatus = HealthStatus(health)

	if err := json.Unmarshal([]byte(capsJSON), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &d.State); err != nil {
		return nil, fmt.Errorf("unmarshalling state: %w", err)
	}

	var err error
	if d.StateUpdatedAt, err = parseNullableTime(stateUpdated); err != nil {
		return nil, err
	}
	if d.HealthLastSeen, err = parseNullableTime(healthSeen); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func capabilitiesOrEmpty(c []Capability) []Capability {
	if c == nil {
		return []Capability{}
	}
	return c
}

func stateOrEmpty(s State) State {
	if s == nil {
		return State{}
	}
	return s
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil //nolint:nilnil // absent timestamp is not an error
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
