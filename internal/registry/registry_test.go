package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fleetmon/internal/config"
	"fleetmon/internal/models"
)

func TestNewDefaultFleet(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if r.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", r.Len())
	}

	list := r.List()
	for i := 1; i < len(list); i++ {
		if list[i-1].MachineID >= list[i].MachineID {
			t.Fatalf("List() not sorted: %s before %s", list[i-1].MachineID, list[i].MachineID)
		}
	}

	p, err := r.Get("MCH-003")
	if err != nil {
		t.Fatalf("Get(MCH-003) error: %v", err)
	}
	if p.BaseHealth != 28 {
		t.Errorf("MCH-003 base health = %v, want 28", p.BaseHealth)
	}
	if p.LastMaintenance.IsZero() || p.NextScheduled.IsZero() {
		t.Error("maintenance dates must be derived for default fleet")
	}
	if !p.LastMaintenance.Before(p.NextScheduled) {
		t.Error("last maintenance must precede the next scheduled one")
	}
}

func TestNewFromFleetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	data := `machines:
  - machine_id: PUMP-01
    name: Coolant Pump
    type: Pump
    location: Basement
    base_health: 75
    degradation_rate: 0.05
    volatility: 1.0
  - machine_id: FAN-02
    name: Exhaust Fan
    type: Fan
    location: Roof
    base_health: 90
    degradation_rate: 0.01
    volatility: 0.2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := New(path)
	if err != nil {
		t.Fatalf("New(%s) error: %v", path, err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	p, err := r.Get("PUMP-01")
	if err != nil {
		t.Fatalf("Get(PUMP-01) error: %v", err)
	}
	if p.Name != "Coolant Pump" || p.BaseHealth != 75 {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestNewBadFleetFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing fleet file must fail")
	}
}

func TestFromProfilesValidation(t *testing.T) {
	tests := []struct {
		name     string
		profiles []config.FleetProfile
	}{
		{
			name:     "empty machine ID",
			profiles: []config.FleetProfile{{Name: "X", BaseHealth: 50}},
		},
		{
			name: "base health out of range",
			profiles: []config.FleetProfile{
				{MachineID: "M1", Name: "X", BaseHealth: 150},
			},
		},
		{
			name: "duplicate IDs",
			profiles: []config.FleetProfile{
				{MachineID: "M1", Name: "X", BaseHealth: 50},
				{MachineID: "M1", Name: "Y", BaseHealth: 60},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromProfiles(tt.profiles); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestGetUnknown(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get("MCH-999"); !errors.Is(err, ErrMachineNotFound) {
		t.Errorf("Get(MCH-999) error = %v, want ErrMachineNotFound", err)
	}
}

func TestAdd(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatal(err)
	}

	p := models.MachineProfile{MachineID: "MCH-100", Name: "New Press", BaseHealth: 95}
	if err := r.Add(p); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if r.Len() != 7 {
		t.Errorf("Len() = %d after add, want 7", r.Len())
	}

	if err := r.Add(p); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate Add() error = %v, want ErrDuplicateID", err)
	}

	bad := models.MachineProfile{MachineID: "MCH-101", Name: "Bad", BaseHealth: -1}
	if err := r.Add(bad); err == nil {
		t.Error("invalid profile must be rejected")
	}
}

func TestMaintenanceOffsetStable(t *testing.T) {
	a := maintenanceOffset("MCH-001", 20, 60)
	b := maintenanceOffset("MCH-001", 20, 60)
	if a != b {
		t.Errorf("offset not stable: %d vs %d", a, b)
	}
	if a < 20 || a >= 60 {
		t.Errorf("offset %d outside [20,60)", a)
	}
}
