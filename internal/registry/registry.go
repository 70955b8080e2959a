package registry

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"fleetmon/internal/config"
	"fleetmon/internal/models"
)

// Registry errors
var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrDuplicateID     = errors.New("machine ID already exists")
)

// Registry holds the static degradation profiles for the fleet. Profiles
// are immutable once registered; the lock only guards runtime additions.
type Registry struct {
	mu       sync.RWMutex
	machines map[string]models.MachineProfile
}

// defaultFleet mirrors the standard six-machine demo fleet.
var defaultFleet = []config.FleetProfile{
	{MachineID: "MCH-001", Name: "CNC Milling Unit Alpha", Type: "CNC Machine",
		Location: "Bay A - Floor 2", BaseHealth: 87, DegradationRate: 0.02, Volatility: 0.5},
	{MachineID: "MCH-002", Name: "Hydraulic Press Beta", Type: "Hydraulic Press",
		Location: "Bay B - Floor 1", BaseHealth: 54, DegradationRate: 0.08, Volatility: 1.5},
	{MachineID: "MCH-003", Name: "Conveyor System Gamma", Type: "Conveyor",
		Location: "Assembly Line 3", BaseHealth: 28, DegradationRate: 0.15, Volatility: 2.0},
	{MachineID: "MCH-004", Name: "Robotic Arm Delta", Type: "Robot",
		Location: "Cell 7 - Floor 3", BaseHealth: 92, DegradationRate: 0.01, Volatility: 0.3},
	{MachineID: "MCH-005", Name: "Injection Molder Epsilon", Type: "Injection Molder",
		Location: "Plastics Bay", BaseHealth: 63, DegradationRate: 0.06, Volatility: 1.2},
	{MachineID: "MCH-006", Name: "Lathe Machine Zeta", Type: "Lathe",
		Location: "Bay A - Floor 1", BaseHealth: 79, DegradationRate: 0.03, Volatility: 0.8},
}

// New builds a registry from the fleet file when configured, falling back
// to the built-in default fleet.
func New(fleetFile string) (*Registry, error) {
	profiles := defaultFleet
	if fleetFile != "" {
		loaded, err := config.LoadFleet(fleetFile)
		if err != nil {
			return nil, err
		}
		profiles = loaded
	}
	return FromProfiles(profiles)
}

// FromProfiles builds a registry from explicit profile entries.
func FromProfiles(profiles []config.FleetProfile) (*Registry, error) {
	r := &Registry{machines: make(map[string]models.MachineProfile, len(profiles))}
	now := time.Now().UTC()

	for _, fp := range profiles {
		p := models.MachineProfile{
			MachineID:       fp.MachineID,
			Name:            fp.Name,
			Type:            fp.Type,
			Location:        fp.Location,
			BaseHealth:      fp.BaseHealth,
			DegradationRate: fp.DegradationRate,
			Volatility:      fp.Volatility,
			LastMaintenance: now.AddDate(0, 0, -maintenanceOffset(fp.MachineID, 20, 60)),
			NextScheduled:   now.AddDate(0, 0, maintenanceOffset(fp.MachineID, 10, 40)),
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", fp.MachineID, err)
		}
		if _, dup := r.machines[p.MachineID]; dup {
			return nil, fmt.Errorf("profile %s: %w", p.MachineID, ErrDuplicateID)
		}
		r.machines[p.MachineID] = p
	}

	return r, nil
}

// Get returns the profile for a machine ID.
func (r *Registry) Get(machineID string) (models.MachineProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.machines[machineID]
	if !ok {
		return models.MachineProfile{}, ErrMachineNotFound
	}
	return p, nil
}

// List returns all profiles ordered by machine ID.
func (r *Registry) List() []models.MachineProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.MachineProfile, 0, len(r.machines))
	for _, p := range r.machines {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MachineID < out[j].MachineID })
	return out
}

// Add registers a machine at runtime. The profile must validate and the
// ID must be unused.
func (r *Registry) Add(p models.MachineProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.machines[p.MachineID]; dup {
		return ErrDuplicateID
	}
	r.machines[p.MachineID] = p
	return nil
}

// Len returns the number of registered machines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}

// maintenanceOffset derives a stable pseudo-random day offset in [min,max)
// from the machine ID, so restarts show consistent maintenance dates.
func maintenanceOffset(machineID string, min, max int) int {
	h := fnv.New32a()
	h.Write([]byte(machineID))
	return min + int(h.Sum32())%(max-min)
}
