package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Monitor.TickInterval != 60*time.Second {
		t.Errorf("TickInterval = %v, want 60s", cfg.Monitor.TickInterval)
	}
	if cfg.Monitor.AlertCooldown != 3*time.Minute {
		t.Errorf("AlertCooldown = %v, want 3m", cfg.Monitor.AlertCooldown)
	}
	if cfg.SMTP.Enabled() {
		t.Error("SMTP must be disabled by default")
	}
	if cfg.Kafka.Enabled() {
		t.Error("Kafka export must be disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "5s")
	t.Setenv("ALERT_COOLDOWN", "90s")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM_EMAIL", "alerts@example.com")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()

	if cfg.Monitor.TickInterval != 5*time.Second {
		t.Errorf("TickInterval = %v, want 5s", cfg.Monitor.TickInterval)
	}
	if cfg.Monitor.AlertCooldown != 90*time.Second {
		t.Errorf("AlertCooldown = %v, want 90s", cfg.Monitor.AlertCooldown)
	}
	if !cfg.SMTP.Enabled() {
		t.Error("SMTP must be enabled with host and from set")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v, want [k1:9092 k2:9092]", cfg.Kafka.Brokers)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q", cfg.Redis.Addr)
	}
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "often")
	cfg := Load()
	if cfg.Monitor.TickInterval != 60*time.Second {
		t.Errorf("TickInterval = %v, want default on parse failure", cfg.Monitor.TickInterval)
	}
}

func TestLoadFleet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	data := `machines:
  - machine_id: M1
    name: One
    base_health: 80
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadFleet(path)
	if err != nil {
		t.Fatalf("LoadFleet error: %v", err)
	}
	if len(profiles) != 1 || profiles[0].MachineID != "M1" || profiles[0].BaseHealth != 80 {
		t.Errorf("unexpected profiles: %+v", profiles)
	}
}

func TestLoadFleetErrors(t *testing.T) {
	if _, err := LoadFleet(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file must fail")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("machines: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFleet(empty); err == nil {
		t.Error("empty fleet must fail")
	}
}
