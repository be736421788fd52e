package config

import (
	"errors"
	"testing"
	"time"
)

func fakeEnv(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := loadFrom(fakeEnv(nil))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected development default, got %s", cfg.Environment)
	}
	if cfg.RollupTimezone != "Asia/Kolkata" {
		t.Fatalf("expected Asia/Kolkata default, got %s", cfg.RollupTimezone)
	}
	if !cfg.DevModeAllowed() {
		t.Fatal("expected dev mode allowed outside production")
	}
}

func TestLoadFromProductionRequiresSigningKey(t *testing.T) {
	_, err := loadFrom(fakeEnv(map[string]string{"ENVIRONMENT": "production"}))
	if !errors.Is(err, ErrSigningKeyRequired) {
		t.Fatalf("expected ErrSigningKeyRequired, got %v", err)
	}
}

func TestLoadFromProductionWithSigningKeySucceeds(t *testing.T) {
	cfg, err := loadFrom(fakeEnv(map[string]string{
		"ENVIRONMENT":          "production",
		"SNAPSHOT_SIGNING_KEY": "a-real-key",
	}))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.DevModeAllowed() {
		t.Fatal("expected dev mode forbidden in production")
	}
	if cfg.SnapshotSigningKey != "a-real-key" {
		t.Fatalf("unexpected signing key: %s", cfg.SnapshotSigningKey)
	}
}

func TestSMTPConfigReflectsLoadedValues(t *testing.T) {
	cfg, err := loadFrom(fakeEnv(map[string]string{
		"TOWER_SMTP_HOST": "smtp.example.com",
		"TOWER_SMTP_PORT": "587",
		"TOWER_SMTP_FROM": "tower@example.com",
		"TOWER_SMTP_TO":   "ops@example.com",
	}))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	smtp := cfg.SMTPConfig()
	if !smtp.Enabled() {
		t.Fatalf("expected SMTP config to be enabled, got %+v", smtp)
	}
	if smtp.Port != 587 {
		t.Fatalf("expected port 587, got %d", smtp.Port)
	}
}

func TestEnvOrDefaultIntFallsBackOnBadValue(t *testing.T) {
	got := envOrDefaultInt(fakeEnv(map[string]string{"X": "not-a-number"}), "X", 25)
	if got != 25 {
		t.Fatalf("expected fallback 25, got %d", got)
	}
}

func TestEnvOrDefaultDurationFallsBackOnBadValue(t *testing.T) {
	got := envOrDefaultDuration(fakeEnv(map[string]string{"X": "not-a-duration"}), "X", 15*time.Minute)
	if got != 15*time.Minute {
		t.Fatalf("expected fallback 15m, got %s", got)
	}
}

func TestLoadFromDefaultsSnapshotCadence(t *testing.T) {
	cfg, err := loadFrom(fakeEnv(nil))
	if err != nil {
		t.Fatalf("loadFrom: %v", err)
	}
	if cfg.SnapshotCadence != 15*time.Minute {
		t.Fatalf("expected 15m default cadence, got %s", cfg.SnapshotCadence)
	}
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	got := splitCSV(" shipment_index, corridor_sla ,,heatmap")
	want := []string{"shipment_index", "corridor_sla", "heatmap"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSplitCSVEmptyInputIsNil(t *testing.T) {
	if got := splitCSV(""); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
