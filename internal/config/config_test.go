package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("SNOOZE_AFTER", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != StoreDriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Store.Driver)
	}
	if cfg.Reminders.SnoozeAfter != 30*time.Minute {
		t.Fatalf("expected 30m snooze, got %s", cfg.Reminders.SnoozeAfter)
	}
	if cfg.Reminders.RecoveryDebounce != 10*time.Second {
		t.Fatalf("expected 10s debounce, got %s", cfg.Reminders.RecoveryDebounce)
	}
	if got := cfg.Location().String(); got != "Europe/Kyiv" {
		t.Fatalf("expected Europe/Kyiv, got %s", got)
	}
	if cfg.Database.URL == "" {
		t.Fatalf("expected database url to be built from parts")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("DRAFT_TTL", "90")
	t.Setenv("RECOVER_ALL_OFFSETS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.UsesPostgres() {
		t.Fatalf("expected memory driver")
	}
	if cfg.Reminders.DraftTTL != 90*time.Second {
		t.Fatalf("expected seconds fallback parsing, got %s", cfg.Reminders.DraftTTL)
	}
	if !cfg.Reminders.RecoverAllOffsets {
		t.Fatalf("expected RecoverAllOffsets to be set")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string][2]string{
		"driver":   {"STORE_DRIVER", "sqlite"},
		"timezone": {"TIMEZONE", "Mars/Olympus"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", "")
			t.Setenv("TIMEZONE", "")
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
