package config

import (
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.ActorID != 1 {
		t.Fatalf("ActorID = %d, want 1", cfg.General.ActorID)
	}
	if Exists() {
		t.Fatal("Exists() = true before Save")
	}
}

func TestSaveLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.General.DatabasePath = "/srv/ptab/ptab.db"
	cfg.General.ActorID = 12
	cfg.Import.DefaultYear = 2025
	cfg.Import.DefaultProject = "PTAB"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.General.ActorID != 12 || got.Import.DefaultYear != 2025 || got.Import.DefaultProject != "PTAB" {
		t.Fatalf("loaded config = %+v", got)
	}
	if p := DatabasePath(got); p != "/srv/ptab/ptab.db" {
		t.Fatalf("DatabasePath = %q, want /srv/ptab/ptab.db", p)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PTAB_DB", "/tmp/override.db")
	t.Setenv("PTAB_ACTOR", "42")

	cfg := DefaultConfig()
	if p := DatabasePath(cfg); p != "/tmp/override.db" {
		t.Fatalf("DatabasePath = %q, want /tmp/override.db", p)
	}
	id, err := ActorID(cfg)
	if err != nil || id != 42 {
		t.Fatalf("ActorID = %d, %v, want 42", id, err)
	}

	t.Setenv("PTAB_ACTOR", "nobody")
	if _, err := ActorID(cfg); err == nil {
		t.Fatal("ActorID accepted a non-numeric override")
	}
}

func TestDatabasePath_DataDirDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PTAB_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	if p := DatabasePath(DefaultConfig()); p != filepath.Join(dir, "ptab", "ptab.db") {
		t.Fatalf("DatabasePath = %q", p)
	}
}
