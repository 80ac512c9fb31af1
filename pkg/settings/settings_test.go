package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetStoreAddr(); got != DefaultStoreAddr {
		t.Errorf("GetStoreAddr() default = %q, want %q", got, DefaultStoreAddr)
	}
	if s.DefaultTag != 0 {
		t.Errorf("DefaultTag should be 0 (unscoped), got %d", s.DefaultTag)
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	original := &Settings{
		StoreAddr:  "10.1.1.1:6379",
		StoreDB:    4,
		DefaultTag: 42,
		SSHUser:    "admin",
	}
	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if *loaded != *original {
		t.Errorf("LoadFrom() = %+v, want %+v", loaded, original)
	}
}

func TestSettings_LoadMissingFile(t *testing.T) {
	loaded, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadFrom() on missing file should return empty settings, got error: %v", err)
	}
	if *loaded != (Settings{}) {
		t.Errorf("LoadFrom() on missing file = %+v, want zero settings", loaded)
	}
}

func TestSettings_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() on malformed file should error")
	}
}
