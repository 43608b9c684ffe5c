package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetPort(); got != "443" {
		t.Errorf("GetPort() default = %q, want %q", got, "443")
	}
	if got := s.GetTimeout(); got != 5*time.Second {
		t.Errorf("GetTimeout() default = %v, want 5s", got)
	}
	if s.GetAuditMaxSizeMB() != 10 || s.GetAuditMaxBackups() != 10 {
		t.Errorf("audit defaults = %d/%d", s.GetAuditMaxSizeMB(), s.GetAuditMaxBackups())
	}
	if s.HasSession() {
		t.Error("empty settings should not have a session")
	}
}

func TestSettings_Overrides(t *testing.T) {
	s := &Settings{
		Port:           "8443",
		TimeoutSeconds: 30,
		AuditLogPath:   "/tmp/ezdnac-audit.log",
	}
	if s.GetPort() != "8443" {
		t.Errorf("GetPort() = %q", s.GetPort())
	}
	if s.GetTimeout() != 30*time.Second {
		t.Errorf("GetTimeout() = %v", s.GetTimeout())
	}
	if s.GetAuditLogPath() != "/tmp/ezdnac-audit.log" {
		t.Errorf("GetAuditLogPath() = %q", s.GetAuditLogPath())
	}
}

func TestSettings_Session(t *testing.T) {
	s := &Settings{}
	s.SetSession("10.10.20.85", "443", "devnetuser", "tok-123")
	if !s.HasSession() {
		t.Fatal("SetSession should produce a complete session")
	}

	s.ClearSession()
	if s.HasSession() {
		t.Error("ClearSession should drop the token")
	}
	if s.Host != "10.10.20.85" || s.Username != "devnetuser" {
		t.Error("ClearSession should keep host and username")
	}

	s.Clear()
	if s.Host != "" || s.Port != "" {
		t.Error("Clear() should reset all fields")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	original := &Settings{
		Host:           "sandboxdnac.cisco.com",
		Port:           "443",
		Username:       "devnetuser",
		AuthToken:      "eyJhbGciOiJSUzI1NiJ9",
		VerifySSL:      true,
		TimeoutSeconds: 12,
		TemplateDir:    "templates/",
	}
	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("settings file mode = %o, want 600", perm)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if *loaded != *original {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, original)
	}
}

func TestSettings_SaveTightensExistingMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	s := &Settings{AuthToken: "secret"}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}
	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil || s.Host != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("invalid json {"), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with invalid JSON should error")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	t.Setenv("HOME", "/home/netops")
	if got := DefaultSettingsPath(); got != "/home/netops/.ezdnac/settings.json" {
		t.Errorf("DefaultSettingsPath() = %q", got)
	}

	t.Setenv(EnvPath, "/etc/ezdnac/settings.json")
	if got := DefaultSettingsPath(); got != "/etc/ezdnac/settings.json" {
		t.Errorf("DefaultSettingsPath() with %s = %q", EnvPath, got)
	}
}

func TestLoadSave_DefaultLocation(t *testing.T) {
	t.Setenv(EnvPath, filepath.Join(t.TempDir(), "settings.json"))

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	s.Host = "10.0.0.1"
	if err := s.Save(); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reloaded, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if reloaded.Host != "10.0.0.1" {
		t.Errorf("Host = %q", reloaded.Host)
	}
}
