// Package settings manages persistent user settings for the ezdnac CLI,
// including the controller address and the cached auth token.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// EnvPath overrides the settings file location when set.
const EnvPath = "EZDNAC_SETTINGS"

const (
	DefaultPort           = "443"
	DefaultTimeoutSeconds = 5
	DefaultAuditMaxSizeMB = 10
	DefaultAuditBackups   = 10
)

// Settings holds persistent user preferences and the controller session
type Settings struct {
	// Controller connection
	Host           string `json:"host,omitempty"`
	Port           string `json:"port,omitempty"`
	Username       string `json:"username,omitempty"`
	AuthToken      string `json:"auth_token,omitempty"`
	VerifySSL      bool   `json:"verify_ssl,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`

	// TemplateDir is the default --dir for template pull/push/diff
	TemplateDir string `json:"template_dir,omitempty"`

	// Audit log
	AuditLogPath    string `json:"audit_log_path,omitempty"`
	AuditMaxSizeMB  int    `json:"audit_max_size_mb,omitempty"`
	AuditMaxBackups int    `json:"audit_max_backups,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "ezdnac_settings.json"
	}
	return filepath.Join(home, ".ezdnac", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path. The file holds a token, so it
// is only readable by the owner.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(path, 0600)
}

// HasSession reports whether login details are complete.
func (s *Settings) HasSession() bool {
	return s.Host != "" && s.Username != "" && s.AuthToken != ""
}

// SetSession records a successful login
func (s *Settings) SetSession(host, port, user, token string) {
	s.Host = host
	s.Port = port
	s.Username = user
	s.AuthToken = token
}

// ClearSession forgets the cached token but keeps the controller address
func (s *Settings) ClearSession() {
	s.AuthToken = ""
}

// GetPort returns the controller port (with fallback)
func (s *Settings) GetPort() string {
	if s.Port != "" {
		return s.Port
	}
	return DefaultPort
}

// GetTimeout returns the per-request timeout (with fallback)
func (s *Settings) GetTimeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return DefaultTimeoutSeconds * time.Second
}

// GetAuditLogPath returns the audit log location (with fallback next to the
// settings file)
func (s *Settings) GetAuditLogPath() string {
	if s.AuditLogPath != "" {
		return s.AuditLogPath
	}
	return filepath.Join(filepath.Dir(DefaultSettingsPath()), "audit.log")
}

// GetAuditMaxSizeMB returns the rotation size (with fallback)
func (s *Settings) GetAuditMaxSizeMB() int {
	if s.AuditMaxSizeMB > 0 {
		return s.AuditMaxSizeMB
	}
	return DefaultAuditMaxSizeMB
}

// GetAuditMaxBackups returns the number of rotated files kept (with fallback)
func (s *Settings) GetAuditMaxBackups() int {
	if s.AuditMaxBackups > 0 {
		return s.AuditMaxBackups
	}
	return DefaultAuditBackups
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
