package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezdnac/ezdnac/pkg/cli"
	"github.com/ezdnac/ezdnac/pkg/settings"
	"github.com/ezdnac/ezdnac/pkg/util"
)

// settingNames lists the keys accepted by settings get/set, in display order.
var settingNames = []string{
	"host", "port", "user", "verify_ssl", "timeout",
	"template_dir", "audit_log_path", "audit_max_size_mb", "audit_max_backups",
}

func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.ezdnac/settings.json
(or the file named by EZDNAC_SETTINGS).

Settings provide defaults for login and template commands:
  - host, port, user:  controller login defaults
  - template_dir:      --dir default for template pull/diff/push

Examples:
  ezdnac settings show
  ezdnac settings set template_dir ~/dnac-templates
  ezdnac settings set verify_ssl true
  ezdnac settings clear`,
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Settings file: %s\n\n", settings.DefaultSettingsPath())

			t := cli.NewTableTo(out, "SETTING", "VALUE")
			for _, name := range settingNames {
				value, _ := getSetting(userSettings, name)
				if value == "" {
					value = "(not set)"
				}
				t.Row(name, value)
			}
			token := "(not set)"
			if userSettings.AuthToken != "" {
				token = util.MaskSecret(userSettings.AuthToken)
			}
			t.Row("auth_token", token)
			t.Flush()
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <setting>",
		Short: "Get a setting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := getSetting(userSettings, args[0])
			if err != nil {
				return err
			}
			if value == "" {
				value = "(not set)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <setting> <value>",
		Short: "Set a setting value",
		Long: `Set a persistent setting value.

Available settings:
  ` + strings.Join(settingNames, ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setSetting(userSettings, args[0], args[1]); err != nil {
				return err
			}
			if err := userSettings.Save(); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to: %s\n", args[0], args[1])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all settings, including the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userSettings.Clear()
			if err := userSettings.Save(); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All settings cleared.")
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show settings file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), settings.DefaultSettingsPath())
		},
	}

	settingsCmd.AddCommand(showCmd, getCmd, setCmd, clearCmd, pathCmd)
	return settingsCmd
}

func unknownSetting(name string) error {
	return fmt.Errorf("unknown setting: %s (valid: %s)", name, strings.Join(settingNames, ", "))
}

func getSetting(s *settings.Settings, name string) (string, error) {
	switch name {
	case "host":
		return s.Host, nil
	case "port":
		return s.Port, nil
	case "user":
		return s.Username, nil
	case "verify_ssl":
		return strconv.FormatBool(s.VerifySSL), nil
	case "timeout":
		if s.TimeoutSeconds == 0 {
			return "", nil
		}
		return strconv.Itoa(s.TimeoutSeconds), nil
	case "template_dir":
		return s.TemplateDir, nil
	case "audit_log_path":
		return s.AuditLogPath, nil
	case "audit_max_size_mb":
		if s.AuditMaxSizeMB == 0 {
			return "", nil
		}
		return strconv.Itoa(s.AuditMaxSizeMB), nil
	case "audit_max_backups":
		if s.AuditMaxBackups == 0 {
			return "", nil
		}
		return strconv.Itoa(s.AuditMaxBackups), nil
	}
	return "", unknownSetting(name)
}

func setSetting(s *settings.Settings, name, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, value)
		}
		return n, nil
	}

	var err error
	switch name {
	case "host":
		s.Host = value
	case "port":
		if _, err = atoi(); err == nil {
			s.Port = value
		}
	case "user":
		s.Username = value
	case "verify_ssl":
		var b bool
		if b, err = strconv.ParseBool(value); err != nil {
			return fmt.Errorf("verify_ssl must be true or false, got %q", value)
		}
		s.VerifySSL = b
	case "timeout":
		s.TimeoutSeconds, err = atoi()
	case "template_dir":
		s.TemplateDir = value
	case "audit_log_path":
		s.AuditLogPath = value
	case "audit_max_size_mb":
		s.AuditMaxSizeMB, err = atoi()
	case "audit_max_backups":
		s.AuditMaxBackups, err = atoi()
	default:
		return unknownSetting(name)
	}
	return err
}
