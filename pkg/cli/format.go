// Package cli provides shared formatting helpers for the ezdnac CLI.
package cli

import (
	"os"
	"strings"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// SetColor forces color output on or off.
func SetColor(enabled bool) {
	colorEnabled = enabled
}

func wrap(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + "\033[0m"
}

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string { return wrap("\033[32m", s) }

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string { return wrap("\033[33m", s) }

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string { return wrap("\033[31m", s) }

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string { return wrap("\033[1m", s) }

// Dim wraps s in ANSI dim. Returns s unchanged when NO_COLOR is set.
func Dim(s string) string { return wrap("\033[2m", s) }

// DotPad pads name with dots to the given width.
// Example: DotPad("base-config", 20) → "base-config ........"
func DotPad(name string, width int) string {
	if width <= 0 || len(name) >= width-1 {
		return name
	}
	dots := width - len(name) - 1
	return name + " " + strings.Repeat(".", dots)
}

// State colors a device or sync state for table output.
func State(s string) string {
	switch strings.ToLower(s) {
	case "provisioned", "managed", "success", "reachable", "none":
		return Green(s)
	case "unclaimed", "planned", "onboarding", "in progress", "create-template", "create-project", "update":
		return Yellow(s)
	case "error", "failure", "unreachable", "partial collection failure":
		return Red(s)
	}
	return s
}
