// ezdnac - command line client for Cisco DNA Center
//
// ezdnac keeps a controller session in ~/.ezdnac/settings.json and offers
// read commands for the inventory, the PnP queue, topology and sites, plus
// template synchronization with a local directory.
//
// Write commands preview by default; -x executes them. Every executed
// change is recorded in the audit log.
//
// Usage:
//
//	ezdnac login --host 10.0.0.5            Log in and save the session
//	ezdnac show inventory                   List managed devices
//	ezdnac show pnpq                        List the PnP queue
//	ezdnac show device neighbors <serial>   Show a device's neighbors
//	ezdnac template pull --dir templates    Download all templates
//	ezdnac template diff --dir templates    Compare local templates
//	ezdnac template push --dir templates -x Upload local templates
//	ezdnac device sync <serial> -x          Resync a device
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ezdnac/ezdnac/pkg/audit"
	"github.com/ezdnac/ezdnac/pkg/cli"
	"github.com/ezdnac/ezdnac/pkg/dnac"
	"github.com/ezdnac/ezdnac/pkg/settings"
	"github.com/ezdnac/ezdnac/pkg/util"
	"github.com/ezdnac/ezdnac/pkg/version"
)

var (
	verbose     bool
	logJSON     bool
	jsonOutput  bool
	executeMode bool

	userSettings *settings.Settings
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		if errors.Is(err, util.ErrNotAuthenticated) {
			fmt.Fprintln(os.Stderr, "Session expired or invalid: run 'ezdnac login'")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "ezdnac",
		Short:             "Command line client for Cisco DNA Center",
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
		Long: `ezdnac talks to a Cisco DNA Center controller.

Log in once with 'ezdnac login'; the session is kept in the settings file.
Write commands preview by default; use -x to execute.

  ezdnac template push --dir templates -x`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				util.SetLogLevel("debug")
			} else {
				util.SetLogLevel("warn")
			}
			if logJSON {
				util.SetJSONFormat()
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				cli.SetColor(false)
			}

			var err error
			userSettings, err = settings.Load()
			if err != nil {
				util.Warnf("Could not load settings: %v", err)
				userSettings = &settings.Settings{}
			}

			if isSettingsOrHelp(cmd) {
				return nil
			}
			initAudit()
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON format")

	rootCmd.AddGroup(
		&cobra.Group{ID: "session", Title: "Session:"},
		&cobra.Group{ID: "query", Title: "Queries:"},
		&cobra.Group{ID: "change", Title: "Changes:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{newLoginCmd(), newLogoutCmd()} {
		cmd.GroupID = "session"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newShowCmd(), newTaskCmd()} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newTemplateCmd(), newDeviceCmd()} {
		cmd.GroupID = "change"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newSettingsCmd(), newAuditCmd(), newVersionCmd()} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Version == "dev" {
				fmt.Fprintln(cmd.OutOrStdout(), "ezdnac dev build (use 'make build' for version info)")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "ezdnac %s\n", version.Info())
			}
		},
	}
}

// isSettingsOrHelp checks whether cmd (or any ancestor) is a settings, help, or version command.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

func initAudit() {
	logger, err := audit.NewFileLogger(userSettings.GetAuditLogPath(), audit.RotationConfig{
		MaxSizeMB:  userSettings.GetAuditMaxSizeMB(),
		MaxBackups: userSettings.GetAuditMaxBackups(),
	})
	if err != nil {
		util.Warnf("Could not initialize audit logging: %v", err)
		audit.SetDefaultLogger(nil)
		return
	}
	audit.SetDefaultLogger(logger)
}

// newClient builds a controller client from the saved session.
func newClient() (*dnac.Client, error) {
	if !userSettings.HasSession() {
		return nil, fmt.Errorf("%w: no saved session, run 'ezdnac login'", util.ErrNotAuthenticated)
	}
	return dnac.NewClient(dnac.Config{
		Host:      userSettings.Host,
		Port:      userSettings.GetPort(),
		Username:  userSettings.Username,
		AuthToken: userSettings.AuthToken,
		VerifySSL: userSettings.VerifySSL,
		Timeout:   userSettings.GetTimeout(),
	})
}

// withClient runs fn with a client for the saved session.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *dnac.Client) error) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), c)
}

// recordAudit logs an event for an executed change. Failures to write the
// audit log are only warned about.
func recordAudit(e *audit.Event, err error) {
	e.WithExecuteMode(executeMode).Finish(err)
	if aerr := audit.Log(e); aerr != nil {
		util.Warnf("Could not write audit event: %v", aerr)
	}
}

func newEvent(c *dnac.Client, operation string) *audit.Event {
	return audit.NewEvent(c.Username(), c.Host(), operation)
}

// addWriteFlags registers -x/--execute as a local flag.
// For noun-group parent commands, it is a PersistentFlag so subcommands inherit.
func addWriteFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if cmd.HasSubCommands() {
		flags = cmd.PersistentFlags()
	}
	flags.BoolVarP(&executeMode, "execute", "x", false, "execute changes (default is preview)")
}

// addOutputFlags registers --json as a local flag.
// For noun-group parent commands, this is a PersistentFlag so subcommands inherit.
func addOutputFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if cmd.HasSubCommands() {
		flags = cmd.PersistentFlags()
	}
	flags.BoolVar(&jsonOutput, "json", false, "JSON output")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDryRunNotice(w io.Writer) {
	if !executeMode {
		fmt.Fprintln(w, "\n"+cli.Yellow("PREVIEW: no changes applied. Use -x to execute."))
	}
}

// argOrPrompt returns args[0], or asks for the value on the command input.
func argOrPrompt(cmd *cobra.Command, args []string, label string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return prompt(cmd, label)
}

var (
	inputSource io.Reader
	inputReader *bufio.Reader
)

// lineReader keeps one buffered reader per input so consecutive prompts
// do not lose buffered lines.
func lineReader(in io.Reader) *bufio.Reader {
	if in != inputSource {
		inputSource = in
		inputReader = bufio.NewReader(in)
	}
	return inputReader
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ", label)
	line, err := lineReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}
	return prompt(cmd, "Password")
}
