package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ezdnac/ezdnac/pkg/audit"
	"github.com/ezdnac/ezdnac/pkg/cli"
	"github.com/ezdnac/ezdnac/pkg/dnac"
	"github.com/ezdnac/ezdnac/pkg/util"
)

// EnvPassword supplies the login password without a prompt.
const EnvPassword = "EZDNAC_PASSWORD"

func newLoginCmd() *cobra.Command {
	var (
		host      string
		port      string
		user      string
		verifySSL bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a controller and save the session",
		Long: `Log in to a controller and save the auth token in the settings file.

Missing values are prompted for. The password is read without echo, or
taken from $` + EnvPassword + `.

Examples:
  ezdnac login --host 10.0.0.5 --user admin
  ezdnac login --host dnac.example.com --port 8443 --verify-ssl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var err error

			if host == "" {
				host = userSettings.Host
				if port == "" {
					port = userSettings.Port
				}
			}
			if host == "" {
				if host, err = prompt(cmd, "IP"); err != nil {
					return err
				}
			}
			if user == "" {
				if user, err = prompt(cmd, "Username"); err != nil {
					return err
				}
			}
			password := os.Getenv(EnvPassword)
			if password == "" {
				if password, err = promptPassword(cmd); err != nil {
					return err
				}
			}

			c, err := dnac.NewClient(dnac.Config{
				Host:      host,
				Port:      port,
				Username:  user,
				Password:  password,
				VerifySSL: verifySSL,
				Timeout:   userSettings.GetTimeout(),
			})
			if err != nil {
				return err
			}

			event := newEvent(c, audit.OpLogin)
			token, err := c.Reauthenticate(cmd.Context())
			recordAudit(event, err)
			if err != nil {
				return err
			}

			userSettings.SetSession(c.Host(), c.Port(), user, token)
			userSettings.VerifySSL = verifySSL
			if err := userSettings.Save(); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(out, "%s logged in to %s as %s (token %s)\n",
				cli.Green("Login success:"), c.Host(), user, util.MaskSecret(token))
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "controller IP or hostname")
	cmd.Flags().StringVar(&host, "ip", "", "alias for --host")
	cmd.Flags().StringVar(&port, "port", "", "controller port (default 443)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "username")
	cmd.Flags().BoolVar(&verifySSL, "verify-ssl", false, "verify the controller certificate")
	cmd.Flags().MarkHidden("ip")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved auth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userSettings.ClearSession()
			if err := userSettings.Save(); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
