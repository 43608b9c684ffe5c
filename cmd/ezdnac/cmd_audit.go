package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezdnac/ezdnac/pkg/audit"
	"github.com/ezdnac/ezdnac/pkg/cli"
)

func newAuditCmd() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "View the audit log",
		Long: `View the log of changes ezdnac made on controllers.

Every executed change is logged with the time, the user, the controller,
the template or device affected and the outcome.

Examples:
  ezdnac audit list --template base-config
  ezdnac audit list --last 24h
  ezdnac audit list --failures --limit 20`,
	}

	var (
		device, templateName, operation, user, last string
		limit                                       int
		failures                                    bool
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := audit.Filter{
				Device:      device,
				Template:    templateName,
				Operation:   operation,
				User:        user,
				Limit:       limit,
				FailureOnly: failures,
			}
			if last != "" {
				d, err := parseSince(last)
				if err != nil {
					return err
				}
				filter.Since = time.Now().Add(-d)
			}

			events, err := audit.Query(filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(out, "No audit events found")
				return nil
			}

			t := cli.NewTableTo(out, "TIMESTAMP", "USER", "OPERATION", "TARGET", "STATUS")
			for _, e := range events {
				status := cli.Green("ok")
				if !e.Success {
					status = cli.Red("failed")
				}
				target := e.Device
				if e.Template != "" {
					target = strings.TrimPrefix(e.Project+"/"+e.Template, "/")
					if e.Device != "" {
						target += " -> " + e.Device
					}
				}
				t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Operation, target, status)
			}
			t.Flush()
			return nil
		},
	}

	listCmd.Flags().StringVar(&device, "device", "", "filter by device")
	listCmd.Flags().StringVar(&templateName, "template", "", "filter by template")
	listCmd.Flags().StringVar(&operation, "operation", "", "filter by operation, e.g. template.push")
	listCmd.Flags().StringVar(&user, "user", "", "filter by user")
	listCmd.Flags().StringVar(&last, "last", "", "show events from the last duration (e.g. 24h, 7d)")
	listCmd.Flags().IntVar(&limit, "limit", 100, "maximum events to show")
	listCmd.Flags().BoolVar(&failures, "failures", false, "show only failed operations")

	auditCmd.AddCommand(listCmd)
	addOutputFlags(auditCmd)
	return auditCmd
}

// parseSince accepts Go durations plus a day suffix ("7d").
func parseSince(s string) (time.Duration, error) {
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err == nil && days >= 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	return d, nil
}
