package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezdnac/ezdnac/pkg/audit"
	"github.com/ezdnac/ezdnac/pkg/cli"
	"github.com/ezdnac/ezdnac/pkg/dnac"
	"github.com/ezdnac/ezdnac/pkg/params"
)

func newDeviceCmd() *cobra.Command {
	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Change device state on the controller",
		Long: `Change device state on the controller.

Devices are looked up by serial number, in the inventory first and then
in the PnP queue.

Examples:
  ezdnac device sync FOC1234X0AB -x
  ezdnac device claim FOC1234X0AB --site Global/Oslo/HQ --template day0 --params day0.yaml -x
  ezdnac device assign-site FOC1234X0AB --site Global/Oslo/HQ -x`,
	}

	deviceCmd.AddCommand(
		newDeviceSyncCmd(),
		newDeviceClaimCmd(),
		newDeviceAssignSiteCmd(),
	)
	addWriteFlags(deviceCmd)
	return deviceCmd
}

func newDeviceSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [serial]",
		Short: "Resynchronize an inventory device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				d, err := lookupBySerial(cmd, c, args)
				if err != nil {
					return err
				}
				if !d.InInventory() {
					return fmt.Errorf("device %s is not in the inventory", d.SerialNumber)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Sync %s (%s)\n", d.Hostname, d.ID)
				if !executeMode {
					printDryRunNotice(out)
					return nil
				}

				taskID, err := d.Sync(ctx)
				recordAudit(newEvent(c, audit.OpDeviceSync).WithDevice(d.Hostname).WithTask(taskID), err)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s task %s\n", cli.Green("Sync started:"), taskID)
				return nil
			})
		},
	}
}

func newDeviceClaimCmd() *cobra.Command {
	var site, templateName, paramsFile string

	cmd := &cobra.Command{
		Use:   "claim [serial]",
		Short: "Claim a PnP device to a site",
		Long: `Claim a device from the PnP queue to a site, optionally with an
onboarding template and its variables.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				var vars map[string]interface{}
				if paramsFile != "" {
					if templateName == "" {
						return fmt.Errorf("--params requires --template")
					}
					var err error
					if vars, err = params.Load(paramsFile); err != nil {
						return err
					}
				}

				d, err := lookupBySerial(cmd, c, args)
				if err != nil {
					return err
				}
				if d.Source != dnac.SourcePnP {
					return fmt.Errorf("device %s is already in the inventory", d.SerialNumber)
				}

				siteID, err := c.SiteID(ctx, site)
				if err != nil {
					return err
				}
				req := dnac.ClaimRequest{SiteID: siteID, Params: vars}
				if templateName != "" {
					if req.TemplateID, err = c.TemplateID(ctx, templateName); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Claim %s (%s) to site %s", d.SerialNumber, d.Platform, site)
				if templateName != "" {
					fmt.Fprintf(out, " with template %s", templateName)
				}
				fmt.Fprintln(out)
				if !executeMode {
					printDryRunNotice(out)
					return nil
				}

				msg, err := d.Claim(ctx, req)
				event := newEvent(c, audit.OpDeviceClaim).
					WithDevice(d.SerialNumber).
					WithDetail("site", site)
				if templateName != "" {
					event.WithTemplate("", templateName)
				}
				recordAudit(event, err)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", cli.Green("Claimed:"), msg)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site name hierarchy, e.g. Global/Oslo/HQ")
	cmd.Flags().StringVarP(&templateName, "template", "t", "", "onboarding template")
	cmd.Flags().StringVar(&paramsFile, "params", "", "YAML or JSON file with template variables")
	cmd.MarkFlagRequired("site")
	return cmd
}

func newDeviceAssignSiteCmd() *cobra.Command {
	var site string

	cmd := &cobra.Command{
		Use:   "assign-site [serial]",
		Short: "Assign an inventory device to a site",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				d, err := lookupBySerial(cmd, c, args)
				if err != nil {
					return err
				}
				siteID, err := c.SiteID(ctx, site)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Assign %s (%s) to site %s\n", d.Hostname, d.IP, site)
				if !executeMode {
					printDryRunNotice(out)
					return nil
				}

				execID, err := d.AssignToSite(ctx, siteID)
				recordAudit(newEvent(c, audit.OpAssignToSite).
					WithDevice(d.Hostname).
					WithDetail("site", site).
					WithDetail("execution_id", execID), err)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s execution %s\n", cli.Green("Assignment started:"), execID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&site, "site", "", "site name hierarchy, e.g. Global/Oslo/HQ")
	cmd.MarkFlagRequired("site")
	return cmd
}
