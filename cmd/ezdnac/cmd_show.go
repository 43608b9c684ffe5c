package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezdnac/ezdnac/pkg/cli"
	"github.com/ezdnac/ezdnac/pkg/dnac"
)

// defaultMac is shown for PnP entries that did not report a MAC address.
const defaultMac = "00:00:00:00:00:00"

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show controller state",
		Long: `Show controller state.

Examples:
  ezdnac show pnpq
  ezdnac show inventory
  ezdnac show device neighbors FOC1234X0AB
  ezdnac show templates --json`,
	}

	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Show one device, looked up by serial number",
	}
	deviceCmd.AddCommand(newShowNeighborsCmd(), newShowDetailsCmd(), newShowInterfacesCmd())

	showCmd.AddCommand(
		newShowPnPCmd(),
		newShowInventoryCmd(),
		deviceCmd,
		newShowSitesCmd(),
		newShowTemplatesCmd(),
	)
	addOutputFlags(showCmd)
	return showCmd
}

func newShowPnPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pnpq",
		Short: "List devices in the PnP queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				devices, err := c.GetPnPDevices(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, devices)
				}

				t := cli.NewTableTo(out, "Serial Number", "Device Type", "State", "Mac")
				for _, d := range devices {
					info := d.DeviceInfo
					mac := info.MacAddress
					if mac == "" {
						mac = defaultMac
					}
					t.Row(info.SerialNumber, info.PID, cli.State(info.State), mac)
				}
				t.Flush()
				if t.Len() == 0 {
					fmt.Fprintln(out, "PnP queue is empty")
				}
				return nil
			})
		},
	}
}

func newShowInventoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "List managed devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				devices, err := c.GetAllDevices(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, devices)
				}

				t := cli.NewTableTo(out, "Hostname", "MGMT IP", "MAC", "Pid", "Serial Number")
				for _, d := range devices {
					t.Row(d.Hostname, d.ManagementIPAddress, d.MacAddress, d.PlatformID, d.SerialNumber)
				}
				t.Flush()
				if t.Len() == 0 {
					fmt.Fprintln(out, "No devices in inventory")
				}
				return nil
			})
		},
	}
}

// lookupBySerial resolves the serial number argument, prompting when it
// is missing.
func lookupBySerial(cmd *cobra.Command, c *dnac.Client, args []string) (*dnac.Device, error) {
	serial, err := argOrPrompt(cmd, args, "Serial number")
	if err != nil {
		return nil, err
	}
	return c.LookupDevice(cmd.Context(), dnac.Lookup{Serial: serial})
}

type neighborRow struct {
	LocalInterface    string `json:"local_interface"`
	NeighborID        string `json:"neighbor_id"`
	NeighborHostname  string `json:"neighbor_hostname"`
	NeighborInterface string `json:"neighbor_interface"`
}

func newShowNeighborsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors [serial]",
		Short: "Show the devices connected to a device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				d, err := lookupBySerial(cmd, c, args)
				if err != nil {
					return err
				}
				conns, err := d.Connections(ctx)
				if err != nil {
					return err
				}
				names, err := c.HostnamesByID(ctx)
				if err != nil {
					return err
				}

				rows := make([]neighborRow, 0, len(conns))
				for _, conn := range conns {
					rows = append(rows, neighborRow{
						LocalInterface:    conn.LocalInterface,
						NeighborID:        conn.RemoteNode,
						NeighborHostname:  names[conn.RemoteNode],
						NeighborInterface: conn.RemoteInterface,
					})
				}

				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No neighbors!")
					return nil
				}
				t := cli.NewTableTo(out, "Local Interface", "Connected to hostname", "Neighbor Interface")
				for _, r := range rows {
					host := r.NeighborHostname
					if host == "" {
						host = r.NeighborID
					}
					t.Row(r.LocalInterface, host, r.NeighborInterface)
				}
				t.Flush()
				return nil
			})
		},
	}
}

func newShowDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details [serial]",
		Short: "Show a device found in the inventory or the PnP queue",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				d, err := lookupBySerial(cmd, c, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, d)
				}
				t := cli.NewTableTo(out, "Hostname", "Mgmt IP", "PID", "Software", "Version", "State")
				t.Row(d.Hostname, d.IP, d.Platform, d.SoftwareType, d.SoftwareVersion, cli.State(d.State))
				t.Flush()
				return nil
			})
		},
	}
}

func newShowInterfacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces [serial]",
		Short: "Show the interfaces of an inventory device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				d, err := lookupBySerial(cmd, c, args)
				if err != nil {
					return err
				}
				if !d.InInventory() {
					return fmt.Errorf("device %s is in the PnP queue; interfaces are known for inventory devices only", d.SerialNumber)
				}
				intfs, err := d.Interfaces(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, intfs)
				}
				t := cli.NewTableTo(out, "Interface", "Status", "Admin", "Mode", "Vlan", "IP", "Description")
				for _, i := range intfs {
					t.Row(i.PortName, i.Status, i.AdminStatus, i.PortMode, i.VlanID, i.IPv4Address, i.Description)
				}
				t.Flush()
				return nil
			})
		},
	}
}

func newShowSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				sites, err := c.GetSites(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, sites)
				}
				t := cli.NewTableTo(out, "Site", "Id")
				for _, s := range sites {
					name := s.SiteNameHierarchy
					if name == "" {
						name = s.Name
					}
					t.Row(name, s.ID)
				}
				t.Flush()
				return nil
			})
		},
	}
}

func newShowTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List template projects and their templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				projects, err := c.ListProjects(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, projects)
				}
				t := cli.NewTableTo(out, "Project", "Template", "Id")
				for _, p := range projects {
					if len(p.Templates) == 0 {
						t.Row(p.Name, "", "")
					}
					for _, tmpl := range p.Templates {
						t.Row(p.Name, tmpl.Name, tmpl.ID)
					}
				}
				t.Flush()
				return nil
			})
		},
	}
}
