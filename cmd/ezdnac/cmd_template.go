package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezdnac/ezdnac/pkg/audit"
	"github.com/ezdnac/ezdnac/pkg/cli"
	"github.com/ezdnac/ezdnac/pkg/dnac"
	"github.com/ezdnac/ezdnac/pkg/params"
	"github.com/ezdnac/ezdnac/pkg/util"
)

func newTemplateCmd() *cobra.Command {
	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Synchronize and deploy configuration templates",
		Long: `Synchronize templates between the controller and a local directory,
and deploy templates to devices.

Each template is stored in its own folder:
  <dir>/<name>/<name>_contents.txt   template body
  <dir>/<name>/<name>_params.json    every other template field

Examples:
  ezdnac template pull --project Onboarding --dir templates
  ezdnac template diff --dir templates
  ezdnac template push --dir templates -x
  ezdnac template deploy --template base --serial FOC1234X0AB --params base.yaml -x`,
	}

	templateCmd.AddCommand(
		newTemplatePullCmd(),
		newTemplateDiffCmd(),
		newTemplatePushCmd(),
		newTemplateDeployCmd(),
		newTemplateDeployStatusCmd(),
	)
	return templateCmd
}

// templateDir returns --dir, or the configured template directory. Empty
// means the working directory, reported as the local folder.
func templateDir(dir string) string {
	return util.OrDefault(dir, userSettings.TemplateDir)
}

func newTemplatePullCmd() *cobra.Command {
	var project, dir string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download templates into a local directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				res, err := c.PullTemplates(ctx, dnac.PullOptions{Project: project, Dir: templateDir(dir)})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, res)
				}
				for _, b := range res.Bundles {
					fmt.Fprintf(out, "  %s %s\n", cli.DotPad(b.Name, 30), b.Dir)
				}
				fmt.Fprintln(out, cli.Green(res.Summary))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "only pull this project")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "template directory")
	addOutputFlags(cmd)
	return cmd
}

func newTemplateDiffCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare local templates with the controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				plan, err := c.PlanPush(ctx, templateDir(dir))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, plan)
				}
				printPlan(out, plan, true)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "template directory")
	addOutputFlags(cmd)
	return cmd
}

func newTemplatePushCmd() *cobra.Command {
	var dir, comments string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Create or update controller templates from a local directory",
		Long: `Create or update controller templates from a local directory.

Missing projects and templates are created. Changed templates get a new
version before they are updated. Without -x only the plan is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				out := cmd.OutOrStdout()
				plan, err := c.PlanPush(ctx, templateDir(dir))
				if err != nil {
					return err
				}
				if !executeMode {
					if jsonOutput {
						return printJSON(out, plan)
					}
					printPlan(out, plan, false)
					printDryRunNotice(out)
					return nil
				}

				if !jsonOutput {
					printPlan(out, plan, false)
				}
				results, err := c.ApplyPush(ctx, plan, dnac.ApplyOptions{
					Comments: comments,
					Observer: func(r dnac.PushResult) {
						event := newEvent(c, audit.OpTemplatePush).
							WithTemplate(r.Project, r.Template).
							WithTask(r.TaskID).
							WithDetail("action", string(r.Action))
						var rerr error
						if r.Error != "" {
							rerr = errors.New(r.Error)
						}
						recordAudit(event, rerr)
						if !jsonOutput && rerr == nil {
							fmt.Fprintf(out, "%s %s\n", cli.DotPad(r.Template, 30), cli.Green(string(r.Action)))
						}
					},
				})
				if jsonOutput {
					if perr := printJSON(out, results); perr != nil {
						return perr
					}
				}
				if err != nil {
					return err
				}
				if !jsonOutput && len(results) > 0 {
					fmt.Fprintln(out, "\n"+cli.Green("Templates pushed successfully."))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "template directory")
	cmd.Flags().StringVar(&comments, "comments", dnac.DefaultVersionComment, "comment recorded on new template versions")
	addWriteFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// printPlan writes one line per local template, and the differences when
// details is set.
func printPlan(w io.Writer, plan *dnac.PushPlan, details bool) {
	t := cli.NewTableTo(w, "Template", "Project", "Action")
	for _, it := range plan.Items {
		t.Row(it.Template, it.Project, cli.State(string(it.Action)))
	}
	t.Flush()
	if t.Len() == 0 {
		fmt.Fprintln(w, "No templates found in "+plan.Dir)
		return
	}

	if details {
		for _, it := range plan.Items {
			if it.Diff == nil || !it.Diff.Changed() {
				continue
			}
			fmt.Fprintf(w, "\n%s\n", cli.Bold(it.Template))
			for _, p := range it.Diff.Params {
				fmt.Fprintf(w, "  %s\n", p)
			}
			if it.Diff.ContentDiff != "" {
				printUnifiedDiff(w, it.Diff.ContentDiff)
			}
		}
	}

	n := plan.Changes()
	if n == 0 {
		fmt.Fprintln(w, "\n"+cli.Green("All templates are in sync."))
	} else {
		fmt.Fprintf(w, "\n%d template(s) to push\n", n)
	}
}

func printUnifiedDiff(w io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(w, cli.Bold(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(w, cli.Green(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(w, cli.Red(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprint(w, cli.Dim(line))
		default:
			fmt.Fprint(w, line)
		}
		if !strings.HasSuffix(line, "\n") {
			fmt.Fprintln(w)
		}
	}
}

func newTemplateDeployCmd() *cobra.Command {
	var (
		templateName string
		serial       string
		paramsFile   string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a template to an inventory device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				out := cmd.OutOrStdout()
				vars := map[string]interface{}{}
				if paramsFile != "" {
					var err error
					if vars, err = params.Load(paramsFile); err != nil {
						return err
					}
				}

				d, err := c.LookupDevice(ctx, dnac.Lookup{Serial: serial})
				if err != nil {
					return err
				}
				if !d.InInventory() {
					return fmt.Errorf("device %s is in the PnP queue: claim it with a template instead", serial)
				}
				templateID, err := c.TemplateID(ctx, templateName)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "Deploy %s (%s) to %s (%s) with %d parameter(s)\n",
					templateName, templateID, d.Hostname, d.ID, len(vars))
				if !executeMode {
					printDryRunNotice(out)
					return nil
				}

				event := newEvent(c, audit.OpDeploy).WithDevice(d.Hostname).WithTemplate("", templateName)
				res, err := d.DeployTemplate(ctx, dnac.Deployment{TemplateID: templateID, Force: force, Params: vars})
				if err == nil && !res.Deployed {
					err = fmt.Errorf("template not deployed: %s", res.Message)
				}
				if res != nil {
					event.WithDetail("deployment_id", res.DeploymentID)
				}
				recordAudit(event, err)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(out, res)
				}
				fmt.Fprintf(out, "%s %s\n", cli.Green("Deployed:"), res.Message)
				if res.DeploymentID != "" {
					fmt.Fprintf(out, "Deployment id: %s (check with 'ezdnac template deploy-status %s')\n",
						res.DeploymentID, res.DeploymentID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&templateName, "template", "t", "", "template name")
	cmd.Flags().StringVarP(&serial, "serial", "s", "", "device serial number")
	cmd.Flags().StringVar(&paramsFile, "params", "", "YAML or JSON file with template variables")
	cmd.Flags().BoolVar(&force, "force", false, "redeploy even if already deployed with the same parameters")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("serial")
	addWriteFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func newTemplateDeployStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy-status <deployment-id>",
		Short: "Show the status of a template deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				st, err := c.DeploymentStatus(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.State(st))
				return nil
			})
		},
	}
}
