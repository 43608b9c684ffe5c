package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezdnac/ezdnac/pkg/cli"
	"github.com/ezdnac/ezdnac/pkg/dnac"
)

func newTaskCmd() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect asynchronous controller tasks",
	}

	statusCmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the state of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *dnac.Client) error {
				task, err := c.TaskStatus(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOutput {
					return printJSON(out, task)
				}

				state := "in progress"
				switch {
				case task.IsError:
					state = "failure"
				case task.Done():
					state = "success"
				}
				fmt.Fprintf(out, "Task:     %s\n", task.ID)
				fmt.Fprintf(out, "State:    %s\n", cli.State(state))
				if task.Progress != "" {
					fmt.Fprintf(out, "Progress: %s\n", task.Progress)
				}
				if task.Data != "" {
					fmt.Fprintf(out, "Data:     %s\n", task.Data)
				}
				if task.FailureReason != "" {
					fmt.Fprintf(out, "Failure:  %s\n", cli.Red(task.FailureReason))
				}
				if task.StartTime != 0 && task.EndTime != 0 {
					elapsed := time.Duration(task.EndTime-task.StartTime) * time.Millisecond
					fmt.Fprintf(out, "Elapsed:  %s\n", elapsed)
				}
				return nil
			})
		},
	}

	taskCmd.AddCommand(statusCmd)
	addOutputFlags(taskCmd)
	return taskCmd
}
