package dnac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// ErrNoTask is returned when a task status is requested without an id and
// the client has not started any task.
var ErrNoTask = errors.New("no previous task to check")

// Task is the state of an asynchronous controller operation
type Task struct {
	ID            string `json:"id"`
	ServiceType   string `json:"serviceType,omitempty"`
	Progress      string `json:"progress,omitempty"`
	Data          string `json:"data,omitempty"`
	IsError       bool   `json:"isError"`
	FailureReason string `json:"failureReason,omitempty"`
	ErrorCode     string `json:"errorCode,omitempty"`
	StartTime     int64  `json:"startTime,omitempty"`
	EndTime       int64  `json:"endTime,omitempty"`
	Version       int64  `json:"version,omitempty"`
}

// Done reports whether the task has finished, successfully or not.
func (t *Task) Done() bool {
	return t.IsError || t.EndTime != 0
}

// TaskStatus fetches a task. An empty id means the last task this client
// started.
func (c *Client) TaskStatus(ctx context.Context, id string) (*Task, error) {
	if id == "" {
		id = c.LastTaskID()
	}
	if id == "" {
		return nil, ErrNoTask
	}

	var task Task
	if err := c.getResponse(ctx, BaseAPI, "task/"+id, &task); err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	if task.ID == "" {
		task.ID = id
	}
	return &task, nil
}

// WaitForTask polls a task until it finishes. A task reporting an error
// yields a *util.TaskError.
func (c *Client) WaitForTask(ctx context.Context, id string) (*Task, error) {
	if id == "" {
		id = c.LastTaskID()
	}
	var task *Task
	var err error
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return task, ctx.Err()
			case <-time.After(c.pollInterval):
			}
		}

		task, err = c.TaskStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		if task.IsError {
			return task, &util.TaskError{TaskID: task.ID, Reason: task.FailureReason}
		}
		if task.Done() {
			return task, nil
		}
		util.Debugf("Task %s still running (%s)", id, task.Progress)
	}
	return task, fmt.Errorf("task %s did not complete after %d polls", id, c.pollAttempts)
}
