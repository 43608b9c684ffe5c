// Package audit records the changes ezdnac makes on a controller.
package audit

import (
	"fmt"
	"time"
)

// Event is one change, or attempted change, on a controller
type Event struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	User        string            `json:"user"`
	Controller  string            `json:"controller"`
	Operation   string            `json:"operation"`
	Project     string            `json:"project,omitempty"`
	Template    string            `json:"template,omitempty"`
	Device      string            `json:"device,omitempty"`
	TaskID      string            `json:"task_id,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	ExecuteMode bool              `json:"execute_mode"` // false for previews
	Duration    time.Duration     `json:"duration"`
}

// Operations recorded by the CLI
const (
	OpLogin        = "login"
	OpTemplatePush = "template.push"
	OpDeploy       = "template.deploy"
	OpDeviceSync   = "device.sync"
	OpDeviceClaim  = "device.claim"
	OpAssignToSite = "device.assign-site"
)

// Filter selects events in Query. Zero fields match everything.
type Filter struct {
	Controller  string
	User        string
	Operation   string
	Device      string
	Template    string
	Since       time.Time
	Until       time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int // most recent N
}

// NewEvent starts an event for an operation on a controller.
func NewEvent(user, controller, operation string) *Event {
	return &Event{
		ID:         generateID(),
		Timestamp:  time.Now(),
		User:       user,
		Controller: controller,
		Operation:  operation,
	}
}

// WithTemplate sets the template and its project
func (e *Event) WithTemplate(project, template string) *Event {
	e.Project = project
	e.Template = template
	return e
}

// WithDevice sets the device
func (e *Event) WithDevice(device string) *Event {
	e.Device = device
	return e
}

// WithTask sets the controller task id
func (e *Event) WithTask(id string) *Event {
	e.TaskID = id
	return e
}

// WithDetail adds a free-form detail
func (e *Event) WithDetail(key, value string) *Event {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	return e
}

// Finish records the outcome and the time elapsed since the event was
// created.
func (e *Event) Finish(err error) *Event {
	e.Duration = time.Since(e.Timestamp)
	e.Success = err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
