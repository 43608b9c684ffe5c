package dnac

import (
	"context"
	"fmt"

	"github.com/ezdnac/ezdnac/pkg/template"
	"github.com/ezdnac/ezdnac/pkg/util"
)

// PullOptions selects what PullTemplates fetches
type PullOptions struct {
	Project string // only this project when set
	Dir     string // destination, the working directory when empty
}

// PullResult lists the bundles written by a pull
type PullResult struct {
	Dir     string            `json:"dir"`
	Project string            `json:"project,omitempty"`
	Bundles []template.Bundle `json:"bundles"`
	Summary string            `json:"summary"`
}

// PullTemplates downloads templates from the controller into a local
// directory, one folder per template.
func (c *Client) PullTemplates(ctx context.Context, opts PullOptions) (*PullResult, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if opts.Project != "" {
		p, ok := findProject(projects, opts.Project)
		if !ok {
			return nil, util.NewNotFoundError("project", opts.Project)
		}
		projects = []Project{*p}
	}

	dir := util.OrDefault(opts.Dir, ".")
	res := &PullResult{Dir: dir, Project: opts.Project}
	for _, p := range projects {
		for _, ref := range p.Templates {
			doc, err := c.GetTemplate(ctx, ref.ID)
			if err != nil {
				return res, err
			}
			b, err := template.Write(dir, doc)
			if err != nil {
				return res, err
			}
			util.WithOperation("pull").WithField("project", p.Name).WithField("template", ref.Name).Info("Pulled template")
			res.Bundles = append(res.Bundles, b)
		}
	}

	where := util.OrDefault(opts.Dir, "local folder")
	if opts.Project != "" {
		res.Summary = "All templates in project: " + opts.Project + " are synced to: " + where
	} else {
		res.Summary = "All templates in all projects are synced to: " + where
	}
	return res, nil
}

// PushAction is what pushing a local bundle does on the controller
type PushAction string

const (
	ActionCreateProject  PushAction = "create-project"  // project and template are missing
	ActionCreateTemplate PushAction = "create-template" // template is missing
	ActionUpdate         PushAction = "update"          // template differs
	ActionNone           PushAction = "none"            // template is in sync
)

// PushItem is the planned action for one local bundle
type PushItem struct {
	Template   string         `json:"template"`
	Project    string         `json:"project"`
	ProjectID  string         `json:"projectId,omitempty"`
	TemplateID string         `json:"templateId,omitempty"`
	Action     PushAction     `json:"action"`
	Diff       *template.Diff `json:"diff,omitempty"`
	Path       string         `json:"path"`

	doc     template.Document
	content string
}

// PushPlan is the set of actions needed to bring the controller in line
// with a local directory
type PushPlan struct {
	Dir   string     `json:"dir"`
	Items []PushItem `json:"items"`
}

// Changes counts the items that modify the controller.
func (p *PushPlan) Changes() int {
	n := 0
	for _, it := range p.Items {
		if it.Action != ActionNone {
			n++
		}
	}
	return n
}

// PlanPush compares every bundle in dir with the controller. Nothing is
// modified.
func (c *Client) PlanPush(ctx context.Context, dir string) (*PushPlan, error) {
	if dir == "" {
		dir = "."
	}
	bundles, err := template.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	plan := &PushPlan{Dir: dir}
	newProjects := make(map[string]bool)
	for _, b := range bundles {
		doc, content, err := b.Load()
		if err != nil {
			return nil, err
		}
		it := PushItem{
			Template: doc.Name(),
			Project:  doc.ProjectName(),
			Path:     b.Dir,
			doc:      doc,
			content:  content,
		}

		p, ok := findProject(projects, it.Project)
		switch {
		case !ok && !newProjects[it.Project]:
			newProjects[it.Project] = true
			it.Action = ActionCreateProject
		case !ok:
			it.Action = ActionCreateTemplate
		default:
			it.ProjectID = p.ID
			ref, found := p.FindTemplate(it.Template)
			if !found {
				it.Action = ActionCreateTemplate
				break
			}
			it.TemplateID = ref.ID
			live, err := c.GetTemplate(ctx, ref.ID)
			if err != nil {
				return nil, err
			}
			it.Diff = template.Compare(live, doc, content)
			it.Action = ActionNone
			if it.Diff.Changed() {
				it.Action = ActionUpdate
			}
		}
		util.WithTemplate(it.Template).WithField("project", it.Project).Debugf("Planned %s", it.Action)
		plan.Items = append(plan.Items, it)
	}
	return plan, nil
}

// ApplyOptions controls ApplyPush
type ApplyOptions struct {
	// Comments is recorded on the template version created before each
	// update. Defaults to DefaultVersionComment.
	Comments string

	// Observer, when set, is called after every applied item.
	Observer func(PushResult)
}

// PushResult is the outcome of one applied item
type PushResult struct {
	Template   string     `json:"template"`
	Project    string     `json:"project"`
	Action     PushAction `json:"action"`
	ProjectID  string     `json:"projectId,omitempty"`
	TemplateID string     `json:"templateId,omitempty"`
	TaskID     string     `json:"taskId,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ApplyPush carries out a plan. Items without changes make no calls. It
// stops at the first failure and returns the results so far.
func (c *Client) ApplyPush(ctx context.Context, plan *PushPlan, opts ApplyOptions) ([]PushResult, error) {
	created := make(map[string]string)
	var results []PushResult
	for _, it := range plan.Items {
		if it.Action == ActionNone {
			continue
		}
		res, err := c.applyItem(ctx, it, created, opts.Comments)
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
		if opts.Observer != nil {
			opts.Observer(res)
		}
		if err != nil {
			return results, fmt.Errorf("pushing template %s: %w", it.Template, err)
		}
	}
	return results, nil
}

func (c *Client) applyItem(ctx context.Context, it PushItem, created map[string]string, comments string) (PushResult, error) {
	res := PushResult{
		Template:   it.Template,
		Project:    it.Project,
		Action:     it.Action,
		ProjectID:  it.ProjectID,
		TemplateID: it.TemplateID,
	}
	log := util.WithOperation("push").WithField("template", it.Template).WithField("project", it.Project)

	if res.ProjectID == "" {
		res.ProjectID = created[it.Project]
	}
	if res.ProjectID == "" {
		log.Info("Creating missing project")
		id, err := c.CreateProject(ctx, it.Project)
		if err != nil {
			return res, err
		}
		created[it.Project] = id
		res.ProjectID = id
	}

	switch it.Action {
	case ActionCreateProject, ActionCreateTemplate:
		log.Info("Creating missing template")
		taskID, err := c.CreateTemplate(ctx, res.ProjectID, template.CreatePayload(it.doc, it.content))
		if err != nil {
			return res, err
		}
		res.TaskID = taskID
		task, err := c.WaitForTask(ctx, taskID)
		if err != nil {
			return res, err
		}
		res.TemplateID = task.Data
	case ActionUpdate:
		log.Info("Updating template")
		if _, err := c.VersionTemplate(ctx, it.TemplateID, comments); err != nil {
			return res, err
		}
		taskID, err := c.UpdateTemplate(ctx, template.UpdatePayload(it.doc, it.TemplateID, it.content))
		if err != nil {
			return res, err
		}
		res.TaskID = taskID
	}
	return res, nil
}

// PushOptions controls PushTemplates
type PushOptions struct {
	Dir      string
	Comments string
	DryRun   bool
	Observer func(PushResult)
}

// PushTemplates plans a push from Dir and applies it unless DryRun is set.
func (c *Client) PushTemplates(ctx context.Context, opts PushOptions) (*PushPlan, []PushResult, error) {
	plan, err := c.PlanPush(ctx, opts.Dir)
	if err != nil {
		return nil, nil, err
	}
	if opts.DryRun || plan.Changes() == 0 {
		return plan, nil, nil
	}
	results, err := c.ApplyPush(ctx, plan, ApplyOptions{Comments: opts.Comments, Observer: opts.Observer})
	return plan, results, err
}
