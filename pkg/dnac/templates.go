package dnac

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/ezdnac/ezdnac/pkg/template"
	"github.com/ezdnac/ezdnac/pkg/util"
)

// DefaultVersionComment is recorded on template versions created by push.
const DefaultVersionComment = "Updated with ezdnac"

// Project is a template programmer project
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Templates []TemplateRef `json:"templates"`
}

// TemplateRef names a template within a project
type TemplateRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Composite bool   `json:"composite,omitempty"`
}

// FindTemplate returns the project's template with the given name.
func (p *Project) FindTemplate(name string) (*TemplateRef, bool) {
	for i := range p.Templates {
		if p.Templates[i].Name == name {
			return &p.Templates[i], true
		}
	}
	return nil, false
}

// ListProjects lists template projects with their templates.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "template-programmer/project", &projects); err != nil {
		return nil, fmt.Errorf("listing template projects: %w", err)
	}
	return projects, nil
}

// FindProject returns the project with the given name.
func (c *Client) FindProject(ctx context.Context, name string) (*Project, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if p, ok := findProject(projects, name); ok {
		return p, nil
	}
	return nil, util.NewNotFoundError("project", name)
}

func findProject(projects []Project, name string) (*Project, bool) {
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], true
		}
	}
	return nil, false
}

// TemplateID resolves a template id by name, searching every project.
func (c *Client) TemplateID(ctx context.Context, name string) (string, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return "", err
	}
	for i := range projects {
		if t, ok := projects[i].FindTemplate(name); ok {
			return t.ID, nil
		}
	}
	return "", util.NewNotFoundError("template", name)
}

// GetTemplate fetches a template with all its fields.
func (c *Client) GetTemplate(ctx context.Context, id string) (template.Document, error) {
	data, err := c.Do(ctx, http.MethodGet, BaseAPI, "template-programmer/template/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("getting template %s: %w", id, err)
	}
	doc, err := template.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", id, err)
	}
	return doc, nil
}

// CreateProject creates a template project and returns its id, which the
// controller reports through the creation task.
func (c *Client) CreateProject(ctx context.Context, name string) (string, error) {
	data, err := c.Do(ctx, http.MethodPost, BaseIntent, "template-programmer/project",
		map[string]string{"name": name})
	if err != nil {
		return "", fmt.Errorf("creating project %s: %w", name, err)
	}
	taskID := c.taskIDFrom(data)
	if taskID == "" {
		return "", fmt.Errorf("creating project %s: no task in response", name)
	}
	task, err := c.WaitForTask(ctx, taskID)
	if err != nil {
		return "", fmt.Errorf("creating project %s: %w", name, err)
	}
	util.WithProject(name).Infof("Created project %s", task.Data)
	return task.Data, nil
}

// CreateTemplate creates a template in a project and returns the creation
// task id.
func (c *Client) CreateTemplate(ctx context.Context, projectID string, doc template.Document) (string, error) {
	data, err := c.Do(ctx, http.MethodPost, BaseIntent,
		"template-programmer/project/"+projectID+"/template", doc)
	if err != nil {
		return "", fmt.Errorf("creating template %s: %w", doc.Name(), err)
	}
	taskID := c.taskIDFrom(data)
	if taskID == "" {
		return "", fmt.Errorf("creating template %s: no task in response", doc.Name())
	}
	return taskID, nil
}

// VersionTemplate commits the current state of a template as a new
// version.
func (c *Client) VersionTemplate(ctx context.Context, templateID, comments string) (string, error) {
	if comments == "" {
		comments = DefaultVersionComment
	}
	payload := map[string]string{
		"comments":   comments,
		"templateId": templateID,
	}
	data, err := c.Do(ctx, http.MethodPost, BaseAPI, "template-programmer/template/version", payload)
	if err != nil {
		return "", fmt.Errorf("versioning template %s: %w", templateID, err)
	}
	return c.taskIDFrom(data), nil
}

// UpdateTemplate replaces a template. doc must carry the template id.
func (c *Client) UpdateTemplate(ctx context.Context, doc template.Document) (string, error) {
	if doc.ID() == "" {
		return "", util.NewValidationError("template update requires an id")
	}
	data, err := c.Do(ctx, http.MethodPut, BaseAPI, "template-programmer/template/", doc)
	if err != nil {
		return "", fmt.Errorf("updating template %s: %w", doc.Name(), err)
	}
	return c.taskIDFrom(data), nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
