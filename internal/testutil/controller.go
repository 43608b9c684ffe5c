package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Credentials and token accepted by a Controller
const (
	Username = "admin"
	Password = "secret"
	Token    = "test-token"
)

// Request is one call received by a Controller
type Request struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Controller is an in-memory controller speaking the subset of the REST
// API the client uses. Fields may be set before the first request; use the
// methods once requests are in flight.
type Controller struct {
	Server *httptest.Server

	Devices    []map[string]interface{}
	PnP        []map[string]interface{}
	Links      []map[string]interface{}
	Interfaces map[string][]map[string]interface{} // by device id
	Modules    map[string][]map[string]interface{} // by device id
	Sites      []map[string]interface{}

	// DeployResponse is returned verbatim by the deploy endpoint.
	DeployResponse string
	// DeployStatus is returned verbatim by the deploy status endpoint.
	DeployStatus string
	// TaskFailure, when set, makes every new task fail with this reason.
	TaskFailure string
	// PnPStatus, when set, makes the PnP listing fail with this HTTP status.
	PnPStatus int
	// CreateTemplateResponse, when set, is returned verbatim by template
	// create instead of a task.
	CreateTemplateResponse string

	mu        sync.Mutex
	projects  []*project
	templates map[string]map[string]interface{}
	versions  map[string][]string
	tasks     map[string]map[string]interface{}
	requests  []Request
	seq       int
}

type project struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Templates []map[string]interface{} `json:"templates"`
}

// NewController starts a Controller and registers its shutdown.
func NewController(t *testing.T) *Controller {
	t.Helper()
	c := &Controller{
		Interfaces: make(map[string][]map[string]interface{}),
		Modules:    make(map[string][]map[string]interface{}),
		templates:  make(map[string]map[string]interface{}),
		versions:   make(map[string][]string),
		tasks:      make(map[string]map[string]interface{}),
	}
	c.Server = httptest.NewTLSServer(c.routes())
	t.Cleanup(c.Server.Close)
	return c
}

// Addr returns the host:port the controller listens on.
func (c *Controller) Addr() string {
	return c.Server.Listener.Addr().String()
}

// Client returns an HTTP client trusting the controller's certificate.
func (c *Controller) Client() *http.Client {
	return c.Server.Client()
}

func (c *Controller) nextID(prefix string) string {
	c.seq++
	return fmt.Sprintf("%s-%04d", prefix, c.seq)
}

// AddProject creates a project and returns its id.
func (c *Controller) AddProject(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addProject(name)
}

func (c *Controller) addProject(name string) string {
	p := &project{ID: c.nextID("project"), Name: name, Templates: []map[string]interface{}{}}
	c.projects = append(c.projects, p)
	return p.ID
}

// AddTemplate stores doc in the named project, creating the project when
// needed, and returns the template id.
func (c *Controller) AddTemplate(projectName string, doc map[string]interface{}) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.findProject(projectName)
	if p == nil {
		c.addProject(projectName)
		p = c.findProject(projectName)
	}
	return c.addTemplate(p, doc)
}

func (c *Controller) addTemplate(p *project, doc map[string]interface{}) string {
	id := c.nextID("template")
	stored := copyMap(doc)
	stored["id"] = id
	stored["projectId"] = p.ID
	stored["projectName"] = p.Name
	c.templates[id] = stored
	p.Templates = append(p.Templates, map[string]interface{}{"id": id, "name": stored["name"]})
	return id
}

func (c *Controller) findProject(name string) *project {
	for _, p := range c.projects {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Template returns a copy of a stored template.
func (c *Controller) Template(id string) map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if doc, ok := c.templates[id]; ok {
		return copyMap(doc)
	}
	return nil
}

// Versions returns the version comments recorded for a template.
func (c *Controller) Versions(id string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.versions[id]...)
}

// ProjectNames lists the projects in creation order.
func (c *Controller) ProjectNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for _, p := range c.projects {
		names = append(names, p.Name)
	}
	return names
}

// Requests returns every request received so far.
func (c *Controller) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.requests...)
}

// Calls returns the requests with the given method whose path ends with
// suffix.
func (c *Controller) Calls(method, suffix string) []Request {
	var out []Request
	for _, r := range c.Requests() {
		if r.Method == method && strings.HasSuffix(r.Path, suffix) {
			out = append(out, r)
		}
	}
	return out
}

// Writes counts the requests that are not GETs.
func (c *Controller) Writes() int {
	n := 0
	for _, r := range c.Requests() {
		if r.Method != http.MethodGet {
			n++
		}
	}
	return n
}

func (c *Controller) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/system/v1/auth/token", c.handleAuth)

	mux.HandleFunc("GET /api/v1/network-device/{$}", func(w http.ResponseWriter, r *http.Request) {
		c.respond(w, c.Devices)
	})
	mux.HandleFunc("GET /api/v1/network-device/module", func(w http.ResponseWriter, r *http.Request) {
		c.respond(w, orEmpty(c.Modules[r.URL.Query().Get("deviceId")]))
	})
	mux.HandleFunc("GET /api/v1/network-device/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		for _, d := range c.Devices {
			if d["id"] == id {
				c.respond(w, d)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"response": map[string]string{"errorCode": "NotFound", "message": "device not found"},
		})
	})
	mux.HandleFunc("GET /api/v1/interface/network-device/{id}", func(w http.ResponseWriter, r *http.Request) {
		c.respond(w, orEmpty(c.Interfaces[r.PathValue("id")]))
	})
	mux.HandleFunc("PUT /dna/intent/api/v1/network-device/sync", func(w http.ResponseWriter, r *http.Request) {
		c.respondTask(w, "")
	})
	mux.HandleFunc("GET /api/v1/topology/physical-topology/{$}", func(w http.ResponseWriter, r *http.Request) {
		c.respond(w, map[string]interface{}{"links": orEmpty(c.Links)})
	})

	mux.HandleFunc("GET /api/v1/onboarding/pnp-device", func(w http.ResponseWriter, r *http.Request) {
		if c.PnPStatus != 0 {
			writeJSON(w, c.PnPStatus, map[string]string{"message": "pnp service unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, orEmpty(c.PnP))
	})
	mux.HandleFunc("POST /api/v1/onboarding/pnp-device/site-claim", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"response": "Device Claimed", "version": "1.0"})
	})

	mux.HandleFunc("GET /dna/intent/api/v1/site", c.handleSites)
	mux.HandleFunc("POST /dna/system/api/v1/site/{id}/device", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"executionId":        "exec-" + r.PathValue("id"),
			"executionStatusUrl": "/dna/platform/management/business-api/v1/execution-status/exec-" + r.PathValue("id"),
		})
	})
	mux.HandleFunc("GET /dna/platform/management/business-api/v1/execution-status/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"bapiExecutionId": r.PathValue("id"),
			"bapiName":        "Assign Device To Site",
			"status":          "SUCCESS",
		})
	})

	mux.HandleFunc("GET /api/v1/task/{id}", c.handleTask)

	mux.HandleFunc("GET /api/v1/template-programmer/project", c.handleListProjects)
	mux.HandleFunc("POST /dna/intent/api/v1/template-programmer/project", c.handleCreateProject)
	mux.HandleFunc("POST /dna/intent/api/v1/template-programmer/project/{id}/template", c.handleCreateTemplate)
	mux.HandleFunc("GET /api/v1/template-programmer/template/{id}", c.handleGetTemplate)
	mux.HandleFunc("PUT /api/v1/template-programmer/template/{$}", c.handleUpdateTemplate)
	mux.HandleFunc("POST /api/v1/template-programmer/template/version", c.handleVersion)
	mux.HandleFunc("POST /api/v1/template-programmer/template/deploy", func(w http.ResponseWriter, r *http.Request) {
		body := c.DeployResponse
		if body == "" {
			body = `{"deploymentId": "Template Deployemnt Id: deploy-0001"}`
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	})
	mux.HandleFunc("GET /api/v1/template-programmer/template/deploy/status/{id}", func(w http.ResponseWriter, r *http.Request) {
		body := c.DeployStatus
		if body == "" {
			body = `{"deploymentId": "` + r.PathValue("id") + `", "status": "SUCCESS"}`
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	})

	return c.record(mux)
}

// record logs every request and enforces the auth token outside login.
func (c *Controller) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		c.mu.Lock()
		c.requests = append(c.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		c.mu.Unlock()

		if r.URL.Path != "/api/system/v1/auth/token" && r.Header.Get("x-auth-token") != Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Controller) handleAuth(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != Username || pass != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication has failed. Please provide valid credentials."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"Token": Token})
}

func (c *Controller) handleSites(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	var sites []map[string]interface{}
	for _, s := range c.Sites {
		if name == "" || s["name"] == name || s["siteNameHierarchy"] == name {
			sites = append(sites, s)
		}
	}
	if len(sites) == 0 && name != "" {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"response": map[string]string{"errorCode": "NCGR10008", "message": "Site not found"},
		})
		return
	}
	c.respond(w, orEmpty(sites))
}

func (c *Controller) handleTask(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	task, ok := c.tasks[r.PathValue("id")]
	c.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"response": map[string]string{"errorCode": "NotFound", "message": "task not found"},
		})
		return
	}
	c.respond(w, task)
}

func (c *Controller) handleListProjects(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	data, _ := json.Marshal(c.projects)
	c.mu.Unlock()
	if string(data) == "null" {
		data = []byte("[]")
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (c *Controller) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "name is required"})
		return
	}
	c.mu.Lock()
	id := c.addProject(req.Name)
	c.mu.Unlock()
	c.respondTask(w, id)
}

func (c *Controller) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	c.mu.Lock()
	var p *project
	for _, pr := range c.projects {
		if pr.ID == r.PathValue("id") {
			p = pr
		}
	}
	if p == nil {
		c.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "project not found"})
		return
	}
	id := c.addTemplate(p, doc)
	c.mu.Unlock()
	if c.CreateTemplateResponse != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, c.CreateTemplateResponse)
		return
	}
	c.respondTask(w, id)
}

func (c *Controller) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	doc := c.Template(r.PathValue("id"))
	if doc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "template not found"})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (c *Controller) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	id, _ := doc["id"].(string)
	c.mu.Lock()
	old, ok := c.templates[id]
	if ok {
		doc["projectId"] = old["projectId"]
		c.templates[id] = doc
	}
	c.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "template not found"})
		return
	}
	c.respondTask(w, id)
}

func (c *Controller) handleVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comments   string `json:"comments"`
		TemplateID string `json:"templateId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	c.mu.Lock()
	_, ok := c.templates[req.TemplateID]
	if ok {
		c.versions[req.TemplateID] = append(c.versions[req.TemplateID], req.Comments)
	}
	c.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "template not found"})
		return
	}
	c.respondTask(w, req.TemplateID)
}

// respondTask records a finished task carrying data and answers with its
// id the way asynchronous endpoints do.
func (c *Controller) respondTask(w http.ResponseWriter, data string) {
	c.mu.Lock()
	id := c.nextID("task")
	task := map[string]interface{}{
		"id":        id,
		"data":      data,
		"progress":  "done",
		"isError":   false,
		"startTime": 1700000000000,
		"endTime":   1700000001000,
		"version":   1700000001000,
	}
	if c.TaskFailure != "" {
		task["isError"] = true
		task["failureReason"] = c.TaskFailure
		task["progress"] = "failed"
	}
	c.tasks[id] = task
	c.mu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"response": map[string]string{"taskId": id, "url": "/api/v1/task/" + id},
		"version":  "1.0",
	})
}

func (c *Controller) respond(w http.ResponseWriter, v interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"response": v, "version": "1.0"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func orEmpty(list []map[string]interface{}) []map[string]interface{} {
	if list == nil {
		return []map[string]interface{}{}
	}
	return list
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	data, _ := json.Marshal(m)
	var out map[string]interface{}
	json.Unmarshal(data, &out)
	return out
}
