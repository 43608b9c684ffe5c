package dnac

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// Deployment asks for a template to be rendered and pushed to a device
type Deployment struct {
	TemplateID string
	Force      bool
	Params     map[string]interface{}
}

// DeployResult is the outcome of a deploy request
type DeployResult struct {
	DeploymentID string `json:"deploymentId,omitempty"`
	Deployed     bool   `json:"deployed"`
	Message      string `json:"message"`
}

type deployTarget struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

type deployPayload struct {
	ForcePushTemplate bool           `json:"forcePushTemplate"`
	TemplateID        string         `json:"templateId"`
	TargetInfo        []deployTarget `json:"targetInfo"`
}

// Older controllers embed the id in a sentence and misspell it.
var deploymentIDPattern = regexp.MustCompile(`Template Deploy(?:emnt|ment) Id:\s*([\w-]+)`)

const alreadyDeployed = "already deployed with same params"

// DeployTemplate deploys a template to an inventory device.
func (c *Client) DeployTemplate(ctx context.Context, deviceID string, d Deployment) (*DeployResult, error) {
	if d.TemplateID == "" || deviceID == "" {
		return nil, util.NewValidationError("template id and device id are required to deploy")
	}
	params := d.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	payload := deployPayload{
		ForcePushTemplate: d.Force,
		TemplateID:        d.TemplateID,
		TargetInfo: []deployTarget{{
			ID:     deviceID,
			Type:   "MANAGED_DEVICE_UUID",
			Params: params,
		}},
	}
	data, err := c.Do(ctx, http.MethodPost, BaseAPI, "template-programmer/template/deploy", payload)
	if err != nil {
		return nil, fmt.Errorf("deploying template %s: %w", d.TemplateID, err)
	}
	res := parseDeployResponse(data)
	util.WithDevice(deviceID).WithField("template", d.TemplateID).
		Infof("Deploy: deployed=%v id=%s", res.Deployed, res.DeploymentID)
	return res, nil
}

func parseDeployResponse(data []byte) *DeployResult {
	r := gjson.ParseBytes(data)
	if r.Get("response.errorCode").Exists() {
		return &DeployResult{Message: r.Get("response").Raw}
	}

	id := r.Get("deploymentId")
	switch id.Type {
	case gjson.Number:
		return &DeployResult{DeploymentID: id.Raw, Deployed: true, Message: "Id found in response"}
	case gjson.String:
		s := id.String()
		if m := deploymentIDPattern.FindStringSubmatch(s); m != nil {
			return &DeployResult{DeploymentID: m[1], Deployed: true, Message: "Id recovered from deployment message"}
		}
		if strings.Contains(s, alreadyDeployed) {
			return &DeployResult{Deployed: true, Message: "Same version already deployed with same params"}
		}
	}
	return &DeployResult{Message: strings.TrimSpace(string(data))}
}

// DeploymentStatus returns the status of a deployment, or the raw
// response when it carries none.
func (c *Client) DeploymentStatus(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", util.NewValidationError("deployment id is required")
	}
	data, err := c.Do(ctx, http.MethodGet, BaseAPI, "template-programmer/template/deploy/status/"+id, nil)
	if err != nil {
		return "", fmt.Errorf("deployment %s: %w", id, err)
	}
	if st := gjson.GetBytes(data, "status"); st.Exists() {
		return st.String(), nil
	}
	return strings.TrimSpace(string(data)), nil
}
