package dnac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// Site is a node of the site hierarchy (area, building or floor)
type Site struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SiteNameHierarchy string `json:"siteNameHierarchy"`
	ParentID          string `json:"parentId"`
}

// The site API answers synchronously only when asked to.
var runSyncHeader = http.Header{
	"__runsync":           {"true"},
	"__timeout":           {"10"},
	"__persistbapioutput": {"true"},
}

// GetSites lists all sites.
func (c *Client) GetSites(ctx context.Context) ([]Site, error) {
	return c.getSites(ctx, "")
}

// SiteID resolves a site by name or full hierarchy
// ("Global/Area/Building").
func (c *Client) SiteID(ctx context.Context, name string) (string, error) {
	sites, err := c.getSites(ctx, name)
	if err != nil {
		return "", err
	}
	if len(sites) == 0 {
		return "", util.NewNotFoundError("site", name)
	}
	return sites[0].ID, nil
}

func (c *Client) getSites(ctx context.Context, name string) ([]Site, error) {
	endpoint := "site"
	if name != "" {
		endpoint += "?" + url.Values{"name": {name}}.Encode()
	}
	data, err := c.send(ctx, request{
		method:   http.MethodGet,
		base:     BaseIntent,
		endpoint: endpoint,
		header:   runSyncHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	var envelope struct {
		Response []Site `json:"response"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding sites: %w", err)
	}
	return envelope.Response, nil
}

// AssignToSite adds an inventory device, identified by its management IP,
// to a site. It returns the execution id of the business API call.
func (c *Client) AssignToSite(ctx context.Context, siteID, deviceIP string) (string, error) {
	if siteID == "" || deviceIP == "" {
		return "", util.NewValidationError("site id and device ip are required")
	}
	payload := map[string]interface{}{
		"device": []map[string]string{{"ip": deviceIP}},
	}
	data, err := c.Do(ctx, http.MethodPost, BaseSystem, "site/"+siteID+"/device", payload)
	if err != nil {
		return "", fmt.Errorf("assigning %s to site: %w", deviceIP, err)
	}
	return gjson.GetBytes(data, "executionId").String(), nil
}

// ExecutionStatus is the state of a business API execution
type ExecutionStatus struct {
	BapiExecutionID string `json:"bapiExecutionId"`
	BapiName        string `json:"bapiName"`
	Status          string `json:"status"`
	BapiError       string `json:"bapiError,omitempty"`
}

// GetExecutionStatus fetches a business API execution.
func (c *Client) GetExecutionStatus(ctx context.Context, id string) (*ExecutionStatus, error) {
	if id == "" {
		return nil, util.NewValidationError("execution id is required")
	}
	data, err := c.Do(ctx, http.MethodGet, BaseBusiness, "execution-status/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("execution %s: %w", id, err)
	}
	var st ExecutionStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding execution %s: %w", id, err)
	}
	return &st, nil
}
