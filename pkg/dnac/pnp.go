package dnac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// PnPDevice is an entry of the plug-and-play provisioning queue
type PnPDevice struct {
	ID         string        `json:"id"`
	DeviceInfo PnPDeviceInfo `json:"deviceInfo"`

	// Raw is the device exactly as returned by the controller.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw object alongside the known fields.
func (d *PnPDevice) UnmarshalJSON(data []byte) error {
	type plain PnPDevice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = PnPDevice(p)
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// PnPDeviceInfo is what the device reported when it contacted the
// controller
type PnPDeviceInfo struct {
	SerialNumber string     `json:"serialNumber"`
	Name         string     `json:"name"`
	PID          string     `json:"pid"`
	State        string     `json:"state"`
	OnbState     string     `json:"onbState"`
	MacAddress   string     `json:"macAddress"`
	ImageVersion string     `json:"imageVersion"`
	AgentType    string     `json:"agentType"`
	StackInfo    *StackInfo `json:"stackInfo,omitempty"`
	HTTPHeaders  []KeyValue `json:"httpHeaders,omitempty"`
}

// StackInfo describes a switch stack
type StackInfo struct {
	StackMemberList []StackMember `json:"stackMemberList"`
}

// StackMember is one switch of a stack
type StackMember struct {
	SerialNumber    string `json:"serialNumber"`
	SoftwareVersion string `json:"softwareVersion"`
	Role            string `json:"role"`
	PID             string `json:"pid"`
}

// KeyValue is a generic key/value pair
type KeyValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// ClientAddress returns the source address the device used to reach the
// controller, taken from the clientAddress HTTP header entry.
func (i *PnPDeviceInfo) ClientAddress() string {
	for _, h := range i.HTTPHeaders {
		if h.Key == "clientAddress" {
			if s, ok := h.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// IsStack reports whether the device is a stack of more than one switch.
func (i *PnPDeviceInfo) IsStack() bool {
	return i.StackInfo != nil && len(i.StackInfo.StackMemberList) > 1
}

// GetPnPDevices lists the PnP queue.
func (c *Client) GetPnPDevices(ctx context.Context) ([]PnPDevice, error) {
	var devices []PnPDevice
	if err := c.get(ctx, "onboarding/pnp-device", &devices); err != nil {
		return nil, fmt.Errorf("listing pnp devices: %w", err)
	}
	return devices, nil
}

// FindPnPDevice returns the first PnP entry whose serial number contains sn.
func (c *Client) FindPnPDevice(ctx context.Context, sn string) (*PnPDevice, error) {
	devices, err := c.GetPnPDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if strings.Contains(devices[i].DeviceInfo.SerialNumber, sn) {
			return &devices[i], nil
		}
	}
	return nil, &util.NotFoundError{Kind: "device with serial number", Key: sn, Where: "pnp"}
}

// ClaimRequest claims a PnP device to a site, optionally with an onboarding
// template
type ClaimRequest struct {
	SiteID     string
	DeviceID   string
	TemplateID string
	Params     map[string]interface{}

	// Payload, when set, is sent as-is instead of the built request.
	Payload json.RawMessage
}

type configParameter struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

type claimPayload struct {
	SiteID    string `json:"siteId"`
	DeviceID  string `json:"deviceId"`
	Type      string `json:"type"`
	ImageInfo struct {
		ImageID string `json:"imageId"`
		Skip    bool   `json:"skip"`
	} `json:"imageInfo"`
	ConfigInfo struct {
		SaveToStartUp    bool              `json:"saveToStartUp,omitempty"`
		ConnLossRollBack bool              `json:"connLossRollBack,omitempty"`
		ConfigID         string            `json:"configId"`
		ConfigParameters []configParameter `json:"configParameters"`
	} `json:"configInfo"`
}

func (r ClaimRequest) payload() interface{} {
	if len(r.Payload) > 0 {
		return []byte(r.Payload)
	}
	var p claimPayload
	p.SiteID = r.SiteID
	p.DeviceID = r.DeviceID
	p.Type = "Default"
	p.ImageInfo.ImageID = "None"
	p.ImageInfo.Skip = true
	p.ConfigInfo.ConfigParameters = []configParameter{}
	if r.TemplateID != "" {
		p.ConfigInfo.SaveToStartUp = true
		p.ConfigInfo.ConnLossRollBack = true
		p.ConfigInfo.ConfigID = r.TemplateID
		for _, k := range sortedKeys(r.Params) {
			p.ConfigInfo.ConfigParameters = append(p.ConfigInfo.ConfigParameters,
				configParameter{Key: k, Value: r.Params[k]})
		}
	}
	return p
}

// ClaimDevice claims a PnP device to a site and returns the controller's
// message.
func (c *Client) ClaimDevice(ctx context.Context, r ClaimRequest) (string, error) {
	if len(r.Payload) == 0 && (r.SiteID == "" || r.DeviceID == "") {
		return "", util.NewValidationError("site id and device id are required to claim a device")
	}
	data, err := c.Do(ctx, http.MethodPost, BaseAPI, "onboarding/pnp-device/site-claim", r.payload())
	if err != nil {
		return "", fmt.Errorf("claiming device %s: %w", r.DeviceID, err)
	}
	res := gjson.ParseBytes(data)
	if msg := res.Get("response"); msg.Type == gjson.String {
		return msg.String(), nil
	}
	return string(data), nil
}
