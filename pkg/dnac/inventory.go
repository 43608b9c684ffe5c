package dnac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// NetworkDevice is an entry of the managed device inventory
type NetworkDevice struct {
	ID                  string `json:"id"`
	Hostname            string `json:"hostname"`
	SerialNumber        string `json:"serialNumber"`
	MacAddress          string `json:"macAddress"`
	ManagementIPAddress string `json:"managementIpAddress"`
	PlatformID          string `json:"platformId"`
	SoftwareType        string `json:"softwareType"`
	SoftwareVersion     string `json:"softwareVersion"`
	CollectionStatus    string `json:"collectionStatus"`
	ReachabilityStatus  string `json:"reachabilityStatus"`
	Role                string `json:"role"`
	Family              string `json:"family"`
	Series              string `json:"series"`
	Type                string `json:"type"`
	UpTime              string `json:"upTime"`

	// Raw is the device exactly as returned by the controller.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw object alongside the known fields.
func (d *NetworkDevice) UnmarshalJSON(data []byte) error {
	type plain NetworkDevice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = NetworkDevice(p)
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Interface is a port of an inventory device
type Interface struct {
	ID            string `json:"id"`
	PortName      string `json:"portName"`
	InterfaceType string `json:"interfaceType"`
	PortMode      string `json:"portMode"`
	Status        string `json:"status"`
	AdminStatus   string `json:"adminStatus"`
	MacAddress    string `json:"macAddress"`
	IPv4Address   string `json:"ipv4Address"`
	Speed         string `json:"speed"`
	VlanID        string `json:"vlanId"`
	Description   string `json:"description"`
}

// Module is a hardware module of an inventory device
type Module struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PartNumber   string `json:"partNumber"`
	SerialNumber string `json:"serialNumber"`
	Description  string `json:"description"`
}

// GetAllDevices lists the device inventory.
func (c *Client) GetAllDevices(ctx context.Context) ([]NetworkDevice, error) {
	var devices []NetworkDevice
	if err := c.getResponse(ctx, BaseAPI, "network-device/", &devices); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devices, nil
}

// GetDevice fetches one inventory device by id.
func (c *Client) GetDevice(ctx context.Context, id string) (*NetworkDevice, error) {
	var d NetworkDevice
	if err := c.getResponse(ctx, BaseAPI, "network-device/"+id, &d); err != nil {
		return nil, fmt.Errorf("getting device %s: %w", id, err)
	}
	if d.ID == "" {
		return nil, util.NewNotFoundError("device", id)
	}
	return &d, nil
}

// FindDeviceBySerial returns the first inventory device whose serial
// number contains sn. Stacks report comma-separated member serials, so
// any member's serial matches.
func (c *Client) FindDeviceBySerial(ctx context.Context, sn string) (*NetworkDevice, error) {
	devices, err := c.GetAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].SerialNumber != "" && strings.Contains(devices[i].SerialNumber, sn) {
			return &devices[i], nil
		}
	}
	return nil, &util.NotFoundError{Kind: "device with serial number", Key: sn, Where: "inventory"}
}

// FindDeviceByHostname returns the first inventory device whose hostname
// starts with hostname, so a short name matches its FQDN.
func (c *Client) FindDeviceByHostname(ctx context.Context, hostname string) (*NetworkDevice, error) {
	devices, err := c.GetAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if strings.HasPrefix(devices[i].Hostname, hostname) {
			return &devices[i], nil
		}
	}
	return nil, &util.NotFoundError{Kind: "device with hostname", Key: hostname, Where: "inventory"}
}

// IDFromSerial resolves an inventory device id from a serial number.
func (c *Client) IDFromSerial(ctx context.Context, sn string) (string, error) {
	d, err := c.FindDeviceBySerial(ctx, sn)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

// NameFromID resolves an inventory device hostname from its id.
func (c *Client) NameFromID(ctx context.Context, id string) (string, error) {
	names, err := c.HostnamesByID(ctx)
	if err != nil {
		return "", err
	}
	name, ok := names[id]
	if !ok {
		return "", util.NewNotFoundError("device", id)
	}
	return name, nil
}

// HostnamesByID maps every inventory device id to its hostname.
func (c *Client) HostnamesByID(ctx context.Context) (map[string]string, error) {
	devices, err := c.GetAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(devices))
	for _, d := range devices {
		names[d.ID] = d.Hostname
	}
	return names, nil
}

// GetInterfaces lists the interfaces of an inventory device.
func (c *Client) GetInterfaces(ctx context.Context, deviceID string) ([]Interface, error) {
	var intfs []Interface
	if err := c.getResponse(ctx, BaseAPI, "interface/network-device/"+deviceID, &intfs); err != nil {
		return nil, fmt.Errorf("listing interfaces of %s: %w", deviceID, err)
	}
	return intfs, nil
}

// GetModules lists the hardware modules of an inventory device.
func (c *Client) GetModules(ctx context.Context, deviceID string) ([]Module, error) {
	var modules []Module
	endpoint := "network-device/module?deviceId=" + url.QueryEscape(deviceID)
	if err := c.getResponse(ctx, BaseAPI, endpoint, &modules); err != nil {
		return nil, fmt.Errorf("listing modules of %s: %w", deviceID, err)
	}
	return modules, nil
}

// SyncDevices asks the controller to resynchronize inventory devices and
// returns the task id. The endpoint takes a bare JSON array of ids.
func (c *Client) SyncDevices(ctx context.Context, ids ...string) (string, error) {
	if len(ids) == 0 {
		return "", util.NewValidationError("at least one device id is required")
	}
	list, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	payload := string(list) + "\n\n"
	data, err := c.Do(ctx, http.MethodPut, BaseIntent, "network-device/sync", payload)
	if err != nil {
		return "", fmt.Errorf("syncing devices: %w", err)
	}
	return c.taskIDFrom(data), nil
}
