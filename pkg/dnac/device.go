package dnac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/ezdnac/ezdnac/pkg/util"
)

// Device states outside the PnP onboarding states.
const StateProvisioned = "Provisioned"

// Where a Device was found.
const (
	SourceInventory = "inventory"
	SourcePnP       = "pnp"
)

// MaxPortChannel is the highest Port-channel number NextPortChannel hands out.
const MaxPortChannel = 48

// Lookup identifies a device by id, serial number or hostname. The first
// non-empty key in that order is used.
type Lookup struct {
	ID       string
	Serial   string
	Hostname string
}

func (l Lookup) method() string {
	switch {
	case l.ID != "":
		return "id"
	case l.Serial != "":
		return "serial"
	case l.Hostname != "":
		return "hostname"
	}
	return ""
}

// Device is a single view over a managed inventory device or a PnP queue
// entry
type Device struct {
	ID               string `json:"id"`
	Hostname         string `json:"hostname"`
	SerialNumber     string `json:"serialNumber"`
	IP               string `json:"ip,omitempty"`
	MacAddress       string `json:"macAddress,omitempty"`
	Platform         string `json:"platform"`
	SoftwareType     string `json:"softwareType,omitempty"`
	SoftwareVersion  string `json:"softwareVersion,omitempty"`
	State            string `json:"state"`
	CollectionStatus string `json:"collectionStatus,omitempty"`
	Source           string `json:"source"`
	LookupMethod     string `json:"lookupMethod"`

	// Ids of the last asynchronous operations started on this device.
	TaskID       string `json:"taskId,omitempty"`
	ExecutionID  string `json:"executionId,omitempty"`
	DeploymentID string `json:"deploymentId,omitempty"`

	raw    json.RawMessage
	client *Client
}

// LookupDevice finds a device. Ids and hostnames are only searched in the
// inventory; serial numbers are searched in the inventory first, then in
// the PnP queue.
func (c *Client) LookupDevice(ctx context.Context, l Lookup) (*Device, error) {
	d := &Device{client: c, LookupMethod: l.method()}
	switch d.LookupMethod {
	case "id":
		nd, err := c.GetDevice(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		d.fromInventory(nd)
	case "hostname":
		nd, err := c.FindDeviceByHostname(ctx, l.Hostname)
		if err != nil {
			return nil, err
		}
		d.fromInventory(nd)
	case "serial":
		nd, err := c.FindDeviceBySerial(ctx, l.Serial)
		if err == nil {
			d.fromInventory(nd)
			break
		}
		if !errors.Is(err, util.ErrNotFound) {
			return nil, err
		}
		pd, err := c.FindPnPDevice(ctx, l.Serial)
		if errors.Is(err, util.ErrNotFound) {
			return nil, &util.NotFoundError{Kind: "device with serial number", Key: l.Serial, Where: "inventory or pnp"}
		}
		if err != nil {
			return nil, err
		}
		d.fromPnP(pd)
	default:
		return nil, util.NewValidationError("no device key given: enter an id, serial number or hostname")
	}
	util.WithDevice(d.Hostname).Debugf("Found %s device %s by %s", d.Source, d.ID, d.LookupMethod)
	return d, nil
}

func (d *Device) fromInventory(nd *NetworkDevice) {
	d.Source = SourceInventory
	d.State = StateProvisioned
	d.ID = nd.ID
	d.Hostname = nd.Hostname
	d.SerialNumber = nd.SerialNumber
	d.IP = nd.ManagementIPAddress
	d.MacAddress = nd.MacAddress
	d.Platform = nd.PlatformID
	d.SoftwareType = nd.SoftwareType
	d.SoftwareVersion = nd.SoftwareVersion
	d.CollectionStatus = nd.CollectionStatus
	d.raw = nd.Raw
}

func (d *Device) fromPnP(pd *PnPDevice) {
	info := &pd.DeviceInfo
	d.Source = SourcePnP
	d.ID = pd.ID
	d.Hostname = info.Name
	d.SerialNumber = info.SerialNumber
	d.MacAddress = info.MacAddress
	d.State = info.State
	d.Platform = info.PID
	d.SoftwareType = info.AgentType
	if info.IsStack() {
		d.SoftwareVersion = info.StackInfo.StackMemberList[0].SoftwareVersion
	} else {
		d.SoftwareVersion = info.ImageVersion
	}
	d.IP = info.ClientAddress()
	d.raw = pd.Raw
}

// InInventory reports whether the device is a managed inventory device.
func (d *Device) InInventory() bool {
	return d.Source == SourceInventory
}

// Attr returns a raw attribute of the device as the controller reported
// it, addressed by a gjson path such as "deviceInfo.onbState".
func (d *Device) Attr(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// Raw returns the device as the controller reported it.
func (d *Device) Raw() json.RawMessage {
	return d.raw
}

// Refresh re-reads the device from the inventory.
func (d *Device) Refresh(ctx context.Context) error {
	nd, err := d.client.GetDevice(ctx, d.ID)
	if err != nil {
		return err
	}
	d.fromInventory(nd)
	return nil
}

// FetchCollectionStatus re-reads and returns the inventory collection
// status.
func (d *Device) FetchCollectionStatus(ctx context.Context) (string, error) {
	nd, err := d.client.GetDevice(ctx, d.ID)
	if err != nil {
		return "", err
	}
	d.CollectionStatus = nd.CollectionStatus
	return d.CollectionStatus, nil
}

// Interfaces lists the device's interfaces.
func (d *Device) Interfaces(ctx context.Context) ([]Interface, error) {
	return d.client.GetInterfaces(ctx, d.ID)
}

// Connections returns the topology links of the device, oriented from
// this device to its neighbors.
func (d *Device) Connections(ctx context.Context) ([]Connection, error) {
	links, err := d.client.PhysicalTopology(ctx)
	if err != nil {
		return nil, err
	}
	return ConnectionsOf(links, d.ID), nil
}

// Neighbors returns the ids of connected devices in first-seen order.
func (d *Device) Neighbors(ctx context.Context) ([]string, error) {
	conns, err := d.Connections(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, c := range conns {
		if !seen[c.RemoteNode] {
			seen[c.RemoteNode] = true
			ids = append(ids, c.RemoteNode)
		}
	}
	return ids, nil
}

// NeighborInterfaces returns the neighbor's interfaces connected to this
// device.
func (d *Device) NeighborInterfaces(ctx context.Context, neighborID string) ([]string, error) {
	conns, err := d.Connections(ctx)
	if err != nil {
		return nil, err
	}
	var intfs []string
	for _, c := range conns {
		if c.RemoteNode == neighborID {
			intfs = append(intfs, c.RemoteInterface)
		}
	}
	return intfs, nil
}

// Modules lists the device's hardware modules.
func (d *Device) Modules(ctx context.Context) ([]Module, error) {
	return d.client.GetModules(ctx, d.ID)
}

var switchPattern = regexp.MustCompile(`Switch \d+`)

// StackCount returns the number of stack members, counted from the
// distinct "Switch N" module names. A standalone switch counts as one.
func (d *Device) StackCount(ctx context.Context) (int, error) {
	modules, err := d.Modules(ctx)
	if err != nil {
		return 0, err
	}
	return stackCount(modules), nil
}

func stackCount(modules []Module) int {
	switches := make(map[string]bool)
	for _, m := range modules {
		if s := switchPattern.FindString(m.Name); s != "" {
			switches[s] = true
		}
	}
	if len(switches) == 0 {
		return 1
	}
	return len(switches)
}

var portChannelPattern = regexp.MustCompile(`^Port-channel(\d+)$`)

// NextPortChannel returns the lowest Port-channel number not configured on
// the device.
func (d *Device) NextPortChannel(ctx context.Context) (int, error) {
	intfs, err := d.Interfaces(ctx)
	if err != nil {
		return 0, err
	}
	return nextPortChannel(intfs)
}

func nextPortChannel(intfs []Interface) (int, error) {
	used := make(map[int]bool)
	for _, i := range intfs {
		if m := portChannelPattern.FindStringSubmatch(i.PortName); m != nil {
			n, _ := strconv.Atoi(m[1])
			used[n] = true
		}
	}
	for n := 1; n <= MaxPortChannel; n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, fmt.Errorf("all port-channels 1-%d are in use", MaxPortChannel)
}

// AssignToSite adds the device to a site by its IP address.
func (d *Device) AssignToSite(ctx context.Context, siteID string) (string, error) {
	if d.IP == "" {
		return "", fmt.Errorf("device %s has no known ip address", d.ID)
	}
	id, err := d.client.AssignToSite(ctx, siteID, d.IP)
	if err != nil {
		return "", err
	}
	d.ExecutionID = id
	return id, nil
}

// Claim claims a PnP device to a site. The request's DeviceID is filled in.
func (d *Device) Claim(ctx context.Context, r ClaimRequest) (string, error) {
	r.DeviceID = d.ID
	return d.client.ClaimDevice(ctx, r)
}

// Sync asks the controller to resynchronize the device.
func (d *Device) Sync(ctx context.Context) (string, error) {
	id, err := d.client.SyncDevices(ctx, d.ID)
	if err != nil {
		return "", err
	}
	d.TaskID = id
	return id, nil
}

// DeployTemplate deploys a template to the device.
func (d *Device) DeployTemplate(ctx context.Context, dep Deployment) (*DeployResult, error) {
	res, err := d.client.DeployTemplate(ctx, d.ID, dep)
	if err != nil {
		return nil, err
	}
	d.DeploymentID = res.DeploymentID
	return res, nil
}

// DeploymentStatus returns the status of the given deployment, or of the
// device's last one when id is empty.
func (d *Device) DeploymentStatus(ctx context.Context, id string) (string, error) {
	if id == "" {
		id = d.DeploymentID
	}
	return d.client.DeploymentStatus(ctx, id)
}

// TaskStatus returns the given task, or the device's last task when id is
// empty.
func (d *Device) TaskStatus(ctx context.Context, id string) (*Task, error) {
	if id == "" {
		id = d.TaskID
	}
	if id == "" {
		return nil, ErrNoTask
	}
	return d.client.TaskStatus(ctx, id)
}

// ExecutionStatus returns the given execution, or the device's last one
// when id is empty.
func (d *Device) ExecutionStatus(ctx context.Context, id string) (*ExecutionStatus, error) {
	if id == "" {
		id = d.ExecutionID
	}
	return d.client.GetExecutionStatus(ctx, id)
}
