package dnac

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/ezdnac/ezdnac/internal/testutil"
	"github.com/ezdnac/ezdnac/pkg/util"
)

func TestLookupDevice(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.Devices = []map[string]interface{}{inventoryDevice("dev-1", "access1", "FOC1111A1", "10.0.0.1")}
	ctrl.PnP = []map[string]interface{}{pnpDevice("pnp-1", "FCW2201L0AB")}
	ctx := testutil.Context(t)

	tests := []struct {
		name   string
		lookup Lookup
		id     string
		source string
		state  string
		method string
	}{
		{"by id", Lookup{ID: "dev-1"}, "dev-1", SourceInventory, StateProvisioned, "id"},
		{"by hostname", Lookup{Hostname: "access"}, "dev-1", SourceInventory, StateProvisioned, "hostname"},
		{"serial in inventory", Lookup{Serial: "FOC1111A1"}, "dev-1", SourceInventory, StateProvisioned, "serial"},
		{"serial in pnp", Lookup{Serial: "FCW2201L0AB"}, "pnp-1", SourcePnP, "Unclaimed", "serial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := c.LookupDevice(ctx, tt.lookup)
			if err != nil {
				t.Fatalf("LookupDevice: %v", err)
			}
			if d.ID != tt.id || d.Source != tt.source || d.State != tt.state || d.LookupMethod != tt.method {
				t.Errorf("device = %+v", d)
			}
		})
	}
}

func TestLookupDevice_Errors(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.PnP = []map[string]interface{}{pnpDevice("pnp-1", "FCW2201L0AB")}
	ctx := testutil.Context(t)

	if _, err := c.LookupDevice(ctx, Lookup{}); !errors.Is(err, util.ErrValidationFailed) {
		t.Errorf("empty lookup: %v", err)
	}
	// PnP entries are only found by serial number.
	if _, err := c.LookupDevice(ctx, Lookup{Hostname: "new-switch"}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("hostname in pnp only: %v", err)
	}
	if _, err := c.LookupDevice(ctx, Lookup{Serial: "NOPE"}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("unknown serial: %v", err)
	}
}

func TestLookupDevice_PnPFailureIsNotNotFound(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.PnPStatus = http.StatusInternalServerError

	_, err := c.LookupDevice(testutil.Context(t), Lookup{Serial: "FCW2201L0AB"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, util.ErrNotFound) {
		t.Errorf("err = %v, a failed pnp listing is not a missing device", err)
	}
	var apiErr *util.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("err = %v, want the pnp APIError", err)
	}
}

func TestDevice_Refresh(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.Devices = []map[string]interface{}{inventoryDevice("dev-1", "access1", "FOC1111A1", "10.0.0.1")}
	ctx := testutil.Context(t)

	d, err := c.LookupDevice(ctx, Lookup{Serial: "FOC1111A1"})
	if err != nil {
		t.Fatal(err)
	}
	upgraded := inventoryDevice("dev-1", "access1-renamed", "FOC1111A1", "10.0.0.1")
	upgraded["softwareVersion"] = "17.6.1"
	ctrl.Devices = []map[string]interface{}{upgraded}

	if err := d.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if d.Hostname != "access1-renamed" || d.SoftwareVersion != "17.6.1" || d.LookupMethod != "serial" {
		t.Errorf("device after refresh = %+v", d)
	}
	if got := d.Attr("softwareVersion").String(); got != "17.6.1" {
		t.Errorf("raw softwareVersion = %q", got)
	}
	if n := len(ctrl.Calls(http.MethodGet, "network-device/dev-1")); n != 1 {
		t.Errorf("GET network-device/dev-1 calls = %d, want 1", n)
	}

	d.ID = "dev-gone"
	if err := d.Refresh(ctx); err == nil {
		t.Error("refreshing a removed device should fail")
	}
}

func TestLookupDevice_InventoryFields(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.Devices = []map[string]interface{}{inventoryDevice("dev-1", "access1", "FOC1111A1", "10.0.0.1")}

	d, err := c.LookupDevice(testutil.Context(t), Lookup{ID: "dev-1"})
	if err != nil {
		t.Fatal(err)
	}
	want := Device{
		ID:               "dev-1",
		Hostname:         "access1",
		SerialNumber:     "FOC1111A1",
		IP:               "10.0.0.1",
		MacAddress:       "00:11:22:33:44:55",
		Platform:         "C9300-48P",
		SoftwareType:     "IOS-XE",
		SoftwareVersion:  "17.3.4",
		State:            StateProvisioned,
		CollectionStatus: "Managed",
		Source:           SourceInventory,
		LookupMethod:     "id",
	}
	got := *d
	got.raw, got.client = nil, nil
	if !reflect.DeepEqual(got, want) {
		t.Errorf("device =\n%+v\nwant\n%+v", got, want)
	}
	if role := d.Attr("role").String(); role != "ACCESS" {
		t.Errorf("Attr(role) = %q", role)
	}
}

func TestLookupDevice_PnPStack(t *testing.T) {
	c, ctrl := newTestClient(t)
	stack := pnpDevice("pnp-2", "FCW0000STK")
	info := stack["deviceInfo"].(map[string]interface{})
	info["stackInfo"] = map[string]interface{}{
		"stackMemberList": []interface{}{
			map[string]interface{}{"serialNumber": "FCW0000STK", "softwareVersion": "17.6.1"},
			map[string]interface{}{"serialNumber": "FCW0001STK", "softwareVersion": "17.6.1"},
		},
	}
	single := pnpDevice("pnp-3", "FCW0000ONE")
	single["deviceInfo"].(map[string]interface{})["stackInfo"] = map[string]interface{}{
		"stackMemberList": []interface{}{
			map[string]interface{}{"serialNumber": "FCW0000ONE", "softwareVersion": "99.9"},
		},
	}
	ctrl.PnP = []map[string]interface{}{stack, single}
	ctx := testutil.Context(t)

	d, err := c.LookupDevice(ctx, Lookup{Serial: "FCW0000STK"})
	if err != nil {
		t.Fatal(err)
	}
	if d.SoftwareVersion != "17.6.1" {
		t.Errorf("stack version = %q, want first member's", d.SoftwareVersion)
	}
	if d.Hostname != "new-switch" || d.Platform != "C9200L-24P" || d.SoftwareType != "IOS" || d.IP != "10.9.9.9" {
		t.Errorf("device = %+v", d)
	}
	if got := d.Attr("deviceInfo.onbState").String(); got != "Initialized" {
		t.Errorf("raw onbState = %q", got)
	}

	d, err = c.LookupDevice(ctx, Lookup{Serial: "FCW0000ONE"})
	if err != nil {
		t.Fatal(err)
	}
	if d.SoftwareVersion != "16.12.4" {
		t.Errorf("single member version = %q, want imageVersion", d.SoftwareVersion)
	}
}

func TestDevice_Neighbors(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.Devices = []map[string]interface{}{inventoryDevice("a", "access1", "FOC1", "10.0.0.1")}
	ctrl.Links = []map[string]interface{}{
		{"source": "a", "target": "b", "startPortName": "Gi1/0/47", "endPortName": "Gi1/0/1"},
		{"source": "c", "target": "a", "startPortName": "Gi1/0/2", "endPortName": "Gi1/0/48"},
		{"source": "a", "target": "b", "startPortName": "Gi1/0/46", "endPortName": "Gi1/0/2"},
		{"source": "b", "target": "c", "startPortName": "Te1/1/1", "endPortName": "Te1/1/1"},
	}
	ctx := testutil.Context(t)

	d, err := c.LookupDevice(ctx, Lookup{ID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	ids, err := d.Neighbors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"b", "c"}) {
		t.Errorf("Neighbors = %v", ids)
	}
	intfs, err := d.NeighborInterfaces(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(intfs, []string{"Gi1/0/1", "Gi1/0/2"}) {
		t.Errorf("NeighborInterfaces = %v", intfs)
	}
}

func TestStackCount(t *testing.T) {
	tests := []struct {
		name    string
		modules []string
		want    int
	}{
		{"standalone", []string{"C9300-48P", "Power Supply 1"}, 1},
		{"two members", []string{"Switch 1 - C9300", "Switch 1 FRU Uplink", "Switch 2 - C9300"}, 2},
		{"double digit", []string{"Switch 1", "Switch 10", "Switch 1 Fan"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var modules []Module
			for _, n := range tt.modules {
				modules = append(modules, Module{Name: n})
			}
			if got := stackCount(modules); got != tt.want {
				t.Errorf("stackCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextPortChannel(t *testing.T) {
	intfs := []Interface{
		{PortName: "GigabitEthernet1/0/1"},
		{PortName: "Port-channel1"},
		{PortName: "Port-channel2"},
		{PortName: "Port-channel4"},
	}
	n, err := nextPortChannel(intfs)
	if err != nil || n != 3 {
		t.Errorf("nextPortChannel = %d, %v; want 3", n, err)
	}

	n, err = nextPortChannel(nil)
	if err != nil || n != 1 {
		t.Errorf("no port-channels: %d, %v", n, err)
	}

	var full []Interface
	for i := 1; i <= MaxPortChannel; i++ {
		full = append(full, Interface{PortName: fmt.Sprintf("Port-channel%d", i)})
	}
	if _, err := nextPortChannel(full); err == nil {
		t.Error("exhausted range should fail")
	}
}

func TestDevice_Operations(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.Devices = []map[string]interface{}{inventoryDevice("dev-1", "access1", "FOC1", "10.0.0.1")}
	ctrl.Interfaces["dev-1"] = []map[string]interface{}{{"portName": "Port-channel1"}}
	ctx := testutil.Context(t)

	d, err := c.LookupDevice(ctx, Lookup{Serial: "FOC1"})
	if err != nil {
		t.Fatal(err)
	}

	if n, err := d.NextPortChannel(ctx); err != nil || n != 2 {
		t.Errorf("NextPortChannel = %d, %v", n, err)
	}

	taskID, err := d.Sync(ctx)
	if err != nil || taskID == "" || d.TaskID != taskID {
		t.Fatalf("Sync = %q, %v", taskID, err)
	}
	if task, err := d.TaskStatus(ctx, ""); err != nil || task.ID != taskID {
		t.Errorf("TaskStatus = %+v, %v", task, err)
	}

	execID, err := d.AssignToSite(ctx, "site-9")
	if err != nil || execID != "exec-site-9" {
		t.Fatalf("AssignToSite = %q, %v", execID, err)
	}
	st, err := d.ExecutionStatus(ctx, "")
	if err != nil || st.Status != "SUCCESS" {
		t.Errorf("ExecutionStatus = %+v, %v", st, err)
	}

	res, err := d.DeployTemplate(ctx, Deployment{TemplateID: "tmpl-1"})
	if err != nil || d.DeploymentID != res.DeploymentID {
		t.Fatalf("DeployTemplate = %+v, %v", res, err)
	}
	if st, err := d.DeploymentStatus(ctx, ""); err != nil || st != "SUCCESS" {
		t.Errorf("DeploymentStatus = %q, %v", st, err)
	}

	if status, err := d.FetchCollectionStatus(ctx); err != nil || status != "Managed" {
		t.Errorf("FetchCollectionStatus = %q, %v", status, err)
	}
}

func TestDevice_AssignToSiteNeedsIP(t *testing.T) {
	d := &Device{ID: "pnp-1"}
	if _, err := d.AssignToSite(testutil.Context(t), "site-1"); err == nil {
		t.Error("device without ip should fail")
	}
}
