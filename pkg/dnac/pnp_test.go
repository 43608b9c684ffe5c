package dnac

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/ezdnac/ezdnac/internal/testutil"
	"github.com/ezdnac/ezdnac/pkg/util"
)

func TestFindPnPDevice(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctrl.PnP = []map[string]interface{}{pnpDevice("pnp-1", "FCW2201L0AB")}
	ctx := testutil.Context(t)

	d, err := c.FindPnPDevice(ctx, "FCW2201L0AB")
	if err != nil {
		t.Fatal(err)
	}
	if d.ID != "pnp-1" || d.DeviceInfo.PID != "C9200L-24P" {
		t.Errorf("device = %+v", d)
	}
	if got := d.DeviceInfo.ClientAddress(); got != "10.9.9.9" {
		t.Errorf("ClientAddress = %q", got)
	}

	_, err = c.FindPnPDevice(ctx, "MISSING")
	if !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if want := `device with serial number "MISSING" not found in pnp`; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestClaimRequest_Payload(t *testing.T) {
	tests := []struct {
		name       string
		req        ClaimRequest
		wantConfig string
		wantSave   bool
		wantParams int
	}{
		{
			name: "no template",
			req:  ClaimRequest{SiteID: "site-1", DeviceID: "pnp-1"},
		},
		{
			name: "with template",
			req: ClaimRequest{
				SiteID:     "site-1",
				DeviceID:   "pnp-1",
				TemplateID: "tmpl-1",
				Params:     map[string]interface{}{"hostname": "sw1", "vlan": 10},
			},
			wantConfig: "tmpl-1",
			wantSave:   true,
			wantParams: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req.payload())
			if err != nil {
				t.Fatal(err)
			}
			var p claimPayload
			if err := json.Unmarshal(data, &p); err != nil {
				t.Fatal(err)
			}
			if p.Type != "Default" || p.ImageInfo.ImageID != "None" || !p.ImageInfo.Skip {
				t.Errorf("fixed fields wrong: %s", data)
			}
			if p.ConfigInfo.ConfigID != tt.wantConfig {
				t.Errorf("configId = %q", p.ConfigInfo.ConfigID)
			}
			if p.ConfigInfo.SaveToStartUp != tt.wantSave || p.ConfigInfo.ConnLossRollBack != tt.wantSave {
				t.Errorf("save/rollback flags wrong: %s", data)
			}
			if len(p.ConfigInfo.ConfigParameters) != tt.wantParams {
				t.Errorf("params = %+v", p.ConfigInfo.ConfigParameters)
			}
		})
	}
}

func TestClaimRequest_ParamsSorted(t *testing.T) {
	r := ClaimRequest{
		SiteID:     "s",
		DeviceID:   "d",
		TemplateID: "t",
		Params:     map[string]interface{}{"b": 2, "a": 1, "c": 3},
	}
	p := r.payload().(claimPayload)
	var keys []string
	for _, cp := range p.ConfigInfo.ConfigParameters {
		keys = append(keys, cp.Key)
	}
	if len(keys) != 3 || keys[0] != "a" || keys[1] != "b" || keys[2] != "c" {
		t.Errorf("keys = %v", keys)
	}
}

func TestClaimDevice(t *testing.T) {
	c, ctrl := newTestClient(t)
	ctx := testutil.Context(t)

	msg, err := c.ClaimDevice(ctx, ClaimRequest{SiteID: "site-1", DeviceID: "pnp-1"})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Device Claimed" {
		t.Errorf("message = %q", msg)
	}

	raw := json.RawMessage(`{"siteId":"custom"}`)
	if _, err := c.ClaimDevice(ctx, ClaimRequest{Payload: raw}); err != nil {
		t.Fatal(err)
	}
	calls := ctrl.Calls(http.MethodPost, "site-claim")
	if string(calls[1].Body) != string(raw) {
		t.Errorf("raw payload not sent verbatim: %s", calls[1].Body)
	}

	if _, err := c.ClaimDevice(ctx, ClaimRequest{DeviceID: "pnp-1"}); !errors.Is(err, util.ErrValidationFailed) {
		t.Errorf("missing site: err = %v", err)
	}
}
