package dnac

import (
	"testing"
	"time"

	"github.com/ezdnac/ezdnac/internal/testutil"
)

// newTestClient returns a logged-in client against a fresh fake
// controller.
func newTestClient(t *testing.T) (*Client, *testutil.Controller) {
	t.Helper()
	ctrl := testutil.NewController(t)
	c, err := NewClient(Config{
		Host:             ctrl.Addr(),
		Username:         testutil.Username,
		Password:         testutil.Password,
		AuthToken:        testutil.Token,
		TaskPollInterval: time.Millisecond,
		TaskPollAttempts: 3,
		HTTPClient:       ctrl.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, ctrl
}

func inventoryDevice(id, hostname, serial, ip string) map[string]interface{} {
	return map[string]interface{}{
		"id":                  id,
		"hostname":            hostname,
		"serialNumber":        serial,
		"managementIpAddress": ip,
		"macAddress":          "00:11:22:33:44:55",
		"platformId":          "C9300-48P",
		"softwareType":        "IOS-XE",
		"softwareVersion":     "17.3.4",
		"collectionStatus":    "Managed",
		"role":                "ACCESS",
	}
}

func pnpDevice(id, serial string) map[string]interface{} {
	return map[string]interface{}{
		"id": id,
		"deviceInfo": map[string]interface{}{
			"serialNumber": serial,
			"name":         "new-switch",
			"pid":          "C9200L-24P",
			"state":        "Unclaimed",
			"onbState":     "Initialized",
			"imageVersion": "16.12.4",
			"agentType":    "IOS",
			"macAddress":   "aa:bb:cc:dd:ee:ff",
			"httpHeaders": []interface{}{
				map[string]interface{}{"key": "clientAddress", "value": "10.9.9.9"},
				map[string]interface{}{"key": "clientPort", "value": "443"},
			},
		},
	}
}
