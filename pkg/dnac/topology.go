package dnac

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Link is a physical connection between two inventory devices
type Link struct {
	Source        string `json:"source"`
	Target        string `json:"target"`
	StartPortName string `json:"startPortName"`
	EndPortName   string `json:"endPortName"`
}

// PhysicalTopology returns the physical links known to the controller.
// Links missing an endpoint or a port name are skipped.
func (c *Client) PhysicalTopology(ctx context.Context) ([]Link, error) {
	data, err := c.Do(ctx, http.MethodGet, BaseAPI, "topology/physical-topology/", nil)
	if err != nil {
		return nil, fmt.Errorf("getting physical topology: %w", err)
	}
	return parseLinks(data), nil
}

func parseLinks(data []byte) []Link {
	var links []Link
	gjson.GetBytes(data, "response.links").ForEach(func(_, l gjson.Result) bool {
		src, dst := l.Get("source"), l.Get("target")
		start, end := l.Get("startPortName"), l.Get("endPortName")
		if !src.Exists() || !dst.Exists() || !start.Exists() || !end.Exists() {
			return true
		}
		links = append(links, Link{
			Source:        src.String(),
			Target:        dst.String(),
			StartPortName: start.String(),
			EndPortName:   end.String(),
		})
		return true
	})
	return links
}

// Connection is a link seen from one device
type Connection struct {
	LocalInterface  string `json:"local_interface"`
	RemoteNode      string `json:"remote_node"`
	RemoteInterface string `json:"remote_interface"`
}

// ConnectionsOf orients the links touching deviceID from that device's
// point of view.
func ConnectionsOf(links []Link, deviceID string) []Connection {
	var conns []Connection
	for _, l := range links {
		switch deviceID {
		case l.Source:
			conns = append(conns, Connection{
				LocalInterface:  l.StartPortName,
				RemoteNode:      l.Target,
				RemoteInterface: l.EndPortName,
			})
		case l.Target:
			conns = append(conns, Connection{
				LocalInterface:  l.EndPortName,
				RemoteNode:      l.Source,
				RemoteInterface: l.StartPortName,
			})
		}
	}
	return conns
}
