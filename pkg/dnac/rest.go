package dnac

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/ezdnac/ezdnac/pkg/util"
	"github.com/ezdnac/ezdnac/pkg/version"
)

// request is one REST call. A []byte or string body is sent verbatim,
// anything else is JSON-encoded.
type request struct {
	method   string
	base     string
	endpoint string
	body     interface{}
	header   http.Header
}

// Do performs a REST call against base+endpoint and returns the response
// body. Only GET, PUT, POST and DELETE are accepted. An empty base means
// BaseAPI.
func (c *Client) Do(ctx context.Context, method, base, endpoint string, body interface{}) ([]byte, error) {
	return c.send(ctx, request{method: method, base: base, endpoint: endpoint, body: body})
}

func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	switch r.method {
	case http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete:
	default:
		return nil, fmt.Errorf("invalid rest method %q", r.method)
	}
	if r.base == "" {
		r.base = BaseAPI
	}
	url := c.baseURL() + r.base + r.endpoint

	var reader io.Reader
	switch b := r.body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s payload: %w", r.method, r.endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-auth-token", c.Token())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	log := util.WithController(c.host)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", r.method, url, err)
	}
	log.Debugf("%s %s -> %d", r.method, url, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &util.APIError{Method: r.method, URL: url, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// get performs a GET against BaseAPI and decodes the body into v.
func (c *Client) get(ctx context.Context, endpoint string, v interface{}) error {
	data, err := c.Do(ctx, http.MethodGet, BaseAPI, endpoint, nil)
	if err != nil {
		return err
	}
	return decode(data, endpoint, v)
}

// getResponse performs a GET and decodes the "response" member into v.
func (c *Client) getResponse(ctx context.Context, base, endpoint string, v interface{}) error {
	data, err := c.Do(ctx, http.MethodGet, base, endpoint, nil)
	if err != nil {
		return err
	}
	var envelope struct {
		Response json.RawMessage `json:"response"`
	}
	if err := decode(data, endpoint, &envelope); err != nil {
		return err
	}
	if len(envelope.Response) == 0 {
		return fmt.Errorf("decoding %s: no response member", endpoint)
	}
	return decode(envelope.Response, endpoint, v)
}

func decode(data []byte, endpoint string, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return nil
}

// taskIDFrom extracts response.taskId from an asynchronous call and
// remembers it as the client's last task.
func (c *Client) taskIDFrom(data []byte) string {
	id := gjson.GetBytes(data, "response.taskId").String()
	c.rememberTask(id)
	return id
}
