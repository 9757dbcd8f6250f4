// Package n8n implements the remote submission boundary against an n8n
// instance's public REST API.
package n8n

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/trangpl193/strange-mcp-n8n-sub000/pkg/api"
)

const apiKeyHeader = "X-N8N-API-KEY"

// Config holds the connection settings for an n8n instance.
type Config struct {
	// BaseURL is the instance root, e.g. "http://localhost:5678".
	BaseURL string
	// APIKey is sent on every request.
	APIKey string
	// HTTPClient is optional; a client with a 30s timeout is used when nil.
	HTTPClient *http.Client
}

// HTTPClient talks to the n8n REST API. All failures are surfaced as
// *api.RemoteError so the commit path can classify them.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ api.RemoteClient = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the configured instance.
func NewHTTPClient(cfg Config) *HTTPClient {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// workflowEnvelope is the wire shape of a workflow record. Only the fields
// the engine reports back are kept.
type workflowEnvelope struct {
	ID          string                         `json:"id"`
	Name        string                         `json:"name"`
	Active      bool                           `json:"active"`
	Nodes       []api.GraphNode                `json:"nodes"`
	Connections map[string]api.NodeConnections `json:"connections"`
}

func (w *workflowEnvelope) toRemote() *api.RemoteWorkflow {
	return &api.RemoteWorkflow{
		ID:          w.ID,
		Name:        w.Name,
		Active:      w.Active,
		Nodes:       len(w.Nodes),
		Connections: len(w.Connections),
	}
}

func (c *HTTPClient) CreateWorkflow(ctx context.Context, graph *api.Graph) (*api.RemoteWorkflow, error) {
	var envelope workflowEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/v1/workflows", graph, &envelope); err != nil {
		return nil, err
	}
	return envelope.toRemote(), nil
}

func (c *HTTPClient) UpdateWorkflow(ctx context.Context, id string, graph *api.Graph) (*api.RemoteWorkflow, error) {
	var envelope workflowEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/v1/workflows/"+url.PathEscape(id), graph, &envelope); err != nil {
		return nil, err
	}
	return envelope.toRemote(), nil
}

func (c *HTTPClient) ActivateWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/activate", nil, nil)
}

func (c *HTTPClient) DeactivateWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/workflows/"+url.PathEscape(id)+"/deactivate", nil, nil)
}

func (c *HTTPClient) DeleteWorkflow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/workflows/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) ListExecutions(ctx context.Context, workflowID string, limit int) ([]api.Execution, error) {
	path := "/api/v1/executions?workflowId=" + url.QueryEscape(workflowID)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}

	var envelope struct {
		Data []api.Execution `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// do performs one API call: encode body, send, classify failures, decode
// response into out when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return &api.RemoteError{
				Kind:    api.KindValidation,
				Message: "failed to encode request body",
				Err:     err,
			}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &api.RemoteError{Kind: api.KindTransient, Message: "failed to build request", Err: err}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &api.RemoteError{
			Kind:    api.KindTransient,
			Message: fmt.Sprintf("%s %s failed", method, path),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &api.RemoteError{Kind: api.KindTransient, Message: "failed to read response body", Err: err}
	}

	if resp.StatusCode >= 400 {
		return &api.RemoteError{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    remoteMessage(data, resp.StatusCode),
		}
	}

	if out != nil && len(data) > 0 {
		if err := sonic.Unmarshal(data, out); err != nil {
			return &api.RemoteError{Kind: api.KindTransient, Message: "failed to decode response body", Err: err}
		}
	}
	return nil
}

func kindForStatus(status int) api.RemoteErrorKind {
	switch {
	case status == http.StatusNotFound:
		return api.KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return api.KindAuth
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return api.KindValidation
	default:
		return api.KindTransient
	}
}

// remoteMessage pulls the service's error message out of the body, falling
// back to the HTTP status text.
func remoteMessage(data []byte, status int) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return http.StatusText(status)
}
