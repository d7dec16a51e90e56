package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/me/mgfw/pkg/logging"
)

// debugClient is an HTTP client for the debug server, grounded on
// wilke-GoWe's internal/cli.Client — the same do/Get/Post shape, aimed at
// /jobs and /jobs/{id}/cancel instead of the workflow REST API.
type debugClient struct {
	baseURL string
	http    *http.Client
	sink    logging.Sink
}

func newDebugClient(baseURL string, sink logging.Sink) *debugClient {
	return &debugClient{baseURL: baseURL, http: &http.Client{}, sink: sink}
}

type apiEnvelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
}

func (c *debugClient) do(method, path string, body any) (*apiEnvelope, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.sink != nil {
		c.sink.Debug(method + " " + url)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Status == "error" {
		return &env, fmt.Errorf("debugsrv: %s", env.Error)
	}
	return &env, nil
}

func (c *debugClient) Get(path string) (*apiEnvelope, error)  { return c.do(http.MethodGet, path, nil) }
func (c *debugClient) Post(path string) (*apiEnvelope, error) { return c.do(http.MethodPost, path, nil) }
