package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// restClient is the shared HTTP layer under every service. It attaches the
// session token to each request and maps failures to typed errors.
type restClient struct {
	hc      *http.Client
	baseURL string
	token   string
}

func newRestClient(baseURL, token string, hc *http.Client) *restClient {
	if hc == nil {
		hc = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &restClient{
		hc:      hc,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

func (c *restClient) do(ctx context.Context, op, method, path string, reqBody, out any) error {
	var body *bytes.Buffer
	if reqBody != nil {
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(reqBody); err != nil {
			return newError(KindInvalidInput, op, fmt.Errorf("encode request: %w", err))
		}
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return newError(KindTransport, op, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return newError(KindTransport, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(op, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(KindDecode, op, err)
	}

	return nil
}

func (c *restClient) get(ctx context.Context, op, path string, out any) error {
	return c.do(ctx, op, http.MethodGet, path, nil, out)
}

func (c *restClient) post(ctx context.Context, op, path string, reqBody, out any) error {
	return c.do(ctx, op, http.MethodPost, path, reqBody, out)
}
