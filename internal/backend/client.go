// Package backend is the gateway to the hosted backend service: auth,
// table queries, stored-procedure calls and object storage. It performs
// network I/O only and keeps no cache; failures surface as
// *apperr.BackendError for the apperr.Translate boundary.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

type Client struct {
	baseURL string
	anonKey string
	client  *http.Client

	mu      sync.RWMutex
	session *Session
}

func New(baseURL, anonKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// From starts a table query against the REST layer.
func (c *Client) From(table string) *Query {
	return &Query{
		client: c,
		table:  table,
		params: url.Values{},
	}
}

// RPC invokes a named stored procedure with the given parameters and
// decodes the result into dest when dest is non-nil.
func (c *Client) RPC(ctx context.Context, name string, params any, dest any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling rpc params: %w", err)
	}

	return c.do(ctx, http.MethodPost, "/rest/v1/rpc/"+name, nil, nil, bytes.NewReader(body), "application/json", dest)
}

// AccessToken returns the bearer token for the current session, or the
// anonymous key when signed out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session != nil {
		return c.session.AccessToken
	}

	return c.anonKey
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body io.Reader, contentType string, dest any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.AccessToken())

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}

	if dest == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
