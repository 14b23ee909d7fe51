// Package tenable is a thin SecurityCenter REST client plus the scan and
// report workflows built on it. API keys live only in memory for the life of
// the process; nothing in this package writes them anywhere.
package tenable

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Config carries everything needed to talk to a SecurityCenter instance.
// AccessKey and SecretKey are supplied interactively or via environment and
// are never persisted.
type Config struct {
	BaseURL   string
	AccessKey string
	SecretKey string

	// CACertFile optionally pins the server certificate, for appliances
	// fronted by an internal CA.
	CACertFile string
	Timeout    time.Duration
}

// Client issues authenticated requests against the SecurityCenter REST API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient builds a client from config. The returned client is safe for
// concurrent use.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tenable: base URL required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("tenable: access and secret keys required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpc := &http.Client{Timeout: timeout}

	if cfg.CACertFile != "" {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("tenable: read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tenable: no certificates in %s", cfg.CACertFile)
		}
		httpc.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  fmt.Sprintf("accessKey=%s; secretKey=%s", cfg.AccessKey, cfg.SecretKey),
		httpc:   httpc,
	}, nil
}

// apiError is the error body SecurityCenter returns on non-2xx responses.
type apiError struct {
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any) (*http.Response, error) {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("tenable: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("tenable: build request: %w", err)
	}
	req.Header.Set("X-ApiKey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tenable: %s %s: %w", method, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.ErrorMsg != "" {
			return nil, fmt.Errorf("tenable: %s %s: %s (HTTP %d)", method, endpoint, ae.ErrorMsg, resp.StatusCode)
		}
		return nil, fmt.Errorf("tenable: %s %s: HTTP %d", method, endpoint, resp.StatusCode)
	}
	return resp, nil
}

// doJSON issues a request and decodes the JSON body into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	resp, err := c.do(ctx, method, endpoint, params, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tenable: decode %s %s: %w", method, endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, params, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, endpoint, nil, body, out)
}

func (c *Client) patch(ctx context.Context, endpoint string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, endpoint, nil, body, out)
}

func (c *Client) delete(ctx context.Context, endpoint string) error {
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}
