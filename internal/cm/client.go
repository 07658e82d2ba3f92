/*
Copyright © 2025 Alexey Zapparov <alexey@zapparov.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

// Package cm is a minimal read-only client for the Cloudera Manager REST
// API, covering just the cluster and service endpoints this plugin needs.
//
// See: https://archive.cloudera.com/cm7/latest/generic/jar/cm_api/apidocs/
package cm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	DefaultHTTPPort  = 7180
	DefaultHTTPSPort = 7183

	// MinimumSupportedAPIVersion is the oldest API version known to report
	// service health in the shape this plugin expects.
	MinimumSupportedAPIVersion = 12
)

// Config holds the resolved connection parameters for one plugin run.
type Config struct {
	Hostname   string
	Port       int
	Username   string
	Password   string
	APIVersion int
	UseTLS     bool
	Insecure   bool
	Timeout    time.Duration
}

// Client talks to a single Cloudera Manager server. Construction performs no
// I/O; connectivity and credential problems surface on first use.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient builds a client bound to the host, port, credentials, API
// version and transport from the given config.
func NewClient(cfg Config) *Client {
	scheme := "http"
	if cfg.UseTLS {
		scheme = "https"
	}

	transport := http.DefaultTransport
	if cfg.Insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	hostport := net.JoinHostPort(cfg.Hostname, strconv.Itoa(cfg.Port))

	return &Client{
		baseURL:  fmt.Sprintf("%s://%s/api/v%d", scheme, hostport, cfg.APIVersion),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

// Cluster is a named cluster known to the manager server.
type Cluster struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`

	client *Client
}

// HealthCheck is one individual health check result within a service.
type HealthCheck struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// Service is a service within a cluster, together with its health report.
// HealthChecks preserve the order returned by the server.
type Service struct {
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	HealthSummary string        `json:"healthSummary"`
	HealthChecks  []HealthCheck `json:"healthChecks"`
}

// StatusError is a non-2xx response from the manager server. Message carries
// the server-supplied diagnostic when the error body could be decoded.
type StatusError struct {
	StatusCode int
	Message    string `json:"message"`
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the manager server, i.e. an
// unknown cluster or service name.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// IsUnauthorized reports whether err means the server rejected the
// credentials.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusUnauthorized ||
		statusErr.StatusCode == http.StatusForbidden
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)

	if err != nil {
		return err
	}

	req.SetBasicAuth(c.username, c.password)

	res, err := c.httpClient.Do(req)

	if err != nil {
		return fmt.Errorf("request %s: %w", c.baseURL+path, err)
	}

	defer res.Body.Close()

	slog.Debug("GET "+path, "status", res.Status)

	if res.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: res.StatusCode}
		// The error body is best effort; the status code alone is enough.
		_ = json.NewDecoder(res.Body).Decode(statusErr)
		return statusErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

// Cluster fetches the named cluster.
func (c *Client) Cluster(ctx context.Context, name string) (*Cluster, error) {
	cluster := &Cluster{}

	if err := c.get(ctx, "/clusters/"+url.PathEscape(name), cluster); err != nil {
		return nil, fmt.Errorf("cluster %q: %w", name, err)
	}

	cluster.client = c

	return cluster, nil
}

// Service fetches the named service within the cluster.
func (cl *Cluster) Service(ctx context.Context, name string) (*Service, error) {
	service := &Service{}
	path := "/clusters/" + url.PathEscape(cl.Name) + "/services/" + url.PathEscape(name)

	if err := cl.client.get(ctx, path, service); err != nil {
		return nil, fmt.Errorf("service %q in cluster %q: %w", name, cl.Name, err)
	}

	return service, nil
}
