// Package sdk provides the client-side library for a papyr-store server.
// It wraps the HTTP services (data, users, util) and manages the
// session token across calls.
package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/papyr-dev/papyr-store/pkg/schema"
)

// APIError is the error envelope returned by the server.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client talks to a remote papyr-store daemon over HTTP.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string // session access token, empty when anonymous
	admin bool
}

// New creates a client for the server at baseURL (e.g. "http://localhost:3030").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken installs a previously obtained access token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current access token, or the empty string.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetAdmin toggles the admin header that bypasses access rules.
func (c *Client) SetAdmin(admin bool) {
	c.mu.Lock()
	c.admin = admin
	c.mu.Unlock()
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("X-Authorization", c.token)
	}
	if c.admin {
		req.Header.Set("X-Admin", "true")
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Register creates a new user account and stores the returned session token.
func (c *Client) Register(identity schema.Record) (schema.Record, error) {
	var user schema.Record
	if err := c.do(http.MethodPost, "/users/register", identity, &user); err != nil {
		return nil, err
	}
	c.adoptToken(user)
	return user, nil
}

// Login authenticates and stores the returned session token.
func (c *Client) Login(identity schema.Record) (schema.Record, error) {
	var user schema.Record
	if err := c.do(http.MethodPost, "/users/login", identity, &user); err != nil {
		return nil, err
	}
	c.adoptToken(user)
	return user, nil
}

// Logout invalidates the current session and clears the stored token.
func (c *Client) Logout() error {
	if err := c.do(http.MethodGet, "/users/logout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me returns the profile of the authenticated user.
func (c *Client) Me() (schema.Record, error) {
	var user schema.Record
	if err := c.do(http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Client) adoptToken(user schema.Record) {
	if token, ok := user["accessToken"].(string); ok {
		c.SetToken(token)
	}
}

// Collections lists the collection names of the data service.
func (c *Client) Collections() ([]string, error) {
	var names []string
	if err := c.do(http.MethodGet, "/data", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// List returns the records of a collection, optionally filtered by query
// parameters (where, sortBy, offset, pageSize, distinct, select, load).
func (c *Client) List(collection string, params url.Values) ([]schema.Record, error) {
	path := "/data/" + url.PathEscape(collection)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var records []schema.Record
	if err := c.do(http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of records in a collection matching params.
func (c *Client) Count(collection string, params url.Values) (int, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("count", "")
	path := "/data/" + url.PathEscape(collection) + "?" + params.Encode()
	var count int
	if err := c.do(http.MethodGet, path, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Get fetches a single record by ID.
func (c *Client) Get(collection, id string) (schema.Record, error) {
	var record schema.Record
	err := c.do(http.MethodGet, entryPath(collection, id), nil, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Create adds a record to a collection and returns it with its assigned ID.
func (c *Client) Create(collection string, body schema.Record) (schema.Record, error) {
	var record schema.Record
	err := c.do(http.MethodPost, "/data/"+url.PathEscape(collection), body, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Replace overwrites a record, keeping only its system properties.
func (c *Client) Replace(collection, id string, body schema.Record) (schema.Record, error) {
	var record schema.Record
	err := c.do(http.MethodPut, entryPath(collection, id), body, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Merge applies a partial update to a record.
func (c *Client) Merge(collection, id string, body schema.Record) (schema.Record, error) {
	var record schema.Record
	err := c.do(http.MethodPatch, entryPath(collection, id), body, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record and returns its deletion stamp.
func (c *Client) Delete(collection, id string) (schema.Record, error) {
	var record schema.Record
	err := c.do(http.MethodDelete, entryPath(collection, id), nil, &record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SetFlag sets a named server feature flag (e.g. "throttle").
func (c *Client) SetFlag(name string, value bool) error {
	return c.do(http.MethodPost, "/util", schema.Record{name: value}, nil)
}

// GetFlag reads a named server feature flag.
func (c *Client) GetFlag(name string) (bool, error) {
	var value bool
	err := c.do(http.MethodGet, "/util/"+url.PathEscape(name), nil, &value)
	return value, err
}

func entryPath(collection, id string) string {
	return "/data/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
}
