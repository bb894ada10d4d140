// Package apiclient is the REST client used by device-side tooling (the
// softphone console, the seeder's smoke checks) to talk to a running
// dialdesk server.
package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"dialdesk/internal/device"
	"dialdesk/internal/errors"
	"dialdesk/internal/model"
)

// Client holds the bearer credential of one signed-in user and speaks the
// JSON API with it. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu   sync.RWMutex
	tok  string
	user *model.User
}

// New builds a client against baseURL (e.g. http://localhost:8080).
func New(baseURL string) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Login authenticates and pins the returned token and user to the client.
func (c *Client) Login(email, password string) (*model.User, error) {
	payload := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var out struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	if err := c.do(http.MethodPost, "/api/auth/login", payload, &out); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tok = out.Token
	c.user = out.User
	c.mu.Unlock()
	return out.User, nil
}

// Logout revokes every session of the signed-in user and forgets the
// local credential.
func (c *Client) Logout() error {
	err := c.do(http.MethodPost, "/api/auth/logout", nil, nil)

	c.mu.Lock()
	c.tok = ""
	c.user = nil
	c.mu.Unlock()
	return err
}

// Token returns the bearer token from the last successful login. The hub
// feed authenticates its websocket with it.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tok
}

// User returns the signed-in user, or nil before login.
func (c *Client) User() *model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// MintVendorToken asks the server for a short-lived vendor access token.
// An empty identity defaults to the caller's own extension server-side.
func (c *Client) MintVendorToken(identity string) (string, error) {
	payload := struct {
		Identity string `json:"identity"`
	}{Identity: identity}

	var out struct {
		Token     string    `json:"token"`
		Identity  string    `json:"identity"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.do(http.MethodPost, "/api/telephony/token", payload, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

type callStatusPayload struct {
	OnCall       bool                `json:"on_call"`
	CallSID      string              `json:"call_sid,omitempty"`
	CallerNumber string              `json:"caller_number,omitempty"`
	Direction    model.CallDirection `json:"direction,omitempty"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
}

// ReportCallStarted flips the signed-in user's presence to on-call. It is
// the device.CallStatusWriter write behind Ringing→Active.
func (c *Client) ReportCallStarted(call device.Call) error {
	user := c.User()
	if user == nil {
		return fmt.Errorf("report call started: not logged in")
	}
	started := call.StartedAt
	payload := callStatusPayload{
		OnCall:       true,
		CallSID:      call.SID,
		CallerNumber: call.From,
		Direction:    call.Direction,
		StartedAt:    &started,
	}
	return c.do(http.MethodPut, fmt.Sprintf("/api/users/%d/call-status", user.ID), payload, nil)
}

// ReportCallEnded clears the signed-in user's presence.
func (c *Client) ReportCallEnded() error {
	user := c.User()
	if user == nil {
		return fmt.Errorf("report call ended: not logged in")
	}
	payload := callStatusPayload{OnCall: false}
	return c.do(http.MethodPut, fmt.Sprintf("/api/users/%d/call-status", user.ID), payload, nil)
}

// do runs one JSON round trip. Non-2xx responses are turned into errors
// carrying the server's error envelope when one is present.
func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", method, path, err)
		}
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(resp.Body)
		var envelope errors.ErrorResponse
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, envelope.Error, envelope.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}
