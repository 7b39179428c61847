// Package slack is a minimal client for users.profile.set.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ajg/form"

	"wifistatus/internal/status"
)

const DefaultAPIURL = "https://slack.com/api"

// ErrAPI wraps every rejected profile update (HTTP status or "ok": false).
var ErrAPI = errors.New("slack api error")

// APIError carries what Slack said about a rejected call.
type APIError struct {
	Method     string
	StatusCode int
	Code       string // Slack "error" field, e.g. "invalid_auth"
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("slack %s: %s (http %d)", e.Method, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("slack %s: http %d", e.Method, e.StatusCode)
}

func (e *APIError) Unwrap() error { return ErrAPI }

type Config struct {
	Token   string
	APIURL  string
	Timeout time.Duration
}

type Client struct {
	token  string
	apiURL string
	http   *http.Client
}

func New(cfg Config) (*Client, error) {
	tok := strings.TrimSpace(cfg.Token)
	if tok == "" {
		return nil, errors.New("slack token is empty")
	}
	u := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if u == "" {
		u = DefaultAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{token: tok, apiURL: u, http: &http.Client{Timeout: timeout}}, nil
}

type profileSetForm struct {
	Token   string `form:"token"`
	Profile string `form:"profile"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SetProfile posts the payload as the user's profile. The absent payload is
// sent as "null", which Slack treats as "no profile fields".
func (c *Client) SetProfile(ctx context.Context, p status.Payload) error {
	const method = "users.profile.set"

	profile, err := p.Canonical()
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	body, err := form.EncodeToString(profileSetForm{Token: c.token, Profile: string(profile)})
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("slack %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("slack %s: read body: %w", method, err)
	}

	var out apiResponse
	decErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Code: out.Error}
	}
	if decErr != nil {
		return fmt.Errorf("slack %s: decode response: %w", method, decErr)
	}
	if !out.OK {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Code: out.Error}
	}
	return nil
}
