// Package api is a typed client for the ConnectSphere REST API. Every
// response is decoded into a wire struct, validated, and converted into the
// Identity, Conversation and Message contracts before it leaves the package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the hosted ConnectSphere backend.
const DefaultBaseURL = "https://connectsphere-backend-cssq.onrender.com/api"

// HTTPClient interface for testing
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the REST API on behalf of one session.
type Client struct {
	BaseURL    string
	HTTPClient HTTPClient
	// Token returns the bearer token to attach, or "" for anonymous calls.
	Token     func() string
	UserAgent string
}

// NewClient returns a client for baseURL. A nil httpClient gets a plain
// http.Client with a 10 second timeout.
func NewClient(baseURL string, httpClient HTTPClient, token func() string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: httpClient,
		Token:      token,
		UserAgent:  "connectsphere-cli",
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Token != nil {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: serverErrorMessage(resp, body)}
	}
	return body, nil
}

func (c *Client) call(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

// Credential is what the login endpoint accepts.
type Credential struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate rejects a credential the server would refuse anyway.
func (c Credential) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid credential: %w", err)
	}
	return nil
}

// Login exchanges a credential for a token and the caller's identity.
func (c *Client) Login(ctx context.Context, cred Credential) (string, *Identity, error) {
	body, err := c.call(ctx, http.MethodPost, "/auth/login", cred)
	if err != nil {
		return "", nil, err
	}
	w, err := decode[wireLogin](body)
	if err != nil {
		return "", nil, err
	}
	id := w.User.identity()
	return w.Token, &id, nil
}

// Register creates an account. The server does not log the new user in.
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	in := map[string]string{"name": name, "email": email, "password": password}
	body, err := c.call(ctx, http.MethodPost, "/auth/register", in)
	if err != nil {
		return "", err
	}
	var n wireNotice
	_ = json.Unmarshal(body, &n)
	return n.Message, nil
}

// Me resolves the current token into an identity.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	return c.identity(ctx, "/auth/me")
}

// ListUsers returns every known user, the caller included.
func (c *Client) ListUsers(ctx context.Context) ([]Identity, error) {
	return c.identities(ctx, "/users")
}

// GetUser returns the profile of id.
func (c *Client) GetUser(ctx context.Context, id string) (*Identity, error) {
	return c.identity(ctx, "/users/"+url.PathEscape(id))
}

// SearchUsers runs the server-side user search.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]Identity, error) {
	return c.identities(ctx, "/user/search?q="+url.QueryEscape(query))
}

// Follow starts following id and returns the server's confirmation text.
func (c *Client) Follow(ctx context.Context, id string) (string, error) {
	return c.notice(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/follow")
}

// Unfollow stops following id.
func (c *Client) Unfollow(ctx context.Context, id string) (string, error) {
	return c.notice(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/unfollow")
}

func (c *Client) identity(ctx context.Context, path string) (*Identity, error) {
	body, err := c.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	w, err := decode[wireIdentity](body)
	if err != nil {
		return nil, err
	}
	id := w.identity()
	return &id, nil
}

func (c *Client) identities(ctx context.Context, path string) ([]Identity, error) {
	body, err := c.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	ws, err := decodeList[wireIdentity](body)
	if err != nil {
		return nil, err
	}
	out := make([]Identity, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.identity())
	}
	return out, nil
}

func (c *Client) notice(ctx context.Context, method, path string) (string, error) {
	body, err := c.call(ctx, method, path, nil)
	if err != nil {
		return "", err
	}
	var n wireNotice
	_ = json.Unmarshal(body, &n)
	return n.Message, nil
}
