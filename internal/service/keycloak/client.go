// Package keycloak backs up and restores Keycloak realm data through the
// admin REST API.
package keycloak

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIError represents an error response from the Keycloak admin API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Keycloak API error (%d): %s -- %s", e.StatusCode, e.Message, string(e.Body))
}

// AuthConfig carries the client-credentials settings for the admin API.
// Values come from the service configuration's "auth" block; KEYCLOAK_-
// prefixed environment variables override individual fields.
type AuthConfig struct {
	AuthURL      string `json:"auth_url"`
	Realm        string `json:"realm"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	VerifySSL    *bool  `json:"verify_ssl"`
}

func (a AuthConfig) verifySSL() bool {
	return a.VerifySSL == nil || *a.VerifySSL
}

// AuthFromConfig decodes and validates the auth block, applying
// environment overrides. auth_url and client_secret are required.
func AuthFromConfig(cfg map[string]any) (AuthConfig, error) {
	if len(cfg) == 0 && os.Getenv("KEYCLOAK_AUTH_URL") == "" {
		return AuthConfig{}, errors.New("keycloak configuration is missing")
	}

	var auth AuthConfig
	if raw, ok := cfg["auth"]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("encode keycloak auth config: %w", err)
		}
		if err := json.Unmarshal(data, &auth); err != nil {
			return AuthConfig{}, fmt.Errorf("invalid keycloak configuration: %w", err)
		}
	}

	if v := os.Getenv("KEYCLOAK_AUTH_URL"); v != "" {
		auth.AuthURL = v
	}
	if v := os.Getenv("KEYCLOAK_REALM"); v != "" {
		auth.Realm = v
	}
	if v := os.Getenv("KEYCLOAK_CLIENT_ID"); v != "" {
		auth.ClientID = v
	}
	if v := os.Getenv("KEYCLOAK_CLIENT_SECRET"); v != "" {
		auth.ClientSecret = v
	}
	if v := os.Getenv("KEYCLOAK_VERIFY_SSL"); v != "" {
		verify := v != "false" && v != "0"
		auth.VerifySSL = &verify
	}

	if auth.Realm == "" {
		auth.Realm = "master"
	}
	if auth.ClientID == "" {
		auth.ClientID = "admin-cli"
	}
	if auth.AuthURL == "" {
		return AuthConfig{}, errors.New("invalid keycloak configuration: auth_url is required")
	}
	if _, err := url.ParseRequestURI(auth.AuthURL); err != nil {
		return AuthConfig{}, fmt.Errorf("invalid keycloak auth_url: %w", err)
	}
	if auth.ClientSecret == "" {
		return AuthConfig{}, errors.New("invalid keycloak configuration: client_secret is required")
	}
	return auth, nil
}

// Client talks to the Keycloak admin API. It authenticates with the
// client_credentials grant and caches the access token, revalidating it
// through the introspection endpoint before reuse.
type Client struct {
	auth       AuthConfig
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient constructs a Client. KEYCLOAK_CLIENT_TIMEOUT_SECONDS overrides
// the default 10s HTTP timeout.
func NewClient(auth AuthConfig) *Client {
	timeout := 10 * time.Second
	if s := os.Getenv("KEYCLOAK_CLIENT_TIMEOUT_SECONDS"); s != "" {
		if seconds, err := strconv.Atoi(s); err == nil && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
	}

	transport := http.DefaultTransport
	if !auth.verifySSL() {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		auth: auth,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (c *Client) tokenURL(suffix string) string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token%s",
		strings.TrimRight(c.auth.AuthURL, "/"), c.auth.Realm, suffix)
}

// authenticate ensures a valid cached token, fetching a new one when the
// cache is empty or introspection reports it inactive.
func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		valid, err := c.introspect(ctx, c.token)
		if err == nil && valid {
			return c.token, nil
		}
		c.token = ""
	}

	form := url.Values{
		"client_id":     {c.auth.ClientID},
		"client_secret": {c.auth.ClientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(""), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate with Keycloak: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: body}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("token response contained no access_token")
	}
	c.token = payload.AccessToken
	return c.token, nil
}

func (c *Client) introspect(ctx context.Context, token string) (bool, error) {
	form := url.Values{
		"client_id":     {c.auth.ClientID},
		"client_secret": {c.auth.ClientSecret},
		"token":         {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL("/introspect"), strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("token introspection failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if resp.StatusCode >= 400 {
		return false, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: body}
	}

	var payload struct {
		Active bool `json:"active"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, err
	}
	return payload.Active, nil
}

// Get issues an authenticated GET. The endpoint's {realm} placeholder is
// substituted with the configured realm.
func (c *Client) Get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) error {
	_, err := c.do(ctx, http.MethodPost, endpoint, body)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	fullURL := strings.TrimRight(c.auth.AuthURL, "/") + strings.ReplaceAll(endpoint, "{realm}", c.auth.Realm)
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request [%s %s]: %w", method, fullURL, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed [%s %s]: %w", method, fullURL, err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf(
			"%s request to %s failed with 403 Forbidden: the current client may not have sufficient permissions over realm %q, check the service account roles: %w",
			method, endpoint, c.auth.Realm,
			&APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: respData})
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: respData}
	}
	return respData, nil
}
