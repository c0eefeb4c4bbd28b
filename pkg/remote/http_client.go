package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	datatable "github.com/goliatone/go-datatable/components/datatable"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 30 * time.Second

// DefaultPaths maps the built-in tables to store API endpoints.
var DefaultPaths = map[string]string{
	"customers":    "/users",
	"inventory":    "/products",
	"transactions": "/orders",
}

// HTTPConfig configures the store API client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient talks to the store REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// APIError describes a failed remote call. Operational errors are caused by
// the request (4xx) and are safe to show to users.
type APIError struct {
	Status      int
	Message     string
	Details     any
	Operational bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote: %d %s", e.Status, e.Message)
}

// NewHTTPClient builds a client for the store API.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// Source returns a data source reading records from path.
func (c *HTTPClient) Source(path string) *HTTPSource {
	return &HTTPSource{client: c, path: path}
}

// Register binds a remote source for every registered table with a path.
// Nil paths use DefaultPaths.
func (c *HTTPClient) Register(reg *datatable.Registry, paths map[string]string) error {
	if paths == nil {
		paths = DefaultPaths
	}
	for _, def := range reg.Definitions() {
		path, ok := paths[def.Code]
		if !ok {
			continue
		}
		if err := reg.RegisterSource(def.Code, c.Source(path)); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ datatable.Authenticator = (*HTTPClient)(nil)
	_ datatable.DataSource    = (*HTTPSource)(nil)
)

// HTTPSource implements datatable.DataSource over a list endpoint.
type HTTPSource struct {
	client *HTTPClient
	path   string
}

// Records fetches the endpoint. Bare arrays and {"data"} or {"records"}
// envelopes are accepted.
func (s *HTTPSource) Records(ctx context.Context) ([]datatable.Record, error) {
	var raw json.RawMessage
	if err := s.client.do(ctx, http.MethodGet, s.path, nil, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var records []datatable.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("remote: decode records: %w", err)
		}
		return records, nil
	}
	var envelope struct {
		Data    []datatable.Record `json:"data"`
		Records []datatable.Record `json:"records"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("remote: decode records: %w", err)
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return envelope.Records, nil
}

// Authenticate implements datatable.Authenticator against /auth/login.
func (c *HTTPClient) Authenticate(ctx context.Context, creds datatable.Credentials) (datatable.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: creds.Email, Password: creds.Password}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return datatable.User{}, fmt.Errorf("%w: %s", datatable.ErrInvalidCredentials, apiErr.Message)
		}
		return datatable.User{}, err
	}
	user := datatable.User{Email: resp.User.Email, Name: resp.User.Name, AccessToken: resp.Token}
	if user.Email == "" {
		user.Email = creds.Email
	}
	return user, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("remote: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{
			Status:  http.StatusServiceUnavailable,
			Message: "Network error. Please check your connection and try again.",
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

// bearer prefers the upstream token of the session in ctx and falls back to
// the static API key.
func (c *HTTPClient) bearer(ctx context.Context) string {
	if session, ok := datatable.SessionFromContext(ctx); ok && session.User.AccessToken != "" {
		return session.User.AccessToken
	}
	return c.apiKey
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Errors  any    `json:"errors"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	message := payload.Message
	if message == "" {
		message = "An error occurred"
	}
	return &APIError{
		Status:      resp.StatusCode,
		Message:     message,
		Details:     payload.Errors,
		Operational: resp.StatusCode >= 400 && resp.StatusCode < 500,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}
