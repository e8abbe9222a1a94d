package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/TheFastest599/flowtrack/internal/model"
)

// refreshCookieName is the cookie the server issues the refresh token in.
// refreshPath is the scope that cookie is bound to.
const (
	refreshCookieName = "flowtrack_refresh"
	refreshPath       = "/v1/auth"
)

// HTTPClient implements Client using the flowtrackd HTTP/JSON REST API.
// The refresh credential travels as an httpOnly cookie held in an in-memory
// jar; RefreshCredential and SetRefreshCredential let callers carry it across
// processes.
type HTTPClient struct {
	baseURL    string
	refreshURL *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

var (
	_ Client            = (*HTTPClient)(nil)
	_ CredentialCarrier = (*HTTPClient)(nil)
)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	jar, _ := cookiejar.New(nil)
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Jar: jar},
	}
	if u, err := url.Parse(c.baseURL + refreshPath + "/refresh"); err == nil {
		c.refreshURL = u
	}
	return c
}

// RefreshCredential returns the refresh token currently held in the cookie
// jar, "" when none. The session store persists it so a later process can
// renew the session it inherited.
func (c *HTTPClient) RefreshCredential() string {
	if c.refreshURL == nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(c.refreshURL) {
		if ck.Name == refreshCookieName {
			return ck.Value
		}
	}
	return ""
}

// SetRefreshCredential seeds the cookie jar with a previously persisted
// refresh token.
func (c *HTTPClient) SetRefreshCredential(token string) {
	if token == "" || c.refreshURL == nil {
		return
	}
	c.httpClient.Jar.SetCookies(c.refreshURL, []*http.Cookie{{
		Name:  refreshCookieName,
		Value: token,
		Path:  refreshPath,
	}})
}

// SetToken replaces the bearer token attached to subsequent requests.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Auth ---

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var sess Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", body, &sess); err != nil {
		if apiStatus(err) == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	return &sess, nil
}

func (c *HTTPClient) Register(ctx context.Context, req *RegisterRequest) (*Session, error) {
	var sess Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/register", req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (c *HTTPClient) Refresh(ctx context.Context) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/refresh", nil, &resp); err != nil {
		if code := apiStatus(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
}

// --- Tasks ---

func (c *HTTPClient) ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int, error) {
	q := url.Values{}
	if len(filter.Status) > 0 {
		parts := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			parts[i] = s.String()
		}
		q.Set("status", strings.Join(parts, ","))
	}
	if filter.ProjectID != "" {
		q.Set("project_id", filter.ProjectID)
	}
	if filter.Assignee != "" {
		q.Set("assignee", filter.Assignee)
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", filter.Offset))
	}

	path := "/v1/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Tasks []*model.Task `json:"tasks"`
		Total int           `json:"total"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, 0, err
	}
	return resp.Tasks, resp.Total, nil
}

func (c *HTTPClient) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	if err := c.doJSON(ctx, http.MethodGet, "/v1/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *HTTPClient) MoveTask(ctx context.Context, id string, status model.TaskStatus) (*model.Task, error) {
	body := map[string]string{"status": status.String()}
	var task model.Task
	if err := c.doJSON(ctx, http.MethodPost, "/v1/tasks/"+url.PathEscape(id)+"/move", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// --- Notifications ---

func (c *HTTPClient) ListNotifications(ctx context.Context, limit int) ([]*model.Notification, error) {
	path := "/v1/notifications"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp struct {
		Notifications []*model.Notification `json:"notifications"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// apiStatus extracts the HTTP status from an *APIError, or 0.
func apiStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for 204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content — success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
