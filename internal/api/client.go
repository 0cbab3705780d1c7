package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"blueprint/internal/blobstore"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "BLUEPRINT_HTTP_TIMEOUT"
)

// Client is a simple HTTP client for the blueprint API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListAssets(ctx context.Context) ([]AssetResponse, error) {
	var resp []AssetResponse
	err := c.do(ctx, http.MethodGet, "/v1/assets", nil, nil, &resp)
	return resp, err
}

// PutAsset uploads raw asset bytes under id.
func (c *Client) PutAsset(ctx context.Context, id string, data io.Reader) (AssetResponse, error) {
	var resp AssetResponse
	if err := blobstore.ValidateID(id); err != nil {
		return resp, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+assetPath(id), data)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

// GetAsset streams the raw bytes of id to w.
func (c *Client) GetAsset(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.download(ctx, assetPath(id), w)
}

func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, assetPath(id), nil, nil, nil)
}

func (c *Client) CreateResolution(ctx context.Context, ref string) (ResolutionResponse, error) {
	var resp ResolutionResponse
	err := c.do(ctx, http.MethodPost, "/v1/resolutions", nil, ResolutionRequest{Ref: ref}, &resp)
	return resp, err
}

// GetResolution returns the session state. With wait set, the server holds
// the request until the current load settles.
func (c *Client) GetResolution(ctx context.Context, id string, wait bool) (ResolutionResponse, error) {
	var resp ResolutionResponse
	var query url.Values
	if wait {
		query = url.Values{"wait": []string{"true"}}
	}
	err := c.do(ctx, http.MethodGet, "/v1/resolutions/"+url.PathEscape(id), query, nil, &resp)
	return resp, err
}

func (c *Client) UpdateResolution(ctx context.Context, id, ref string) (ResolutionResponse, error) {
	var resp ResolutionResponse
	err := c.do(ctx, http.MethodPut, "/v1/resolutions/"+url.PathEscape(id), nil, ResolutionRequest{Ref: ref}, &resp)
	return resp, err
}

func (c *Client) RetryResolution(ctx context.Context, id string) (ResolutionResponse, error) {
	var resp ResolutionResponse
	err := c.do(ctx, http.MethodPost, "/v1/resolutions/"+url.PathEscape(id)+"/retry", nil, nil, &resp)
	return resp, err
}

func (c *Client) CloseResolution(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/resolutions/"+url.PathEscape(id), nil, nil, nil)
}

// GetObject streams the bytes behind a live object URL key to w.
func (c *Client) GetObject(ctx context.Context, key string, w io.Writer) (int64, error) {
	return c.download(ctx, "/v1/objects/"+url.PathEscape(key), w)
}

func (c *Client) CreateProject(ctx context.Context, req ProjectCreateRequest) (ProjectResponse, error) {
	var resp ProjectResponse
	err := c.do(ctx, http.MethodPost, "/v1/projects", nil, req, &resp)
	return resp, err
}

// ListProjects lists projects. Pending deletions are hidden unless includePending is set.
func (c *Client) ListProjects(ctx context.Context, limit int, includePending bool) ([]ProjectResponse, error) {
	var resp []ProjectResponse
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if includePending {
		query.Set("include_pending", "true")
	}
	err := c.do(ctx, http.MethodGet, "/v1/projects", query, nil, &resp)
	return resp, err
}

func (c *Client) GetProject(ctx context.Context, id string) (ProjectResponse, error) {
	var resp ProjectResponse
	err := c.do(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// DeleteProject schedules a deferred deletion.
func (c *Client) DeleteProject(ctx context.Context, id string) (DeleteAcceptedResponse, error) {
	var resp DeleteAcceptedResponse
	err := c.do(ctx, http.MethodDelete, "/v1/projects/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) RestoreProject(ctx context.Context, id string) (RestoreResponse, error) {
	var resp RestoreResponse
	err := c.do(ctx, http.MethodPost, "/v1/projects/"+url.PathEscape(id)+"/restore", nil, nil, &resp)
	return resp, err
}

func (c *Client) PendingDeletions(ctx context.Context) ([]PendingDeletion, error) {
	var resp []PendingDeletion
	err := c.do(ctx, http.MethodGet, "/v1/projects/pending", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListNotifications(ctx context.Context) ([]NotificationResponse, error) {
	var resp []NotificationResponse
	err := c.do(ctx, http.MethodGet, "/v1/notifications", nil, nil, &resp)
	return resp, err
}

func (c *Client) Announcement(ctx context.Context) (AnnouncementResponse, error) {
	var resp AnnouncementResponse
	err := c.do(ctx, http.MethodGet, "/v1/notifications/announcement", nil, nil, &resp)
	return resp, err
}

// NotificationAction applies one of dismiss, pause, resume or undo.
func (c *Client) NotificationAction(ctx context.Context, id, action string) (NotificationActionResponse, error) {
	var resp NotificationActionResponse
	err := c.do(ctx, http.MethodPost, "/v1/notifications/"+url.PathEscape(id)+"/"+url.PathEscape(action), nil, nil, &resp)
	return resp, err
}

func (c *Client) download(ctx context.Context, path string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func assetPath(id string) string {
	return "/v1/assets/" + url.PathEscape(id)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
