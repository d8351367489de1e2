package iterable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/iterable-bridge/internal/pkg/httpretry"
)

// Client is the Iterable REST API client for one account's API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a client for the given per-account API key.
func NewClient(apiKey string, config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: config.Timeout(),
		}, config.MaxRetries),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated request and decodes the JSON body
// into out. The API key travels as a query parameter on every call.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint,
		url.Values{"api_key": {c.apiKey}}.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// call posts a request to a single-object endpoint and converts a
// non-success envelope into an *APIError.
func (c *Client) call(ctx context.Context, endpoint string, body any) error {
	var response APIResponse
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &response); err != nil {
		return err
	}
	if !response.Success() {
		return &APIError{
			Endpoint: endpoint,
			Code:     response.Code,
			Message:  response.Message,
			Params:   response.Params,
		}
	}
	return nil
}

// Track sends a custom event.
func (c *Client) Track(ctx context.Context, req *TrackRequest) error {
	return c.call(ctx, "/api/events/track", req)
}

// TrackPushOpen records a push-notification open.
func (c *Client) TrackPushOpen(ctx context.Context, req *TrackPushOpenRequest) error {
	return c.call(ctx, "/api/events/trackPushOpen", req)
}

// TrackPurchase records a purchase with its line items.
func (c *Client) TrackPurchase(ctx context.Context, req *TrackPurchaseRequest) error {
	return c.call(ctx, "/api/commerce/trackPurchase", req)
}

// UpdateUser upserts a user record keyed by email or user id.
func (c *Client) UpdateUser(ctx context.Context, req *UpdateUserRequest) error {
	return c.call(ctx, "/api/users/update", req)
}

// UpdateEmail rekeys an existing user record to a new address.
func (c *Client) UpdateEmail(ctx context.Context, req *UpdateEmailRequest) error {
	return c.call(ctx, "/api/users/updateEmail", req)
}

// RegisterDeviceToken attaches a push token to an email-keyed user record.
func (c *Client) RegisterDeviceToken(ctx context.Context, req *RegisterDeviceTokenRequest) error {
	return c.call(ctx, "/api/users/registerDeviceToken", req)
}

// UpdateSubscriptions replaces a user's subscription preferences.
func (c *Client) UpdateSubscriptions(ctx context.Context, req *UpdateSubscriptionsRequest) error {
	return c.call(ctx, "/api/users/updateSubscriptions", req)
}

// ListSubscribe adds subscribers to a list. The response is returned even on
// vendor rejection so callers can inspect per-subscriber counts.
func (c *Client) ListSubscribe(ctx context.Context, req *SubscribeRequest) (*ListResponse, error) {
	var response ListResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/lists/subscribe", req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListUnsubscribe removes subscribers from a list.
func (c *Client) ListUnsubscribe(ctx context.Context, req *UnsubscribeRequest) (*ListResponse, error) {
	var response ListResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/lists/unsubscribe", req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetLists retrieves all audience lists for the account.
func (c *Client) GetLists(ctx context.Context) ([]List, error) {
	var response GetListsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/lists", nil, &response); err != nil {
		return nil, err
	}
	return response.Lists, nil
}

// HealthCheck performs a simple API reachability check.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := c.GetLists(ctx)
	return err
}
