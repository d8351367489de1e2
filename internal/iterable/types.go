package iterable

import (
	"fmt"
	"strings"
	"time"
)

// API docs: https://api.iterable.com/api/docs
const (
	DefaultBaseURL = "https://api.iterable.com"

	// CodeSuccess is the vendor-level success code; comparison is
	// case-insensitive per the response contract.
	CodeSuccess = "Success"
)

// Device platforms accepted by the register-device-token endpoint.
const (
	PlatformAPNS        = "APNS"
	PlatformAPNSSandbox = "APNS_SANDBOX"
	PlatformGCM         = "GCM"
)

// Config holds Iterable API connection settings. The API key is per-account
// and supplied with each batch, so it lives on the Client, not here.
type Config struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the configured timeout as a duration.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// APIResponse is the envelope every single-object endpoint returns.
type APIResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"msg"`
	Params  map[string]any `json:"params,omitempty"`
}

// Success reports whether the vendor accepted the request.
func (r *APIResponse) Success() bool {
	return strings.EqualFold(r.Code, CodeSuccess)
}

func (r *APIResponse) String() string {
	var b strings.Builder
	if r.Code != "" {
		b.WriteString(r.Code + ": ")
	}
	b.WriteString(r.Message)
	if len(r.Params) > 0 {
		fmt.Fprintf(&b, " %v", r.Params)
	}
	return b.String()
}

// ListResponse extends the envelope with per-subscriber counts returned by
// the list subscribe/unsubscribe endpoints.
type ListResponse struct {
	APIResponse
	SuccessCount  int      `json:"successCount"`
	FailCount     int      `json:"failCount"`
	InvalidEmails []string `json:"invalidEmails,omitempty"`
}

// TrackRequest is the body for POST /api/events/track. Either Email or
// UserID identifies the user; email takes precedence when both are set.
type TrackRequest struct {
	EventName  string         `json:"eventName"`
	Email      string         `json:"email,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	CreatedAt  int64          `json:"createdAt,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
	CampaignID int            `json:"campaignId,omitempty"`
	TemplateID int            `json:"templateId,omitempty"`
}

// TrackPushOpenRequest is the body for POST /api/events/trackPushOpen.
type TrackPushOpenRequest struct {
	Email      string         `json:"email,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	CampaignID int            `json:"campaignId,omitempty"`
	TemplateID int            `json:"templateId,omitempty"`
	MessageID  string         `json:"messageId,omitempty"`
	CreatedAt  int64          `json:"createdAt,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

// UpdateUserRequest is the body for POST /api/users/update.
type UpdateUserRequest struct {
	Email      string         `json:"email,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

// UpdateEmailRequest rekeys a user record from one address to another.
type UpdateEmailRequest struct {
	CurrentEmail string `json:"currentEmail"`
	NewEmail     string `json:"newEmail"`
}

// Device describes a push-notification endpoint for a user.
type Device struct {
	Token           string         `json:"token"`
	Platform        string         `json:"platform"`
	ApplicationName string         `json:"applicationName,omitempty"`
	DataFields      map[string]any `json:"dataFields,omitempty"`
}

// RegisterDeviceTokenRequest is the body for POST /api/users/registerDeviceToken.
// The endpoint is email-keyed.
type RegisterDeviceTokenRequest struct {
	Email  string  `json:"email"`
	Device *Device `json:"device"`
}

// APIUser is one subscriber in a list-subscribe call.
type APIUser struct {
	Email      string         `json:"email"`
	UserID     string         `json:"userId,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

// SubscribeRequest is the body for POST /api/lists/subscribe.
type SubscribeRequest struct {
	ListID      int       `json:"listId"`
	Subscribers []APIUser `json:"subscribers"`
}

// Unsubscriber is one subscriber in a list-unsubscribe call.
type Unsubscriber struct {
	Email string `json:"email"`
}

// UnsubscribeRequest is the body for POST /api/lists/unsubscribe.
type UnsubscribeRequest struct {
	ListID      int            `json:"listId"`
	Subscribers []Unsubscriber `json:"subscribers"`
}

// CommerceItem is one line item of a purchase. The vendor requires both ID
// and SKU and errors on a missing quantity.
type CommerceItem struct {
	ID          string         `json:"id"`
	SKU         string         `json:"sku,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Categories  []string       `json:"categories,omitempty"`
	Price       float64        `json:"price,omitempty"`
	Quantity    int            `json:"quantity"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	DataFields  map[string]any `json:"dataFields,omitempty"`
}

// TrackPurchaseRequest is the body for POST /api/commerce/trackPurchase.
type TrackPurchaseRequest struct {
	User       *APIUser       `json:"user"`
	Items      []CommerceItem `json:"items,omitempty"`
	CampaignID int            `json:"campaignId,omitempty"`
	TemplateID int            `json:"templateId,omitempty"`
	Total      float64        `json:"total"`
	CreatedAt  int64          `json:"createdAt,omitempty"`
	DataFields map[string]any `json:"dataFields,omitempty"`
}

// UpdateSubscriptionsRequest is the body for POST /api/users/updateSubscriptions.
type UpdateSubscriptionsRequest struct {
	Email                      string `json:"email,omitempty"`
	UserID                     string `json:"userId,omitempty"`
	EmailListIDs               []int  `json:"emailListIds,omitempty"`
	UnsubscribedChannelIDs     []int  `json:"unsubscribedChannelIds,omitempty"`
	UnsubscribedMessageTypeIDs []int  `json:"unsubscribedMessageTypeIds,omitempty"`
	CampaignID                 int    `json:"campaignId,omitempty"`
	TemplateID                 int    `json:"templateId,omitempty"`
}

// List is one audience list as returned by GET /api/lists.
type List struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetListsResponse is the body returned by GET /api/lists.
type GetListsResponse struct {
	Lists []List `json:"lists"`
}
