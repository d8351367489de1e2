// Package platform holds the inbound batch model supplied by the analytics
// platform: events, user and device identities, account settings, and audience
// membership changes. Everything here is batch-scoped; nothing survives the
// request that carried it.
package platform

import (
	"strconv"

	"github.com/google/uuid"
)

// IdentityKind classifies a user identity value.
type IdentityKind string

const (
	IdentityEmail      IdentityKind = "email"
	IdentityCustomerID IdentityKind = "customer_id"
	IdentityOther      IdentityKind = "other"
)

// UserIdentity is a single identity attached to a batch, event, or profile.
// Identities are immutable snapshots; order is as supplied by the platform.
type UserIdentity struct {
	Kind  IdentityKind `json:"kind"`
	Value string       `json:"value"`
}

// DeviceIdentityKind classifies a device-level identifier.
type DeviceIdentityKind string

const (
	DeviceIOSVendorID         DeviceIdentityKind = "ios_vendor_id"
	DeviceIOSAdvertisingID    DeviceIdentityKind = "ios_advertising_id"
	DeviceGoogleAdvertisingID DeviceIdentityKind = "google_advertising_id"
	DeviceAndroidID           DeviceIdentityKind = "android_id"
)

// DeviceIdentity is an identifier belonging to the device, not the user.
type DeviceIdentity struct {
	Kind  DeviceIdentityKind `json:"kind"`
	Value string             `json:"value"`
}

// EnvironmentType is the OS family the batch originated from.
type EnvironmentType string

const (
	EnvIOS     EnvironmentType = "ios"
	EnvTVOS    EnvironmentType = "tvos"
	EnvAndroid EnvironmentType = "android"
	EnvUnknown EnvironmentType = "unknown"
)

// RuntimeEnvironment describes the device runtime the batch came from.
type RuntimeEnvironment struct {
	Type       EnvironmentType  `json:"type"`
	Sandboxed  bool             `json:"sandboxed,omitempty"`
	Identities []DeviceIdentity `json:"identities,omitempty"`
}

// DeviceIdentity returns the first non-blank identity of the given kind,
// or "" if none is present.
func (r *RuntimeEnvironment) DeviceIdentity(kind DeviceIdentityKind) string {
	if r == nil {
		return ""
	}
	for _, id := range r.Identities {
		if id.Kind == kind && id.Value != "" {
			return id.Value
		}
	}
	return ""
}

// EventKind tags the variant of an Event.
type EventKind string

const (
	EventCustom              EventKind = "custom_event"
	EventProductAction       EventKind = "product_action"
	EventPushSubscription    EventKind = "push_subscription"
	EventPushReceipt         EventKind = "push_message_receipt"
	EventPushOpen            EventKind = "push_message_open"
	EventUserIdentityChange  EventKind = "user_identity_change"
	EventUserAttributeChange EventKind = "user_attribute_change"
)

// Product action verbs. Only purchase triggers a vendor call.
const (
	ActionPurchase    = "purchase"
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Product is one item attached to a product-action event. Quantity is a
// pointer so "absent" can be told apart from zero.
type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Category   string            `json:"category,omitempty"`
	Price      float64           `json:"price,omitempty"`
	Quantity   *float64          `json:"quantity,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Event is a tagged union over EventKind. Only the fields belonging to the
// tagged kind are populated; the rest stay at their zero values.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Kind        EventKind `json:"kind"`
	TimestampMS int64     `json:"timestamp_ms"`

	// custom_event
	Name       string            `json:"name,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`

	// product_action
	Action      string    `json:"action,omitempty"`
	Products    []Product `json:"products,omitempty"`
	TotalAmount float64   `json:"total_amount,omitempty"`

	// push_subscription
	Token string `json:"token,omitempty"`

	// push_message_receipt / push_message_open: the raw notification payload
	Payload string `json:"payload,omitempty"`

	// user_identity_change
	Added   []UserIdentity `json:"added,omitempty"`
	Removed []UserIdentity `json:"removed,omitempty"`
}

// Account setting keys recognized by the bridge.
const (
	SettingAPIKey          = "apiKey"
	SettingGCMName         = "gcmIntegrationName"
	SettingAPNSName        = "apnsProdIntegrationName"
	SettingAPNSSandboxName = "apnsSandboxIntegrationName"
	SettingListID          = "listId"
)

// Account carries the per-account integration settings supplied by the
// platform alongside each batch.
type Account struct {
	ID       string            `json:"id,omitempty"`
	Settings map[string]string `json:"settings"`
}

// Setting returns the named setting or "".
func (a Account) Setting(key string) string {
	return a.Settings[key]
}

// Context is the slice of batch state every event mapper needs: who the user
// is, what we know about them, and where the events came from.
type Context struct {
	Account                Account
	UserIdentities         []UserIdentity
	UserAttributes         map[string]string
	RuntimeEnvironment     *RuntimeEnvironment
	DeviceApplicationStamp string
}

// EventBatch is one account's ordered set of events plus the user context
// they share. It is the unit of work for event processing.
type EventBatch struct {
	ID                     uuid.UUID           `json:"id"`
	Account                Account             `json:"account"`
	UserIdentities         []UserIdentity      `json:"user_identities,omitempty"`
	UserAttributes         map[string]string   `json:"user_attributes,omitempty"`
	RuntimeEnvironment     *RuntimeEnvironment `json:"runtime_environment,omitempty"`
	DeviceApplicationStamp string              `json:"device_application_stamp,omitempty"`
	Events                 []Event             `json:"events,omitempty"`
}

// Context builds the shared mapping context for the batch's events.
func (b *EventBatch) Context() Context {
	return Context{
		Account:                b.Account,
		UserIdentities:         b.UserIdentities,
		UserAttributes:         b.UserAttributes,
		RuntimeEnvironment:     b.RuntimeEnvironment,
		DeviceApplicationStamp: b.DeviceApplicationStamp,
	}
}

// Audience is a segment membership with its vendor subscription settings.
// The target list id lives in the settings map under SettingListID.
type Audience struct {
	Name     string            `json:"name,omitempty"`
	Settings map[string]string `json:"settings"`
}

// ListID resolves the configured vendor list id for this audience.
func (a Audience) ListID() (int, error) {
	return strconv.Atoi(a.Settings[SettingListID])
}

// UserProfile is one user's identities, attributes, and audience membership
// deltas inside an audience batch.
type UserProfile struct {
	Identities       []UserIdentity    `json:"identities,omitempty"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	AddedAudiences   []Audience        `json:"added_audiences,omitempty"`
	RemovedAudiences []Audience        `json:"removed_audiences,omitempty"`
}

// AudienceBatch is one account's set of audience membership changes.
type AudienceBatch struct {
	ID       uuid.UUID     `json:"id"`
	Account  Account       `json:"account"`
	Profiles []UserProfile `json:"profiles,omitempty"`
}
