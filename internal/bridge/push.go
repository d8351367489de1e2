package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/ignite/iterable-bridge/internal/iterable"
	"github.com/ignite/iterable-bridge/internal/platform"
)

// vendorPayloadKey is the member of a push payload carrying the vendor's
// campaign metadata.
const vendorPayloadKey = "itbl"

// pushMetadata is the vendor sub-object embedded in push payloads.
type pushMetadata struct {
	CampaignID  int    `json:"campaignId"`
	TemplateID  int    `json:"templateId"`
	MessageID   string `json:"messageId"`
	IsGhostPush bool   `json:"isGhostPush"`
}

// MapPushSubscription builds a device-token registration from a push
// subscription event. Unsubscribe actions produce no call (ok false). The
// endpoint is email-keyed only, so a missing email identity is ErrNoEmail
// rather than a customer-id fallback.
func MapPushSubscription(ev platform.Event, ctx platform.Context) (req *iterable.RegisterDeviceTokenRequest, ok bool, err error) {
	if ev.Action == platform.ActionUnsubscribe {
		return nil, false, nil
	}

	device := &iterable.Device{Token: ev.Token}
	env := ctx.RuntimeEnvironment
	switch {
	case env != nil && (env.Type == platform.EnvIOS || env.Type == platform.EnvTVOS):
		if env.Sandboxed {
			device.Platform = iterable.PlatformAPNSSandbox
			device.ApplicationName = ctx.Account.Setting(platform.SettingAPNSSandboxName)
		} else {
			device.Platform = iterable.PlatformAPNS
			device.ApplicationName = ctx.Account.Setting(platform.SettingAPNSName)
		}
	case env != nil && env.Type == platform.EnvAndroid:
		device.Platform = iterable.PlatformGCM
		device.ApplicationName = ctx.Account.Setting(platform.SettingGCMName)
	default:
		envType := platform.EnvUnknown
		if env != nil {
			envType = env.Type
		}
		return nil, false, &UnsupportedEnvironmentError{Type: envType}
	}

	email := ResolveEmail(ctx.UserIdentities)
	if email == "" {
		return nil, false, ErrNoEmail
	}

	return &iterable.RegisterDeviceTokenRequest{Email: email, Device: device}, true, nil
}

// MapPushOpen builds a push-open tracking request from a receipt/open event.
// A payload without the vendor sub-object is a silent skip (ok false, nil
// error); a missing email and customer id is an error.
func MapPushOpen(ev platform.Event, ctx platform.Context) (req *iterable.TrackPushOpenRequest, ok bool, err error) {
	if ev.Payload == "" {
		return nil, false, nil
	}

	email := ResolveEmail(ctx.UserIdentities)
	userID := ResolveCustomerID(ctx.UserIdentities)
	if email == "" && userID == "" {
		return nil, false, fmt.Errorf("push receipt: %w", ErrNoEmail)
	}

	meta, found, err := extractPushMetadata(ev.Payload, ctx.RuntimeEnvironment)
	if err != nil {
		return nil, false, fmt.Errorf("push receipt: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	return &iterable.TrackPushOpenRequest{
		Email:      email,
		UserID:     userID,
		CampaignID: meta.CampaignID,
		TemplateID: meta.TemplateID,
		MessageID:  meta.MessageID,
		CreatedAt:  ev.TimestampMS / 1000,
	}, true, nil
}

// extractPushMetadata finds and decodes the vendor sub-object in a raw push
// payload. APNS payloads nest it as a JSON object; FCM payloads carry it as
// a JSON-encoded string, so on Android it is decoded twice.
func extractPushMetadata(payload string, env *platform.RuntimeEnvironment) (pushMetadata, bool, error) {
	var meta pushMetadata

	var outer map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &outer); err != nil {
		return meta, false, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	raw, found := outer[vendorPayloadKey]
	if !found {
		return meta, false, nil
	}

	if env != nil && env.Type == platform.EnvAndroid {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return meta, false, fmt.Errorf("%w: %s is not a string: %v", ErrMalformedPayload, vendorPayloadKey, err)
		}
		raw = []byte(encoded)
	}

	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, false, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, vendorPayloadKey, err)
	}
	return meta, true, nil
}
