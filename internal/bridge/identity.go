package bridge

import (
	"github.com/ignite/iterable-bridge/internal/platform"
)

// PlaceholderDomain is appended to a derived identifier to build a synthetic
// email address. Placeholder addresses key vendor user records for users who
// have not yet supplied a real email; they are never used as contact
// addresses.
const PlaceholderDomain = "@placeholder.email"

// ResolveEmail returns the first email identity value, or "".
// Order is as supplied by the platform; first match wins.
func ResolveEmail(identities []platform.UserIdentity) string {
	for _, id := range identities {
		if id.Kind == platform.IdentityEmail {
			return id.Value
		}
	}
	return ""
}

// ResolveCustomerID returns the first customer-id identity value, or "".
func ResolveCustomerID(identities []platform.UserIdentity) string {
	for _, id := range identities {
		if id.Kind == platform.IdentityCustomerID {
			return id.Value
		}
	}
	return ""
}

// PlaceholderEmail derives a deterministic synthetic address for a batch
// with no real email. Candidates, most stable first:
//
//  1. a platform device identifier — iOS/tvOS vendor id falling back to
//     advertising id, Android advertising id falling back to Android id;
//  2. the customer id identity;
//  3. the device application stamp.
//
// The ordering decides cross-session identity stability, so it is part of
// the contract. Returns ErrNoIdentifier when every tier comes up blank.
func PlaceholderEmail(ctx platform.Context) (string, error) {
	id := deviceIdentifier(ctx.RuntimeEnvironment)
	if id == "" {
		id = ResolveCustomerID(ctx.UserIdentities)
	}
	if id == "" {
		id = ctx.DeviceApplicationStamp
	}
	if id == "" {
		return "", ErrNoIdentifier
	}
	return id + PlaceholderDomain, nil
}

// deviceIdentifier picks the most stable device id the runtime environment
// offers, or "" for unknown/absent environments.
func deviceIdentifier(env *platform.RuntimeEnvironment) string {
	if env == nil {
		return ""
	}
	switch env.Type {
	case platform.EnvIOS, platform.EnvTVOS:
		if id := env.DeviceIdentity(platform.DeviceIOSVendorID); id != "" {
			return id
		}
		return env.DeviceIdentity(platform.DeviceIOSAdvertisingID)
	case platform.EnvAndroid:
		if id := env.DeviceIdentity(platform.DeviceGoogleAdvertisingID); id != "" {
			return id
		}
		return env.DeviceIdentity(platform.DeviceAndroidID)
	}
	return ""
}

// EnsureEmail appends a placeholder email identity to the batch when no real
// email is present, so every downstream vendor call has a user key.
func EnsureEmail(batch *platform.EventBatch) error {
	if ResolveEmail(batch.UserIdentities) != "" {
		return nil
	}
	placeholder, err := PlaceholderEmail(batch.Context())
	if err != nil {
		return err
	}
	batch.UserIdentities = append(batch.UserIdentities, platform.UserIdentity{
		Kind:  platform.IdentityEmail,
		Value: placeholder,
	})
	return nil
}
