package bridge

import (
	"errors"
	"fmt"

	"github.com/ignite/iterable-bridge/internal/platform"
)

// ErrNoIdentifier means no email, device identifier, customer id, or device
// application stamp was available to key the vendor user record.
var ErrNoIdentifier = errors.New("no identifier available to construct placeholder email")

// ErrNoEmail means an email-keyed vendor call had no email identity to use.
var ErrNoEmail = errors.New("user has no email identity")

// ErrNoAPIKey means the account settings carry no vendor API key.
var ErrNoAPIKey = errors.New("account has no apiKey setting")

// ErrMalformedPayload means a push payload was missing its expected
// structure. Callers treat it as a skip, not a hard failure: the open simply
// cannot be attributed to a campaign.
var ErrMalformedPayload = errors.New("malformed push payload")

// UnsupportedEnvironmentError means an event needed a platform-specific
// mapping but the runtime environment was not recognized.
type UnsupportedEnvironmentError struct {
	Type platform.EnvironmentType
}

func (e *UnsupportedEnvironmentError) Error() string {
	return fmt.Sprintf("unsupported runtime environment %q", e.Type)
}
