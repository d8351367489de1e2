package bridge

import (
	"github.com/ignite/iterable-bridge/internal/iterable"
	"github.com/ignite/iterable-bridge/internal/platform"
)

// isPlaceholderTransition reports whether the identity-change event
// establishes a first real email for an anonymous (placeholder-keyed) user:
// a non-blank email added with nothing removed.
func isPlaceholderTransition(ev platform.Event) bool {
	if ev.Kind != platform.EventUserIdentityChange {
		return false
	}
	return len(ev.Added) > 0 && len(ev.Removed) == 0 &&
		ev.Added[0].Kind == platform.IdentityEmail &&
		ev.Added[0].Value != ""
}

// isEmailTransition reports whether the identity-change event replaces one
// real email with another: non-blank values on both sides.
func isEmailTransition(ev platform.Event) bool {
	if ev.Kind != platform.EventUserIdentityChange {
		return false
	}
	return len(ev.Added) > 0 && len(ev.Removed) > 0 &&
		ev.Added[0].Kind == platform.IdentityEmail &&
		ev.Added[0].Value != "" && ev.Removed[0].Value != ""
}

// HasPlaceholderTransitions reports whether any event in the batch needs the
// derived placeholder address to replay.
func HasPlaceholderTransitions(events []platform.Event) bool {
	for _, ev := range events {
		if isPlaceholderTransition(ev) {
			return true
		}
	}
	return false
}

// DetectEmailTransitions classifies the batch's identity-change events into
// an ordered list of email-update operations. All placeholder transitions
// come first: a later old-to-new update may reference the address a
// placeholder transition just established. Events matching neither shape are
// ignored here; the batch-level attribute update still covers them.
func DetectEmailTransitions(events []platform.Event, placeholder string) []*iterable.UpdateEmailRequest {
	var fromPlaceholder, fromOld []*iterable.UpdateEmailRequest
	for _, ev := range events {
		switch {
		case isPlaceholderTransition(ev):
			fromPlaceholder = append(fromPlaceholder, &iterable.UpdateEmailRequest{
				CurrentEmail: placeholder,
				NewEmail:     ev.Added[0].Value,
			})
		case isEmailTransition(ev):
			fromOld = append(fromOld, &iterable.UpdateEmailRequest{
				CurrentEmail: ev.Removed[0].Value,
				NewEmail:     ev.Added[0].Value,
			})
		}
	}
	return append(fromPlaceholder, fromOld...)
}
