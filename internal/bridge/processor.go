// Package bridge translates one account's batch of platform events into
// Iterable API calls, keeping user identity continuous across anonymous and
// known sessions.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ignite/iterable-bridge/internal/iterable"
	"github.com/ignite/iterable-bridge/internal/pkg/logger"
	"github.com/ignite/iterable-bridge/internal/platform"
)

// API is the slice of the Iterable client the processor drives.
// *iterable.Client satisfies it; tests substitute a recording fake.
type API interface {
	Track(ctx context.Context, req *iterable.TrackRequest) error
	TrackPushOpen(ctx context.Context, req *iterable.TrackPushOpenRequest) error
	TrackPurchase(ctx context.Context, req *iterable.TrackPurchaseRequest) error
	UpdateUser(ctx context.Context, req *iterable.UpdateUserRequest) error
	UpdateEmail(ctx context.Context, req *iterable.UpdateEmailRequest) error
	RegisterDeviceToken(ctx context.Context, req *iterable.RegisterDeviceTokenRequest) error
	UpdateSubscriptions(ctx context.Context, req *iterable.UpdateSubscriptionsRequest) error
	ListSubscribe(ctx context.Context, req *iterable.SubscribeRequest) (*iterable.ListResponse, error)
	ListUnsubscribe(ctx context.Context, req *iterable.UnsubscribeRequest) (*iterable.ListResponse, error)
}

// Processor runs batches against the vendor. It is stateless apart from the
// lazily-built per-account client handles, which are constructed once and
// reused across batches for the same account.
type Processor struct {
	config iterable.Config

	mu        sync.Mutex
	clients   map[string]API // keyed by account API key
	newClient func(apiKey string) API
}

// NewProcessor creates a processor whose vendor clients share the given
// connection settings.
func NewProcessor(config iterable.Config) *Processor {
	p := &Processor{
		config:  config,
		clients: make(map[string]API),
	}
	p.newClient = func(apiKey string) API {
		return iterable.NewClient(apiKey, p.config)
	}
	return p
}

// SetClientFactory replaces the vendor-client constructor (useful for testing).
func (p *Processor) SetClientFactory(factory func(apiKey string) API) {
	p.mu.Lock()
	p.newClient = factory
	p.clients = make(map[string]API)
	p.mu.Unlock()
}

// clientFor returns the account's client, building it on first use.
func (p *Processor) clientFor(account platform.Account) (API, error) {
	apiKey := account.Setting(platform.SettingAPIKey)
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.clients[apiKey]; ok {
		return client, nil
	}
	client := p.newClient(apiKey)
	p.clients[apiKey] = client
	return client, nil
}

// ProcessEvents runs one event batch synchronously: sort by timestamp,
// guarantee an email key, replay identity transitions, push the aggregate
// user update, then dispatch each event. The first failing mandatory call
// aborts the batch; the platform owns retry policy.
func (p *Processor) ProcessEvents(ctx context.Context, batch *platform.EventBatch) error {
	api, err := p.clientFor(batch.Account)
	if err != nil {
		return err
	}

	sortEventsByTimestamp(batch.Events)

	if err := EnsureEmail(batch); err != nil {
		return err
	}

	if err := p.replayTransitions(ctx, api, batch); err != nil {
		return err
	}

	if err := p.updateUser(ctx, api, batch); err != nil {
		return err
	}

	mctx := batch.Context()
	for i := range batch.Events {
		if err := p.dispatchEvent(ctx, api, batch.Events[i], mctx); err != nil {
			return err
		}
	}

	logger.Info("event batch processed", "batch_id", batch.ID, "events", len(batch.Events))
	return nil
}

// sortEventsByTimestamp orders events chronologically. The sort is stable so
// simultaneous events keep their platform-supplied relative order.
func sortEventsByTimestamp(events []platform.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimestampMS < events[j].TimestampMS
	})
}

// replayTransitions issues the batch's email-update operations in order:
// placeholder-to-email first, then old-to-new. The placeholder is only
// derived when a transition actually needs it, so batches keyed by a real
// email from the start never fail on a missing device identifier.
func (p *Processor) replayTransitions(ctx context.Context, api API, batch *platform.EventBatch) error {
	var placeholder string
	if HasPlaceholderTransitions(batch.Events) {
		var err error
		placeholder, err = PlaceholderEmail(batch.Context())
		if err != nil {
			return err
		}
	}
	for _, req := range DetectEmailTransitions(batch.Events, placeholder) {
		if err := api.UpdateEmail(ctx, req); err != nil {
			return fmt.Errorf("update email: %w", err)
		}
		logger.Debug("email transition replayed",
			"current_email", req.CurrentEmail, "new_email", req.NewEmail)
	}
	return nil
}

// updateUser pushes the batch's aggregate attribute state once. Skipped as a
// no-op when neither an email nor a customer id resolves.
func (p *Processor) updateUser(ctx context.Context, api API, batch *platform.EventBatch) error {
	email := ResolveEmail(batch.UserIdentities)
	userID := ResolveCustomerID(batch.UserIdentities)
	if email == "" && userID == "" {
		return nil
	}
	req := &iterable.UpdateUserRequest{
		Email:      email,
		UserID:     userID,
		DataFields: CoerceAttributes(batch.UserAttributes),
	}
	if err := api.UpdateUser(ctx, req); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// dispatchEvent routes one event through its kind's mapper and issues the
// resulting vendor call, if any.
func (p *Processor) dispatchEvent(ctx context.Context, api API, ev platform.Event, mctx platform.Context) error {
	switch ev.Kind {
	case platform.EventCustom:
		if IsSubscriptionEvent(ev.Name) {
			if err := api.UpdateSubscriptions(ctx, MapUpdateSubscriptions(ev, mctx)); err != nil {
				return fmt.Errorf("update subscriptions: %w", err)
			}
			return nil
		}
		if err := api.Track(ctx, MapCustomEvent(ev, mctx)); err != nil {
			return fmt.Errorf("track event %q: %w", ev.Name, err)
		}
		return nil

	case platform.EventProductAction:
		req, ok := MapPurchase(ev, mctx)
		if !ok {
			return nil
		}
		if err := api.TrackPurchase(ctx, req); err != nil {
			return fmt.Errorf("track purchase: %w", err)
		}
		return nil

	case platform.EventPushSubscription:
		req, ok, err := MapPushSubscription(ev, mctx)
		if err != nil || !ok {
			return err
		}
		if err := api.RegisterDeviceToken(ctx, req); err != nil {
			return fmt.Errorf("register device token: %w", err)
		}
		return nil

	case platform.EventPushReceipt, platform.EventPushOpen:
		req, ok, err := MapPushOpen(ev, mctx)
		if errors.Is(err, ErrMalformedPayload) {
			// The open cannot be attributed to a campaign; skip it rather
			// than failing the batch.
			logger.Warn("skipping push receipt", "event_id", ev.ID, "error", err)
			return nil
		}
		if err != nil || !ok {
			return err
		}
		if err := api.TrackPushOpen(ctx, req); err != nil {
			return fmt.Errorf("track push open: %w", err)
		}
		return nil

	case platform.EventUserIdentityChange, platform.EventUserAttributeChange:
		// Handled once per batch before dispatch; doing it again here would
		// duplicate vendor calls.
		return nil

	default:
		logger.Debug("skipping unsupported event kind", "kind", ev.Kind)
		return nil
	}
}

// ProcessAudiences runs one audience-membership batch: diff the profiles
// into per-list additions and removals, then issue one subscribe and one
// unsubscribe call per affected list. Per-list failures are reported in the
// results, not raised.
func (p *Processor) ProcessAudiences(ctx context.Context, batch *platform.AudienceBatch) ([]ListResult, error) {
	api, err := p.clientFor(batch.Account)
	if err != nil {
		return nil, err
	}

	diff, err := BuildAudienceDiff(batch.Profiles)
	if err != nil {
		return nil, err
	}

	results := DispatchAudienceDiff(ctx, api, diff)
	logger.Info("audience batch processed",
		"batch_id", batch.ID, "profiles", len(batch.Profiles), "list_calls", len(results))
	return results, nil
}
