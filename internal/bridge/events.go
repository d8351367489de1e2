package bridge

import (
	"strconv"
	"strings"

	"github.com/ignite/iterable-bridge/internal/iterable"
	"github.com/ignite/iterable-bridge/internal/platform"
)

// UpdateSubscriptionsEventName is the reserved custom-event name that routes
// to the update-subscriptions endpoint instead of the generic track path.
// Matching is case-insensitive.
const UpdateSubscriptionsEventName = "updateSubscriptions"

// Attribute keys recognized on an update-subscriptions event.
const (
	attrEmailListIDs               = "emailListIds"
	attrUnsubscribedChannelIDs     = "unsubscribedChannelIds"
	attrUnsubscribedMessageTypeIDs = "unsubscribedMessageTypeIds"
	attrCampaignID                 = "campaignId"
	attrTemplateID                 = "templateId"
)

// IsSubscriptionEvent reports whether a custom event name is the reserved
// update-subscriptions trigger.
func IsSubscriptionEvent(name string) bool {
	return strings.EqualFold(name, UpdateSubscriptionsEventName)
}

// MapCustomEvent builds a track request from a generic custom event. Event
// attributes are type-coerced so the vendor can aggregate on them.
func MapCustomEvent(ev platform.Event, ctx platform.Context) *iterable.TrackRequest {
	return &iterable.TrackRequest{
		EventName:  ev.Name,
		CreatedAt:  ev.TimestampMS / 1000,
		Email:      ResolveEmail(ctx.UserIdentities),
		UserID:     ResolveCustomerID(ctx.UserIdentities),
		DataFields: CoerceAttributes(ev.Attributes),
	}
}

// MapUpdateSubscriptions builds an update-subscriptions request from the
// reserved custom event. List attributes are comma-separated integer lists;
// campaign and template ids are optional and silently dropped when
// non-numeric.
func MapUpdateSubscriptions(ev platform.Event, ctx platform.Context) *iterable.UpdateSubscriptionsRequest {
	req := &iterable.UpdateSubscriptionsRequest{
		Email:                      ResolveEmail(ctx.UserIdentities),
		UserID:                     ResolveCustomerID(ctx.UserIdentities),
		EmailListIDs:               parseIDList(ev.Attributes[attrEmailListIDs]),
		UnsubscribedChannelIDs:     parseIDList(ev.Attributes[attrUnsubscribedChannelIDs]),
		UnsubscribedMessageTypeIDs: parseIDList(ev.Attributes[attrUnsubscribedMessageTypeIDs]),
	}
	if id, err := strconv.Atoi(strings.TrimSpace(ev.Attributes[attrCampaignID])); err == nil {
		req.CampaignID = id
	}
	if id, err := strconv.Atoi(strings.TrimSpace(ev.Attributes[attrTemplateID])); err == nil {
		req.TemplateID = id
	}
	return req
}

// parseIDList parses "1, 2,  3" into []int{1, 2, 3}, tolerating surrounding
// whitespace per item. Unparseable items are skipped.
func parseIDList(raw string) []int {
	if raw == "" {
		return nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// MapPurchase builds a purchase request from a product-action event. Only
// the purchase action produces a call; ok is false for everything else.
func MapPurchase(ev platform.Event, ctx platform.Context) (req *iterable.TrackPurchaseRequest, ok bool) {
	if ev.Action != platform.ActionPurchase {
		return nil, false
	}
	items := make([]iterable.CommerceItem, 0, len(ev.Products))
	for _, product := range ev.Products {
		items = append(items, commerceItem(product))
	}
	return &iterable.TrackPurchaseRequest{
		User: &iterable.APIUser{
			Email:      ResolveEmail(ctx.UserIdentities),
			UserID:     ResolveCustomerID(ctx.UserIdentities),
			DataFields: CoerceAttributes(ctx.UserAttributes),
		},
		Total:     ev.TotalAmount,
		CreatedAt: ev.TimestampMS / 1000,
		Items:     items,
	}, true
}

// commerceItem converts a platform product to the vendor's line-item shape.
// The vendor wants both an id and a sku; the platform schema has a single
// product id, so it fills both. The platform allows one category per
// product, which becomes a single-element list.
func commerceItem(product platform.Product) iterable.CommerceItem {
	item := iterable.CommerceItem{
		ID:         product.ID,
		SKU:        product.ID,
		Name:       product.Name,
		Price:      product.Price,
		Quantity:   1,
		DataFields: CoerceAttributes(product.Attributes),
	}
	if product.Quantity != nil {
		item.Quantity = int(*product.Quantity)
	}
	if product.Category != "" {
		item.Categories = []string{product.Category}
	}
	return item
}
