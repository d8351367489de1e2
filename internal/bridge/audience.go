package bridge

import (
	"context"
	"fmt"
	"sort"

	"github.com/ignite/iterable-bridge/internal/iterable"
	"github.com/ignite/iterable-bridge/internal/pkg/logger"
	"github.com/ignite/iterable-bridge/internal/platform"
)

// List operations reported in a ListResult.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
)

// ListResult is the outcome of one per-list vendor call. List dispatch is
// best-effort: a failing list never stops its siblings, so outcomes are
// collected here instead of propagated.
type ListResult struct {
	ListID int    `json:"list_id"`
	Op     string `json:"op"`
	Err    error  `json:"-"`
}

// AudienceDiff is the batched form of a set of profile membership changes:
// per target list, who joins and who leaves.
type AudienceDiff struct {
	Additions map[int][]iterable.APIUser
	Removals  map[int][]iterable.Unsubscriber
}

// BuildAudienceDiff groups every profile's added and removed audiences by
// target list id. Profiles without an email identity are skipped entirely:
// there is no key to subscribe them under. A misconfigured audience (no
// numeric list id) fails the whole batch since every profile targeting it
// would be affected.
func BuildAudienceDiff(profiles []platform.UserProfile) (*AudienceDiff, error) {
	diff := &AudienceDiff{
		Additions: make(map[int][]iterable.APIUser),
		Removals:  make(map[int][]iterable.Unsubscriber),
	}
	for _, profile := range profiles {
		email := ResolveEmail(profile.Identities)
		if email == "" {
			continue
		}
		userID := ResolveCustomerID(profile.Identities)

		for _, audience := range profile.AddedAudiences {
			listID, err := audience.ListID()
			if err != nil {
				return nil, fmt.Errorf("audience %q has no valid list id: %w", audience.Name, err)
			}
			diff.Additions[listID] = append(diff.Additions[listID], iterable.APIUser{
				Email:      email,
				UserID:     userID,
				DataFields: CoerceAttributes(profile.Attributes),
			})
		}
		for _, audience := range profile.RemovedAudiences {
			listID, err := audience.ListID()
			if err != nil {
				return nil, fmt.Errorf("audience %q has no valid list id: %w", audience.Name, err)
			}
			diff.Removals[listID] = append(diff.Removals[listID], iterable.Unsubscriber{Email: email})
		}
	}
	return diff, nil
}

// DispatchAudienceDiff issues one subscribe call per list with additions and
// one unsubscribe call per list with removals, in ascending list-id order.
// Errors (transport failures and positive vendor fail counts alike) are
// recorded per list and never abort the remaining lists.
func DispatchAudienceDiff(ctx context.Context, api API, diff *AudienceDiff) []ListResult {
	results := make([]ListResult, 0, len(diff.Additions)+len(diff.Removals))

	for _, listID := range sortedListIDs(diff.Additions) {
		err := checkListCall(api.ListSubscribe(ctx, &iterable.SubscribeRequest{
			ListID:      listID,
			Subscribers: diff.Additions[listID],
		}))
		if err != nil {
			logger.Warn("list subscribe failed", "list_id", listID, "error", err)
		}
		results = append(results, ListResult{ListID: listID, Op: OpSubscribe, Err: err})
	}

	for _, listID := range sortedListIDs(diff.Removals) {
		err := checkListCall(api.ListUnsubscribe(ctx, &iterable.UnsubscribeRequest{
			ListID:      listID,
			Subscribers: diff.Removals[listID],
		}))
		if err != nil {
			logger.Warn("list unsubscribe failed", "list_id", listID, "error", err)
		}
		results = append(results, ListResult{ListID: listID, Op: OpUnsubscribe, Err: err})
	}

	return results
}

// checkListCall folds a list response into an error: transport failures pass
// through, and an HTTP-successful response with a positive fail count is
// also an error.
func checkListCall(resp *iterable.ListResponse, err error) error {
	if err != nil {
		return err
	}
	if resp.FailCount > 0 {
		return fmt.Errorf("list call had positive fail count: %d", resp.FailCount)
	}
	return nil
}

func sortedListIDs[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
