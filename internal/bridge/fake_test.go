package bridge

import (
	"context"
	"fmt"

	"github.com/ignite/iterable-bridge/internal/iterable"
)

// recordedCall is one vendor call captured by fakeAPI, in issue order.
type recordedCall struct {
	method string
	req    any
}

// fakeAPI records every call and returns configured failures.
type fakeAPI struct {
	calls          []recordedCall
	failMethods    map[string]error // method name → error to return
	listFailCounts map[int]int      // list id → failCount in the response
	failLists      map[int]error    // list id → transport error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		failMethods:    make(map[string]error),
		listFailCounts: make(map[int]int),
		failLists:      make(map[int]error),
	}
}

func (f *fakeAPI) record(method string, req any) error {
	f.calls = append(f.calls, recordedCall{method: method, req: req})
	return f.failMethods[method]
}

// methods returns the sequence of call names, for order assertions.
func (f *fakeAPI) methods() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.method
	}
	return out
}

func (f *fakeAPI) callsTo(method string) []recordedCall {
	var out []recordedCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) Track(ctx context.Context, req *iterable.TrackRequest) error {
	return f.record("Track", req)
}

func (f *fakeAPI) TrackPushOpen(ctx context.Context, req *iterable.TrackPushOpenRequest) error {
	return f.record("TrackPushOpen", req)
}

func (f *fakeAPI) TrackPurchase(ctx context.Context, req *iterable.TrackPurchaseRequest) error {
	return f.record("TrackPurchase", req)
}

func (f *fakeAPI) UpdateUser(ctx context.Context, req *iterable.UpdateUserRequest) error {
	return f.record("UpdateUser", req)
}

func (f *fakeAPI) UpdateEmail(ctx context.Context, req *iterable.UpdateEmailRequest) error {
	return f.record("UpdateEmail", req)
}

func (f *fakeAPI) RegisterDeviceToken(ctx context.Context, req *iterable.RegisterDeviceTokenRequest) error {
	return f.record("RegisterDeviceToken", req)
}

func (f *fakeAPI) UpdateSubscriptions(ctx context.Context, req *iterable.UpdateSubscriptionsRequest) error {
	return f.record("UpdateSubscriptions", req)
}

func (f *fakeAPI) ListSubscribe(ctx context.Context, req *iterable.SubscribeRequest) (*iterable.ListResponse, error) {
	if err := f.record("ListSubscribe", req); err != nil {
		return nil, err
	}
	if err := f.failLists[req.ListID]; err != nil {
		return nil, err
	}
	return f.listResponse(req.ListID, len(req.Subscribers)), nil
}

func (f *fakeAPI) ListUnsubscribe(ctx context.Context, req *iterable.UnsubscribeRequest) (*iterable.ListResponse, error) {
	if err := f.record("ListUnsubscribe", req); err != nil {
		return nil, err
	}
	if err := f.failLists[req.ListID]; err != nil {
		return nil, err
	}
	return f.listResponse(req.ListID, len(req.Subscribers)), nil
}

func (f *fakeAPI) listResponse(listID, subscribers int) *iterable.ListResponse {
	failCount := f.listFailCounts[listID]
	resp := &iterable.ListResponse{
		SuccessCount: subscribers - failCount,
		FailCount:    failCount,
	}
	resp.Code = iterable.CodeSuccess
	return resp
}

var errFake = fmt.Errorf("fake vendor failure")
