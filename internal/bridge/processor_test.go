package bridge

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/iterable-bridge/internal/iterable"
	"github.com/ignite/iterable-bridge/internal/platform"
)

func testProcessor(api API) *Processor {
	p := NewProcessor(iterable.Config{})
	p.SetClientFactory(func(apiKey string) API { return api })
	return p
}

func testBatch(events ...platform.Event) *platform.EventBatch {
	return &platform.EventBatch{
		ID:             uuid.New(),
		Account:        platform.Account{Settings: map[string]string{platform.SettingAPIKey: "key"}},
		UserIdentities: append([]platform.UserIdentity(nil), testIdentities...),
		Events:         events,
	}
}

func TestProcessEventsOrdersByTimestamp(t *testing.T) {
	api := newFakeAPI()
	p := testProcessor(api)

	batch := testBatch(
		platform.Event{Kind: platform.EventCustom, Name: "third", TimestampMS: 3000},
		platform.Event{Kind: platform.EventCustom, Name: "first", TimestampMS: 1000},
		platform.Event{Kind: platform.EventCustom, Name: "second", TimestampMS: 2000},
	)

	require.NoError(t, p.ProcessEvents(context.Background(), batch))

	tracks := api.callsTo("Track")
	require.Len(t, tracks, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, want, tracks[i].req.(*iterable.TrackRequest).EventName)
	}
}

func TestProcessEventsUpdatesUserBeforeEvents(t *testing.T) {
	api := newFakeAPI()
	p := testProcessor(api)

	batch := testBatch(platform.Event{Kind: platform.EventCustom, Name: "signup"})
	batch.UserAttributes = map[string]string{"age": "31"}

	require.NoError(t, p.ProcessEvents(context.Background(), batch))

	assert.Equal(t, []string{"UpdateUser", "Track"}, api.methods())
	update := api.callsTo("UpdateUser")[0].req.(*iterable.UpdateUserRequest)
	assert.Equal(t, "mptest@example.com", update.Email)
	assert.Equal(t, "123456", update.UserID)
	assert.Equal(t, map[string]any{"age": int64(31)}, update.DataFields)
}

func TestProcessEventsInsertsPlaceholder(t *testing.T) {
	api := newFakeAPI()
	p := testProcessor(api)

	batch := testBatch(platform.Event{Kind: platform.EventCustom, Name: "open"})
	batch.UserIdentities = []platform.UserIdentity{
		{Kind: platform.IdentityCustomerID, Value: "42"},
	}

	require.NoError(t, p.ProcessEvents(context.Background(), batch))

	update := api.callsTo("UpdateUser")[0].req.(*iterable.UpdateUserRequest)
	assert.Equal(t, "42"+PlaceholderDomain, update.Email)

	track := api.callsTo("Track")[0].req.(*iterable.TrackRequest)
	assert.Equal(t, "42"+PlaceholderDomain, track.Email)
}

func TestProcessEventsNoIdentifier(t *testing.T) {
	api := newFakeAPI()
	p := testProcessor(api)

	batch := testBatch(platform.Event{Kind: platform.EventCustom, Name: "open"})
	batch.UserIdentities = nil

	err := p.ProcessEvents(context.Background(), batch)
	assert.ErrorIs(t, err, ErrNoIdentifier)
	assert.Empty(t, api.calls)
}

func TestProcessEventsReplaysTransitionsFirst(t *testing.T) {
	api := newFakeAPI()
	p := testProcessor(api)

	// Anonymous user on an iOS device logs in mid-batch, then corrects the
	// address. Both email updates must land before the user update and the
	// events, placeholder transition first.
	batch := testBatch(
		platform.Event{Kind: platform.EventCustom, Name: "tap", TimestampMS: 1000},
		platform.Event{
			Kind:        platform.EventUserIdentityChange,
			TimestampMS: 2000,
			Added: []platform.UserIdentity{
				{Kind: platform.IdentityEmail, Value: "real@example.com"},
			},
		},
		platform.Event{
			Kind:        platform.EventUserIdentityChange,
			TimestampMS: 3000,
			Added: []platform.UserIdentity{
				{Kind: platform.IdentityEmail, Value: "corrected@example.com"},
			},
			Removed: []platform.UserIdentity{
				{Kind: platform.IdentityEmail, Value: "real@example.com"},
			},
		},
	)
	batch.UserIdentities = []platform.UserIdentity{
		{Kind: platform.IdentityEmail, Value: "corrected@example.com"},
	}
	batch.RuntimeEnvironment = &platform.RuntimeEnvironment{
		Type: platform.EnvIOS,
		Identities: []platform.DeviceIdentity{
			{Kind: platform.DeviceIOSVendorID, Value: "IDFV-1"},
		},
	}

	require.NoError(t, p.ProcessEvents(context.Background(), batch))

	assert.Equal(t, []string{"UpdateEmail", "UpdateEmail", "UpdateUser", "Track"}, api.methods())

	updates := api.callsTo("UpdateEmail")
	first := updates[0].req.(*iterable.UpdateEmailRequest)
	assert.Equal(t, "IDFV-1"+PlaceholderDomain, first.CurrentEmail)
	assert.Equal(t, "real@example.com", first.NewEmail)

	second := updates[1].req.(*iterable.UpdateEmailRequest)
	assert.Equal(t, "real@example.com", second.CurrentEmail)
	assert.Equal(t, "corrected@example.com", second.NewEmail)
}

func TestProcessEventsFailedUpdateUserAbortsBatch(t *testing.T) {
	api := newFakeAPI()
	api.failMethods["UpdateUser"] = errFake
	p := testProcessor(api)

	batch := testBatch(platform.Event{Kind: platform.EventCustom, Name: "tap"})

	err := p.ProcessEvents(context.Background(), batch)
	assert.ErrorIs(t, err, errFake)
	assert.Empty(t, api.callsTo("Track"))
}

func TestProcessEventsMalformedPushIsSkipped(t *testing.T) {
	api := newFakeAPI()
	p := testProcessor(api)

	batch := testBatch(
		platform.Event{Kind: platform.EventPushOpen, Payload: "not json", TimestampMS: 1000},
		platform.Event{Kind: platform.EventCustom, Name: "after", TimestampMS: 2000},
	)

	require.NoError(t, p.ProcessEvents(context.Background(), batch))
	assert.Empty(t, api.callsTo("TrackPushOpen"))
	assert.Len(t, api.callsTo("Track"), 1)
}

func TestProcessEventsIdentityChangeNotDoubleDispatched(t *testing.T) {
	api := newFakeAPI()
	p := testProcessor(api)

	batch := testBatch(
		platform.Event{
			Kind:  platform.EventUserIdentityChange,
			Added: []platform.UserIdentity{{Kind: platform.IdentityEmail, Value: "new@example.com"}},
			Removed: []platform.UserIdentity{
				{Kind: platform.IdentityEmail, Value: "mptest@example.com"},
			},
		},
		platform.Event{Kind: platform.EventUserAttributeChange},
	)

	require.NoError(t, p.ProcessEvents(context.Background(), batch))
	assert.Len(t, api.callsTo("UpdateEmail"), 1)
	assert.Len(t, api.callsTo("UpdateUser"), 1)
}

func TestProcessEventsMissingAPIKey(t *testing.T) {
	p := testProcessor(newFakeAPI())
	batch := testBatch()
	batch.Account.Settings = nil

	err := p.ProcessEvents(context.Background(), batch)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestProcessorReusesClientPerAPIKey(t *testing.T) {
	var built []string
	p := NewProcessor(iterable.Config{})
	p.SetClientFactory(func(apiKey string) API {
		built = append(built, apiKey)
		return newFakeAPI()
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, p.ProcessEvents(context.Background(), testBatch()))
	}
	other := testBatch()
	other.Account.Settings[platform.SettingAPIKey] = "other-key"
	require.NoError(t, p.ProcessEvents(context.Background(), other))

	assert.Equal(t, []string{"key", "other-key"}, built)
}

func TestProcessAudiences(t *testing.T) {
	api := newFakeAPI()
	api.failLists[2] = errFake
	p := testProcessor(api)

	batch := &platform.AudienceBatch{
		ID:      uuid.New(),
		Account: platform.Account{Settings: map[string]string{platform.SettingAPIKey: "key"}},
		Profiles: []platform.UserProfile{
			profileWithEmail("a@example.com",
				[]platform.Audience{audienceList("1"), audienceList("2")},
				nil),
		},
	}

	results, err := p.ProcessAudiences(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, errFake)
}
