package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcel-tracker/internal/core/cache"
	"parcel-tracker/internal/core/credentials"
	parcels "parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/tracking/domain"
	"parcel-tracker/internal/features/tracking/ports"
)

// fakeStore is an in-memory ports.ParcelStore.
type fakeStore struct {
	parcels map[string]*parcels.Parcel
}

func newFakeStore(items ...parcels.Parcel) *fakeStore {
	s := &fakeStore{parcels: make(map[string]*parcels.Parcel)}
	for i := range items {
		p := items[i]
		s.parcels[p.ID] = &p
	}
	return s
}

func (s *fakeStore) ListActive(ctx context.Context) ([]parcels.Parcel, error) {
	out := make([]parcels.Parcel, 0, len(s.parcels))
	for _, p := range s.parcels {
		if !p.Archived && !p.Status.Terminal() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*parcels.Parcel, error) {
	p, ok := s.parcels[id]
	if !ok {
		return nil, domain.ErrParcelNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakeStore) UpdateTracking(ctx context.Context, id string, status parcels.ParcelStatus, historyJSON string, lastUpdated time.Time) error {
	p, ok := s.parcels[id]
	if !ok {
		return domain.ErrParcelNotFound
	}
	p.Status = status
	p.TrackingHistory = historyJSON
	p.LastUpdated = lastUpdated
	return nil
}

func (s *fakeStore) SetEstimatedDelivery(ctx context.Context, id string, estimated time.Time) error {
	p, ok := s.parcels[id]
	if !ok {
		return domain.ErrParcelNotFound
	}
	p.EstimatedDelivery = &estimated
	return nil
}

// fakeProvider is a scripted ports.SyncProvider.
type fakeProvider struct {
	name    domain.Provider
	results []domain.SyncResult
	err     error

	gotKey   string
	gotBatch []parcels.Parcel
	calls    int
}

func (f *fakeProvider) Provider() domain.Provider {
	return f.name
}

func (f *fakeProvider) SyncParcels(ctx context.Context, apiKey string, batch []parcels.Parcel) ([]domain.SyncResult, error) {
	f.calls++
	f.gotKey = apiKey
	f.gotBatch = batch
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestService(t *testing.T, store ports.ParcelStore, provider *fakeProvider, c cache.Cache, cooldown time.Duration) (*SyncService, credentials.Store) {
	t.Helper()
	creds := credentials.NewMemoryStore()
	svc := NewSyncService(store, creds, []ports.SyncProvider{provider}, nil, c, cooldown)
	return svc, creds
}

// TestSyncActive_AppliesResults verifies a batch sync writes status and
// timeline back to the store.
func TestSyncActive_AppliesResults(t *testing.T) {
	store := newFakeStore(parcels.Parcel{ID: "p1", TrackingNumber: "N1", Status: parcels.StatusInTransit})

	events := []domain.TimelineEvent{
		{Timestamp: time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC), Description: "Delivered"},
	}
	provider := &fakeProvider{
		name: domain.ProviderTrackingmore,
		results: []domain.SyncResult{
			{Info: domain.NormalizedTrackingInfo{EntryID: "p1", Status: parcels.StatusDelivered}, Events: events},
		},
	}

	svc, creds := newTestService(t, store, provider, nil, 0)
	require.NoError(t, creds.Write("api_key_trackingmore", "key-1"))

	results, err := svc.SyncActive(context.Background(), domain.ProviderTrackingmore)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "key-1", provider.gotKey)
	require.Len(t, provider.gotBatch, 1)

	stored := store.parcels["p1"]
	assert.Equal(t, parcels.StatusDelivered, stored.Status)

	var storedEvents []domain.TimelineEvent
	require.NoError(t, json.Unmarshal([]byte(stored.TrackingHistory), &storedEvents))
	require.Len(t, storedEvents, 1)
	assert.Equal(t, "Delivered", storedEvents[0].Description)
	assert.False(t, stored.LastUpdated.IsZero())
}

// TestSyncActive_TimelineReplacedWholesale verifies the stored timeline is
// overwritten, not merged, by sync results.
func TestSyncActive_TimelineReplacedWholesale(t *testing.T) {
	old := `[{"timestamp":"2026-08-01T00:00:00Z","description":"Old event"}]`
	store := newFakeStore(parcels.Parcel{ID: "p1", TrackingNumber: "N1", TrackingHistory: old})

	provider := &fakeProvider{
		name: domain.ProviderTrackingmore,
		results: []domain.SyncResult{
			{
				Info: domain.NormalizedTrackingInfo{EntryID: "p1", Status: parcels.StatusInTransit},
				Events: []domain.TimelineEvent{
					{Timestamp: time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC), Description: "Fresh event"},
				},
			},
		},
	}

	svc, creds := newTestService(t, store, provider, nil, 0)
	require.NoError(t, creds.Write("api_key_trackingmore", "k"))

	_, err := svc.SyncActive(context.Background(), domain.ProviderTrackingmore)
	require.NoError(t, err)

	var storedEvents []domain.TimelineEvent
	require.NoError(t, json.Unmarshal([]byte(store.parcels["p1"].TrackingHistory), &storedEvents))
	require.Len(t, storedEvents, 1)
	assert.Equal(t, "Fresh event", storedEvents[0].Description)
}

// TestSyncActive_MissingCredentialFailsFast verifies no provider call is
// made without a stored API key.
func TestSyncActive_MissingCredentialFailsFast(t *testing.T) {
	store := newFakeStore(parcels.Parcel{ID: "p1", TrackingNumber: "N1"})
	provider := &fakeProvider{name: domain.ProviderTrackingmore}

	svc, _ := newTestService(t, store, provider, nil, 0)

	_, err := svc.SyncActive(context.Background(), domain.ProviderTrackingmore)
	assert.ErrorIs(t, err, domain.ErrCredentialMissing)
	assert.Zero(t, provider.calls)
}

// TestSyncActive_UnknownProvider verifies an unconfigured provider errors.
func TestSyncActive_UnknownProvider(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore(), &fakeProvider{name: domain.ProviderTrackingmore}, nil, 0)

	_, err := svc.SyncActive(context.Background(), domain.ProviderTrack123)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

// TestSyncActive_BatchFatalPropagates verifies auth failures surface to
// the caller with no partial results.
func TestSyncActive_BatchFatalPropagates(t *testing.T) {
	store := newFakeStore(parcels.Parcel{ID: "p1", TrackingNumber: "N1"})
	provider := &fakeProvider{name: domain.ProviderTrackingmore, err: domain.ErrAuthFailed}

	svc, creds := newTestService(t, store, provider, nil, 0)
	require.NoError(t, creds.Write("api_key_trackingmore", "k"))

	results, err := svc.SyncActive(context.Background(), domain.ProviderTrackingmore)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.Empty(t, results)
}

// TestSyncActive_CooldownSkipsRecentlySynced verifies a parcel synced
// moments ago is filtered from the next batch.
func TestSyncActive_CooldownSkipsRecentlySynced(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	defer redisCache.Close()

	store := newFakeStore(parcels.Parcel{ID: "p1", TrackingNumber: "N1"})
	provider := &fakeProvider{
		name: domain.ProviderTrackingmore,
		results: []domain.SyncResult{
			{Info: domain.NormalizedTrackingInfo{EntryID: "p1", ProviderTrackingID: "N1", Status: parcels.StatusInTransit}},
		},
	}

	svc, creds := newTestService(t, store, provider, redisCache, time.Minute)
	require.NoError(t, creds.Write("api_key_trackingmore", "k"))

	first, err := svc.SyncActive(context.Background(), domain.ProviderTrackingmore)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, provider.calls)

	// Second run: the cooldown mark filters the only parcel out.
	second, err := svc.SyncActive(context.Background(), domain.ProviderTrackingmore)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Equal(t, 1, provider.calls, "provider must not be called for an empty batch")

	// After the cooldown expires the parcel syncs again.
	mr.FastForward(2 * time.Minute)
	third, err := svc.SyncActive(context.Background(), domain.ProviderTrackingmore)
	require.NoError(t, err)
	assert.Len(t, third, 1)
	assert.Equal(t, 2, provider.calls)
}

// TestApplyScrapedText_PrependsOneEvent verifies scraping prepends exactly
// one event and keeps the existing timeline.
func TestApplyScrapedText_PrependsOneEvent(t *testing.T) {
	old := `[{"timestamp":"2026-08-01T00:00:00Z","description":"In Transit"}]`
	store := newFakeStore(parcels.Parcel{ID: "p1", TrackingNumber: "N1", TrackingHistory: old, Status: parcels.StatusInTransit})

	svc, _ := newTestService(t, store, &fakeProvider{name: domain.ProviderTrackingmore}, nil, 0)

	scraped, err := svc.ApplyScrapedText(context.Background(), "p1", "Your package was delivered, left at porch")
	require.NoError(t, err)
	require.NotNil(t, scraped)
	assert.Equal(t, parcels.StatusDelivered, scraped.Status)

	stored := store.parcels["p1"]
	assert.Equal(t, parcels.StatusDelivered, stored.Status)

	var events []domain.TimelineEvent
	require.NoError(t, json.Unmarshal([]byte(stored.TrackingHistory), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "In Transit", events[1].Description)
}

// TestApplyScrapedText_NoSignalIsNoUpdate verifies unclassifiable text
// leaves the parcel untouched.
func TestApplyScrapedText_NoSignalIsNoUpdate(t *testing.T) {
	store := newFakeStore(parcels.Parcel{ID: "p1", Status: parcels.StatusInTransit, TrackingHistory: "[]"})

	svc, _ := newTestService(t, store, &fakeProvider{name: domain.ProviderTrackingmore}, nil, 0)

	scraped, err := svc.ApplyScrapedText(context.Background(), "p1", "Please enable cookies to continue")
	require.NoError(t, err)
	assert.Nil(t, scraped)
	assert.Equal(t, parcels.StatusInTransit, store.parcels["p1"].Status)
	assert.Equal(t, "[]", store.parcels["p1"].TrackingHistory)
}

// TestApplyScrapedText_StoresExpectedDelivery verifies a parsed delivery
// date is written to the parcel.
func TestApplyScrapedText_StoresExpectedDelivery(t *testing.T) {
	store := newFakeStore(parcels.Parcel{ID: "p1", Status: parcels.StatusInTransit})

	svc, _ := newTestService(t, store, &fakeProvider{name: domain.ProviderTrackingmore}, nil, 0)

	scraped, err := svc.ApplyScrapedText(context.Background(), "p1", "Out for delivery. Estimated delivery: tomorrow")
	require.NoError(t, err)
	require.NotNil(t, scraped)
	require.NotNil(t, store.parcels["p1"].EstimatedDelivery)
}

// TestApplyScrapedText_UnknownParcel verifies a missing parcel errors.
func TestApplyScrapedText_UnknownParcel(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore(), &fakeProvider{name: domain.ProviderTrackingmore}, nil, 0)

	_, err := svc.ApplyScrapedText(context.Background(), "ghost", "delivered")
	assert.ErrorIs(t, err, domain.ErrParcelNotFound)
}

// TestTimeline verifies stored timelines decode and empty histories yield nil.
func TestTimeline(t *testing.T) {
	history := `[{"timestamp":"2026-08-22T10:00:00Z","description":"Delivered"}]`
	store := newFakeStore(
		parcels.Parcel{ID: "p1", TrackingHistory: history},
		parcels.Parcel{ID: "p2"},
	)

	svc, _ := newTestService(t, store, &fakeProvider{name: domain.ProviderTrackingmore}, nil, 0)

	events, err := svc.Timeline(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Delivered", events[0].Description)

	events, err = svc.Timeline(context.Background(), "p2")
	require.NoError(t, err)
	assert.Nil(t, events)

	_, err = svc.Timeline(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrParcelNotFound)
}
