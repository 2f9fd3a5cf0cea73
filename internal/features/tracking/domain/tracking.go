package domain

import (
	"sort"
	"time"

	parcels "parcel-tracker/internal/features/parcels/domain"
)

// NormalizedTrackingInfo is the unified shipping status produced from any
// provider payload. It is created fresh on every sync and never mutated.
type NormalizedTrackingInfo struct {
	// EntryID is the local parcel identifier the result belongs to.
	EntryID string `json:"entry_id"`
	// ProviderTrackingID is the ID assigned by the provider, if any.
	ProviderTrackingID string `json:"provider_tracking_id,omitempty"`
	// Status is the normalized parcel status. Always a member of the
	// closed enumeration; unrecognized provider strings map to inTransit.
	Status parcels.ParcelStatus `json:"status"`
	// TransitTimeDays is the number of days in transit, if reported.
	TransitTimeDays *int `json:"transit_time_days,omitempty"`
	// LatestCheckpointTime is the time of the most recent scan. When the
	// provider omits it, it is the timestamp of the newest surviving event.
	LatestCheckpointTime *time.Time `json:"latest_checkpoint_time,omitempty"`
	// RawPayload is the original response text, kept for diagnostics.
	RawPayload string `json:"-"`
}

// TimelineEvent is one physical tracking scan.
type TimelineEvent struct {
	// Timestamp is required; events without a parseable time are dropped
	// by the adapters rather than stored with a zero time.
	Timestamp time.Time `json:"timestamp"`
	// Description is the human-readable scan text.
	Description string `json:"description"`
	// Location is "city, state, country" with empty parts omitted.
	Location string `json:"location,omitempty"`
	// SubStatus is the provider-specific fine-grained code, if any.
	SubStatus string `json:"sub_status,omitempty"`
}

// SortEventsNewestFirst orders events strictly descending by timestamp.
func SortEventsNewestFirst(events []TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}

// SyncResult pairs the normalized info with its ordered timeline.
type SyncResult struct {
	Info   NormalizedTrackingInfo `json:"info"`
	Events []TimelineEvent        `json:"events"`
}

// ScrapedStatus is the ephemeral output of the page-text classifier.
// It is consumed immediately to build one new timeline event.
type ScrapedStatus struct {
	Status           parcels.ParcelStatus `json:"status"`
	Description      string               `json:"description"`
	ExpectedDelivery *time.Time           `json:"expected_delivery,omitempty"`
}
