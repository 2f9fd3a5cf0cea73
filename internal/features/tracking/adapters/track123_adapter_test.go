package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parcels "parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/tracking/domain"
)

const track123Payload = `{
	"trackNo": "9400111899223344556677",
	"trackingStatus": "002",
	"transitStatus": "IN_TRANSIT",
	"receiptDays": 6,
	"lastTrackingTime": "2026-08-21 08:15:00",
	"localLogisticsInfo": {
		"trackingDetails": [
			{
				"address": "Columbus, OH",
				"eventTime": "2026-08-21 08:15:00",
				"eventDetail": "Arrived at regional hub",
				"transitSubStatus": "IN_TRANSIT_02"
			},
			{
				"address": "Louisville, KY",
				"eventTime": "2026-08-19 17:00:00",
				"eventDetail": "Departed facility"
			},
			{
				"address": "Nowhere",
				"eventTime": "garbage",
				"eventDetail": "Broken event"
			}
		]
	}
}`

// TestTrack123Adapter_Adapt verifies normalization of a full payload.
func TestTrack123Adapter_Adapt(t *testing.T) {
	a := NewTrack123Adapter()

	info, events, err := a.Adapt([]byte(track123Payload), parcels.Parcel{ID: "entry-9"})
	require.NoError(t, err)

	assert.Equal(t, "entry-9", info.EntryID)
	assert.Equal(t, "9400111899223344556677", info.ProviderTrackingID)
	assert.Equal(t, parcels.StatusInTransit, info.Status)
	require.NotNil(t, info.TransitTimeDays)
	assert.Equal(t, 6, *info.TransitTimeDays)
	assert.Equal(t, track123Payload, info.RawPayload)

	require.NotNil(t, info.LatestCheckpointTime)
	assert.Equal(t, time.Date(2026, 8, 21, 8, 15, 0, 0, time.UTC), *info.LatestCheckpointTime)

	// The unparseable event is dropped; the rest sort newest first.
	require.Len(t, events, 2)
	assert.Equal(t, "Arrived at regional hub", events[0].Description)
	assert.Equal(t, "Columbus, OH", events[0].Location)
	assert.Equal(t, "IN_TRANSIT_02", events[0].SubStatus)
	assert.True(t, events[0].Timestamp.After(events[1].Timestamp))
}

// TestTrack123Adapter_NumericStatusFallback verifies the coded
// trackingStatus is used when transitStatus is absent.
func TestTrack123Adapter_NumericStatusFallback(t *testing.T) {
	a := NewTrack123Adapter()

	payload := `{"trackNo": "N1", "trackingStatus": "004"}`
	info, _, err := a.Adapt([]byte(payload), parcels.Parcel{ID: "e"})
	require.NoError(t, err)
	assert.Equal(t, parcels.StatusDelivered, info.Status)
}

// TestTrack123Adapter_StatusMapping verifies word and code mapping into
// the closed enumeration.
func TestTrack123Adapter_StatusMapping(t *testing.T) {
	a := NewTrack123Adapter()

	cases := map[string]parcels.ParcelStatus{
		"INFO_RECEIVED":    parcels.StatusPreShipment,
		"OUT_FOR_DELIVERY": parcels.StatusOutForDelivery,
		"IN_TRANSIT":       parcels.StatusInTransit,
		"PICKUP":           parcels.StatusInTransit,
		"UNDELIVERED":      parcels.StatusException,
		"DELIVERED":        parcels.StatusDelivered,
		"EXPIRED":          parcels.StatusSuspended,
		"001":              parcels.StatusPreShipment,
		"005":              parcels.StatusException,
		"mystery":          parcels.StatusInTransit,
	}
	for input, want := range cases {
		assert.Equal(t, want, a.mapStatus(input), "status: %s", input)
	}
}

// TestTrack123Adapter_LastMileTrackingNumber verifies the last-mile number
// is used when the primary trackNo is absent.
func TestTrack123Adapter_LastMileTrackingNumber(t *testing.T) {
	a := NewTrack123Adapter()

	payload := `{"transitStatus": "IN_TRANSIT", "lastMileInfo": {"lmTrackNo": "LM-42"}}`
	info, _, err := a.Adapt([]byte(payload), parcels.Parcel{ID: "e"})
	require.NoError(t, err)
	assert.Equal(t, "LM-42", info.ProviderTrackingID)
}

// TestTrack123Adapter_InvalidPayload verifies malformed JSON fails with
// ErrInvalidData.
func TestTrack123Adapter_InvalidPayload(t *testing.T) {
	a := NewTrack123Adapter()
	_, _, err := a.Adapt([]byte(`{{`), parcels.Parcel{})
	assert.ErrorIs(t, err, domain.ErrInvalidData)
}
