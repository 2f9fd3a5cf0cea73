package adapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"parcel-tracker/internal/core/logger"
	parcels "parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/tracking/domain"
)

// track123DateLayout matches Track123 event times ("2024-01-01 12:00:00"),
// which the API reports in UTC.
const track123DateLayout = "2006-01-02 15:04:05"

// Track123Adapter converts Track123 tracking objects into the normalized
// tracking model.
type Track123Adapter struct {
	logger *zap.Logger
}

// NewTrack123Adapter creates a new Track123Adapter.
func NewTrack123Adapter() *Track123Adapter {
	return &Track123Adapter{
		logger: logger.Get(),
	}
}

// Track123 JSON structures.
type track123TrackingObject struct {
	TrackNo            string                 `json:"trackNo"`
	TrackingStatus     string                 `json:"trackingStatus"`
	TransitStatus      string                 `json:"transitStatus"`
	ReceiptDays        *int                   `json:"receiptDays"`
	LastTrackingTime   string                 `json:"lastTrackingTime"`
	LocalLogisticsInfo *track123LogisticsInfo `json:"localLogisticsInfo"`
	LastMileInfo       *track123LastMileInfo  `json:"lastMileInfo"`
}

type track123LogisticsInfo struct {
	TrackingDetails []track123TrackingDetail `json:"trackingDetails"`
}

type track123LastMileInfo struct {
	LmTrackNo string `json:"lmTrackNo"`
}

type track123TrackingDetail struct {
	Address          string `json:"address"`
	EventTime        string `json:"eventTime"`
	EventDetail      string `json:"eventDetail"`
	TransitSubStatus string `json:"transitSubStatus"`
}

// Adapt decodes a single Track123 tracking object for one parcel.
func (a *Track123Adapter) Adapt(raw []byte, parcel parcels.Parcel) (domain.NormalizedTrackingInfo, []domain.TimelineEvent, error) {
	var trackObj track123TrackingObject
	if err := json.Unmarshal(raw, &trackObj); err != nil {
		return domain.NormalizedTrackingInfo{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidData, err)
	}

	// transitStatus is the descriptive field; the coded trackingStatus is
	// the fallback when it is absent.
	statusSource := trackObj.TransitStatus
	if statusSource == "" {
		statusSource = trackObj.TrackingStatus
	}
	status := a.mapStatus(statusSource)

	events := make([]domain.TimelineEvent, 0)
	if trackObj.LocalLogisticsInfo != nil {
		for _, detail := range trackObj.LocalLogisticsInfo.TrackingDetails {
			parsed := parseTrack123Date(detail.EventTime)
			if parsed == nil {
				continue
			}

			description := detail.EventDetail
			if description == "" {
				description = "Update"
			}

			events = append(events, domain.TimelineEvent{
				Timestamp:   *parsed,
				Description: description,
				Location:    detail.Address,
				SubStatus:   detail.TransitSubStatus,
			})
		}
	}
	domain.SortEventsNewestFirst(events)

	latest := parseTrack123Date(trackObj.LastTrackingTime)
	if latest == nil && len(events) > 0 {
		latest = &events[0].Timestamp
	}

	providerID := trackObj.TrackNo
	if providerID == "" && trackObj.LastMileInfo != nil {
		providerID = trackObj.LastMileInfo.LmTrackNo
	}

	info := domain.NormalizedTrackingInfo{
		EntryID:              parcel.ID,
		ProviderTrackingID:   providerID,
		Status:               status,
		TransitTimeDays:      trackObj.ReceiptDays,
		LatestCheckpointTime: latest,
		RawPayload:           string(raw),
	}

	return info, events, nil
}

// mapStatus maps Track123 status strings to the normalized enumeration.
// Word matching runs first; the numeric trackingStatus codes are the
// secondary lookup, and anything else defaults to inTransit.
func (a *Track123Adapter) mapStatus(value string) parcels.ParcelStatus {
	lower := strings.ToLower(value)

	switch {
	case strings.Contains(lower, "pending"), strings.Contains(lower, "info_received"):
		return parcels.StatusPreShipment
	case strings.Contains(lower, "out_for_delivery"), strings.Contains(lower, "outfordelivery"):
		return parcels.StatusOutForDelivery
	case strings.Contains(lower, "transit"), strings.Contains(lower, "pickup"), strings.Contains(lower, "departed"):
		return parcels.StatusInTransit
	case strings.Contains(lower, "undelivered"), strings.Contains(lower, "exception"), strings.Contains(lower, "alert"):
		return parcels.StatusException
	case strings.Contains(lower, "delivered"), strings.Contains(lower, "receive"):
		return parcels.StatusDelivered
	case strings.Contains(lower, "expired"):
		return parcels.StatusSuspended
	}

	switch value {
	case "001": // Pending
		return parcels.StatusPreShipment
	case "002": // In Transit
		return parcels.StatusInTransit
	case "003": // Out for Delivery
		return parcels.StatusOutForDelivery
	case "004": // Delivered
		return parcels.StatusDelivered
	case "005": // Alert / Exception
		return parcels.StatusException
	case "006": // Expired
		return parcels.StatusSuspended
	}

	a.logger.Warn("Unknown Track123 status", zap.String("status", value))
	return parcels.StatusInTransit
}

func parseTrack123Date(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(track123DateLayout, value, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
