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

// TrackingmoreAdapter converts Trackingmore v4 payloads into the
// normalized tracking model.
type TrackingmoreAdapter struct {
	logger *zap.Logger
}

// NewTrackingmoreAdapter creates a new TrackingmoreAdapter.
func NewTrackingmoreAdapter() *TrackingmoreAdapter {
	return &TrackingmoreAdapter{
		logger: logger.Get(),
	}
}

// Trackingmore JSON structures, mirroring the documented v4 response.
type trackingmoreRoot struct {
	Meta trackingmoreMeta  `json:"meta"`
	Data *trackingmoreData `json:"data"`
}

type trackingmoreMeta struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type trackingmoreData struct {
	ID                   string                 `json:"id"`
	TrackingNumber       string                 `json:"tracking_number"`
	DeliveryStatus       string                 `json:"delivery_status"`
	Substatus            string                 `json:"substatus"`
	TransitTime          *int                   `json:"transit_time"`
	LatestCheckpointTime string                 `json:"latest_checkpoint_time"`
	OriginInfo           *trackingmoreInfoBlock `json:"origin_info"`
	DestinationInfo      *trackingmoreInfoBlock `json:"destination_info"`
}

type trackingmoreInfoBlock struct {
	Trackinfo []trackingmoreCheckpoint `json:"trackinfo"`
}

type trackingmoreCheckpoint struct {
	CheckpointDate              string `json:"checkpoint_date"`
	CheckpointDeliveryStatus    string `json:"checkpoint_delivery_status"`
	CheckpointDeliverySubstatus string `json:"checkpoint_delivery_substatus"`
	TrackingDetail              string `json:"tracking_detail"`
	CountryISO2                 string `json:"country_iso2"`
	State                       string `json:"state"`
	City                        string `json:"city"`
}

// Adapt decodes a Trackingmore root object for one parcel. The envelope
// must carry meta.code 200 and a data object; anything else is invalid.
func (a *TrackingmoreAdapter) Adapt(raw []byte, parcel parcels.Parcel) (domain.NormalizedTrackingInfo, []domain.TimelineEvent, error) {
	var root trackingmoreRoot
	if err := json.Unmarshal(raw, &root); err != nil {
		return domain.NormalizedTrackingInfo{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidData, err)
	}
	if root.Meta.Code != 200 || root.Data == nil {
		return domain.NormalizedTrackingInfo{}, nil, fmt.Errorf("%w: meta code %d", domain.ErrInvalidData, root.Meta.Code)
	}

	body := root.Data
	status := a.mapStatus(body.DeliveryStatus)

	// Origin and destination legs are split in the payload; merge them.
	events := make([]domain.TimelineEvent, 0)
	if body.OriginInfo != nil {
		events = append(events, extractCheckpoints(body.OriginInfo.Trackinfo)...)
	}
	if body.DestinationInfo != nil {
		events = append(events, extractCheckpoints(body.DestinationInfo.Trackinfo)...)
	}
	domain.SortEventsNewestFirst(events)

	latest := parseTrackingmoreDate(body.LatestCheckpointTime)
	if latest == nil && len(events) > 0 {
		latest = &events[0].Timestamp
	}

	info := domain.NormalizedTrackingInfo{
		EntryID:              parcel.ID,
		ProviderTrackingID:   body.ID,
		Status:               status,
		TransitTimeDays:      body.TransitTime,
		LatestCheckpointTime: latest,
		RawPayload:           string(raw),
	}

	return info, events, nil
}

// mapStatus maps Trackingmore's status vocabulary ("pending", "notfound",
// "transit", "pickup", "delivered", "undelivered", "exception", "expired")
// to the normalized enumeration. Unrecognized strings default to inTransit
// so one odd status never fails a sync.
func (a *TrackingmoreAdapter) mapStatus(deliveryStatus string) parcels.ParcelStatus {
	lower := strings.ToLower(deliveryStatus)

	switch {
	case strings.Contains(lower, "pending"), strings.Contains(lower, "notfound"):
		return parcels.StatusPreShipment
	case strings.Contains(lower, "pickup"), strings.Contains(lower, "outfordelivery"), strings.Contains(lower, "out_for_delivery"):
		return parcels.StatusOutForDelivery
	case strings.Contains(lower, "transit"):
		return parcels.StatusInTransit
	case strings.Contains(lower, "delivered"), strings.Contains(lower, "undelivered"):
		// "undelivered" contains "delivered"; check it explicitly.
		if strings.Contains(lower, "undelivered") {
			return parcels.StatusException
		}
		return parcels.StatusDelivered
	case strings.Contains(lower, "exception"), strings.Contains(lower, "expired"):
		return parcels.StatusException
	default:
		if lower == "" {
			a.logger.Debug("Trackingmore payload without delivery_status")
		} else {
			a.logger.Warn("Unknown Trackingmore delivery status", zap.String("status", deliveryStatus))
		}
		return parcels.StatusInTransit
	}
}

// extractCheckpoints converts one leg's checkpoints, dropping entries
// without a parseable timestamp.
func extractCheckpoints(trackinfo []trackingmoreCheckpoint) []domain.TimelineEvent {
	events := make([]domain.TimelineEvent, 0, len(trackinfo))
	for _, cp := range trackinfo {
		date := parseTrackingmoreDate(cp.CheckpointDate)
		if date == nil {
			continue
		}

		locationParts := make([]string, 0, 3)
		if cp.City != "" {
			locationParts = append(locationParts, cp.City)
		}
		if cp.State != "" {
			locationParts = append(locationParts, cp.State)
		}
		if cp.CountryISO2 != "" {
			locationParts = append(locationParts, cp.CountryISO2)
		}

		events = append(events, domain.TimelineEvent{
			Timestamp:   *date,
			Description: cp.TrackingDetail,
			Location:    strings.Join(locationParts, ", "),
			SubStatus:   cp.CheckpointDeliverySubstatus,
		})
	}
	return events
}

// parseTrackingmoreDate handles the ISO8601 variants Trackingmore emits,
// with and without fractional seconds, plus the plain datetime form.
func parseTrackingmoreDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
