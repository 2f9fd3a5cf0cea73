package domain

import "time"

// ParcelStatus represents the normalized lifecycle status of a parcel.
// It is a closed enumeration: every provider status, however exotic,
// is mapped into one of these values.
type ParcelStatus string

const (
	// StatusOrdered indicates the item was ordered but no label exists yet.
	StatusOrdered ParcelStatus = "ordered"
	// StatusDraft indicates an outgoing parcel that has not been handed over.
	StatusDraft ParcelStatus = "draft"
	// StatusPreShipment indicates a label exists but the carrier has no scans.
	StatusPreShipment ParcelStatus = "preShipment"
	// StatusShipped indicates the parcel was handed to the carrier.
	StatusShipped ParcelStatus = "shipped"
	// StatusInTransit indicates the parcel is moving through the network.
	StatusInTransit ParcelStatus = "inTransit"
	// StatusOutForDelivery indicates the parcel is on a delivery vehicle.
	StatusOutForDelivery ParcelStatus = "outForDelivery"
	// StatusDelivered indicates the parcel reached its destination.
	StatusDelivered ParcelStatus = "delivered"
	// StatusException indicates a delivery problem needing attention.
	StatusException ParcelStatus = "exception"
	// StatusSuspended indicates tracking was stopped by the provider (expired).
	StatusSuspended ParcelStatus = "suspended"
)

// StatusCategory groups statuses into UI buckets.
type StatusCategory string

const (
	// CategoryToBeActivated groups parcels the carrier has not moved yet.
	CategoryToBeActivated StatusCategory = "toBeActivated"
	// CategoryOnTheWay groups parcels currently in motion.
	CategoryOnTheWay StatusCategory = "onTheWay"
	// CategoryDelivered groups completed parcels.
	CategoryDelivered StatusCategory = "delivered"
	// CategoryExceptionNeeded groups parcels needing user attention.
	CategoryExceptionNeeded StatusCategory = "exceptionNeeded"
)

// AllStatuses lists every ParcelStatus in lifecycle order.
var AllStatuses = []ParcelStatus{
	StatusOrdered,
	StatusDraft,
	StatusPreShipment,
	StatusShipped,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
	StatusException,
	StatusSuspended,
}

// Valid reports whether s is a member of the closed enumeration.
func (s ParcelStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Title returns the human-readable display title for the status.
func (s ParcelStatus) Title() string {
	switch s {
	case StatusOrdered:
		return "Ordered"
	case StatusDraft:
		return "Draft"
	case StatusPreShipment:
		return "Pre-Shipment"
	case StatusShipped:
		return "Shipped"
	case StatusInTransit:
		return "In Transit"
	case StatusOutForDelivery:
		return "Out for Delivery"
	case StatusDelivered:
		return "Delivered"
	case StatusException:
		return "Exception"
	case StatusSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// Icon returns the icon tag used by clients to render the status.
func (s ParcelStatus) Icon() string {
	switch s {
	case StatusOrdered:
		return "cart"
	case StatusDraft:
		return "doc.plaintext"
	case StatusPreShipment:
		return "shippingbox"
	case StatusShipped:
		return "shippingbox.fill"
	case StatusInTransit:
		return "truck.box"
	case StatusOutForDelivery:
		return "truck.box.fill"
	case StatusDelivered:
		return "checkmark.circle.fill"
	case StatusException:
		return "exclamationmark.triangle.fill"
	case StatusSuspended:
		return "pause.circle.fill"
	default:
		return "questionmark.circle"
	}
}

// Category returns the UI grouping bucket for the status.
// Suspended and exception both land in the attention bucket.
func (s ParcelStatus) Category() StatusCategory {
	switch s {
	case StatusOrdered, StatusDraft, StatusPreShipment:
		return CategoryToBeActivated
	case StatusShipped, StatusInTransit, StatusOutForDelivery:
		return CategoryOnTheWay
	case StatusDelivered:
		return CategoryDelivered
	case StatusException, StatusSuspended:
		return CategoryExceptionNeeded
	default:
		return CategoryToBeActivated
	}
}

// Terminal reports whether the status excludes a parcel from batch syncing.
func (s ParcelStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusException
}

// ParcelDirection distinguishes incoming and outgoing parcels.
type ParcelDirection string

const (
	// DirectionIncoming is a parcel being shipped to the user.
	DirectionIncoming ParcelDirection = "incoming"
	// DirectionOutgoing is a parcel the user is sending.
	DirectionOutgoing ParcelDirection = "outgoing"
)

// Parcel is the stored record for one tracked shipment.
type Parcel struct {
	// ID is the opaque, stable identifier used as entryId in sync results.
	ID string `db:"id" json:"id"`
	// Title is the user-facing name of the parcel.
	Title string `db:"title" json:"title"`
	// TrackingNumber is the carrier tracking number, empty if unknown.
	TrackingNumber string `db:"tracking_number" json:"tracking_number"`
	// OrderNumber is the merchant order reference, empty if unknown.
	OrderNumber string `db:"order_number" json:"order_number"`
	// Carrier is the carrier name ("UPS", "FedEx", ...) or "Auto-Detect".
	Carrier string `db:"carrier" json:"carrier"`
	// Status is the current normalized status.
	Status ParcelStatus `db:"status" json:"status"`
	// Direction is incoming or outgoing.
	Direction ParcelDirection `db:"direction" json:"direction"`
	// Archived excludes the parcel from syncing and default listings.
	Archived bool `db:"archived" json:"archived"`
	// Notes holds free-form user notes.
	Notes string `db:"notes" json:"notes"`
	// Recipient is the receiving party for outgoing parcels.
	Recipient string `db:"recipient" json:"recipient"`
	// Purpose describes why the parcel exists (gift, replacement, ...).
	Purpose string `db:"purpose" json:"purpose"`
	// ProductURL links back to the ordered product.
	ProductURL string `db:"product_url" json:"product_url"`
	// EstimatedDelivery is the expected delivery date, if known.
	EstimatedDelivery *time.Time `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	// TrackingHistory is the serialized timeline (JSON array, newest first).
	TrackingHistory string `db:"tracking_history" json:"tracking_history"`
	// DateAdded is when the record was created.
	DateAdded time.Time `db:"date_added" json:"date_added"`
	// LastUpdated is when tracking data last changed.
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// InitialStatus computes the status for a newly created parcel.
// A tracking number means a label exists, so the parcel is pre-shipment;
// otherwise incoming parcels start as ordered and outgoing ones as draft.
func InitialStatus(trackingNumber string, direction ParcelDirection) ParcelStatus {
	if trackingNumber != "" {
		return StatusPreShipment
	}
	if direction == DirectionOutgoing {
		return StatusDraft
	}
	return StatusOrdered
}
