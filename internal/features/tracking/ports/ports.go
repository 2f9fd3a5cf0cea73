package ports

import (
	"context"
	"time"

	parcels "parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/tracking/domain"
)

// ProviderAdapter converts one provider's raw JSON payload into the
// normalized tracking model for a given parcel.
type ProviderAdapter interface {
	// Adapt decodes raw provider bytes into normalized info plus a timeline
	// sorted newest first. It fails with domain.ErrInvalidData when the
	// envelope is malformed, never for an unrecognized status string.
	Adapt(raw []byte, parcel parcels.Parcel) (domain.NormalizedTrackingInfo, []domain.TimelineEvent, error)
}

// SyncProvider runs the query/register/retry workflow against one
// provider's API for a batch of parcels.
type SyncProvider interface {
	// Provider returns the provider this orchestrator talks to.
	Provider() domain.Provider
	// SyncParcels issues one query per parcel, sequentially. Per-parcel
	// failures are logged and skipped; auth and quota failures abort the
	// whole batch with domain.ErrAuthFailed / domain.ErrQuotaExceeded.
	SyncParcels(ctx context.Context, apiKey string, batch []parcels.Parcel) ([]domain.SyncResult, error)
}

// PageTextSource supplies the rendered innerText of a tracking page.
// The production implementation drives a headless browser.
type PageTextSource interface {
	PageText(ctx context.Context, url string) (string, error)
}

// ParcelStore is the slice of parcel storage the sync coordinator needs.
type ParcelStore interface {
	// ListActive returns non-archived parcels with a non-terminal status.
	ListActive(ctx context.Context) ([]parcels.Parcel, error)
	// GetByID returns one parcel or domain.ErrParcelNotFound.
	GetByID(ctx context.Context, id string) (*parcels.Parcel, error)
	// UpdateTracking overwrites status, serialized timeline, and the
	// last-updated timestamp for one parcel.
	UpdateTracking(ctx context.Context, id string, status parcels.ParcelStatus, historyJSON string, lastUpdated time.Time) error
	// SetEstimatedDelivery records the expected delivery date.
	SetEstimatedDelivery(ctx context.Context, id string, estimated time.Time) error
}
