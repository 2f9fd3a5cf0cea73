package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/parcels/paste"
	"parcel-tracker/internal/features/tracking/carrier"
)

// ParcelStore is the storage surface the parcel service needs.
type ParcelStore interface {
	Create(ctx context.Context, p *domain.Parcel) error
	GetByID(ctx context.Context, id string) (*domain.Parcel, error)
	List(ctx context.Context) ([]domain.Parcel, error)
	SetArchived(ctx context.Context, id string, archived bool) error
	Delete(ctx context.Context, id string) error
}

// CreateParcelInput carries the user-supplied fields for a new parcel.
type CreateParcelInput struct {
	Title          string
	TrackingNumber string
	OrderNumber    string
	Carrier        string
	Direction      domain.ParcelDirection
	Notes          string
	Recipient      string
	Purpose        string
	ProductURL     string
}

// ParcelService owns parcel CRUD on top of the store, filling in carrier
// detection and the initial status on creation.
type ParcelService struct {
	store  ParcelStore
	logger *zap.Logger
}

// NewParcelService creates a ParcelService.
func NewParcelService(store ParcelStore) *ParcelService {
	return &ParcelService{
		store:  store,
		logger: logger.Get(),
	}
}

// Create builds and persists a parcel from input. The carrier is
// auto-detected from the tracking number unless the user picked one, and
// the initial status follows from the tracking number and direction.
func (s *ParcelService) Create(ctx context.Context, input CreateParcelInput) (*domain.Parcel, error) {
	direction := input.Direction
	if direction == "" {
		direction = domain.DirectionIncoming
	}

	carrierName := strings.TrimSpace(input.Carrier)
	if carrierName == "" || carrierName == string(carrier.Auto) {
		carrierName = string(carrier.Detect(input.TrackingNumber))
	}

	parcel := &domain.Parcel{
		Title:          strings.TrimSpace(input.Title),
		TrackingNumber: strings.TrimSpace(input.TrackingNumber),
		OrderNumber:    strings.TrimSpace(input.OrderNumber),
		Carrier:        carrierName,
		Status:         domain.InitialStatus(strings.TrimSpace(input.TrackingNumber), direction),
		Direction:      direction,
		Notes:          input.Notes,
		Recipient:      input.Recipient,
		Purpose:        input.Purpose,
		ProductURL:     input.ProductURL,
	}

	if err := s.store.Create(ctx, parcel); err != nil {
		return nil, err
	}

	s.logger.Info("Parcel created",
		zap.String("parcel_id", parcel.ID),
		zap.String("carrier", parcel.Carrier),
		zap.String("status", string(parcel.Status)),
	)

	return parcel, nil
}

// Get returns one parcel by ID.
func (s *ParcelService) Get(ctx context.Context, id string) (*domain.Parcel, error) {
	return s.store.GetByID(ctx, id)
}

// List returns all parcels, optionally filtered to one status category.
func (s *ParcelService) List(ctx context.Context, category domain.StatusCategory) ([]domain.Parcel, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return all, nil
	}

	filtered := make([]domain.Parcel, 0, len(all))
	for _, p := range all {
		if p.Status.Category() == category {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// SetArchived toggles the archive flag on a parcel.
func (s *ParcelService) SetArchived(ctx context.Context, id string, archived bool) error {
	return s.store.SetArchived(ctx, id, archived)
}

// Delete removes a parcel.
func (s *ParcelService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Parse extracts tracking and order numbers from free-form pasted text.
func (s *ParcelService) Parse(text string) paste.ParsedParcelData {
	return paste.Parse(text)
}
