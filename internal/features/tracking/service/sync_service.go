package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"parcel-tracker/internal/core/cache"
	"parcel-tracker/internal/core/credentials"
	"parcel-tracker/internal/core/logger"
	parcels "parcel-tracker/internal/features/parcels/domain"
	"parcel-tracker/internal/features/tracking/carrier"
	"parcel-tracker/internal/features/tracking/domain"
	"parcel-tracker/internal/features/tracking/ports"
	"parcel-tracker/internal/features/tracking/scraper"
)

// ErrProviderNotConfigured is returned when no orchestrator exists for
// the requested provider.
var ErrProviderNotConfigured = errors.New("provider not configured")

// SyncService coordinates batch syncs: it resolves the provider
// credential, loads the active batch from storage, delegates to the
// provider orchestrator, and writes normalized results back. It also
// carries the scraper-driven single-parcel path.
type SyncService struct {
	store     ports.ParcelStore
	creds     credentials.Store
	providers map[domain.Provider]ports.SyncProvider
	pages     ports.PageTextSource
	cache     cache.Cache
	cooldown  time.Duration
	logger    *zap.Logger
}

// NewSyncService creates a SyncService. cache may be nil to disable the
// sync cooldown; pages may be nil when live scraping is unavailable.
func NewSyncService(
	store ports.ParcelStore,
	creds credentials.Store,
	syncProviders []ports.SyncProvider,
	pages ports.PageTextSource,
	c cache.Cache,
	cooldown time.Duration,
) *SyncService {
	byProvider := make(map[domain.Provider]ports.SyncProvider, len(syncProviders))
	for _, sp := range syncProviders {
		byProvider[sp.Provider()] = sp
	}

	return &SyncService{
		store:     store,
		creds:     creds,
		providers: byProvider,
		pages:     pages,
		cache:     c,
		cooldown:  cooldown,
		logger:    logger.Get(),
	}
}

// SyncActive syncs every active parcel through the selected provider and
// applies the results to storage. Progress already written is kept even
// when the batch later aborts; this is a best-effort poller, not a
// transaction.
func (s *SyncService) SyncActive(ctx context.Context, providerName domain.Provider) ([]domain.SyncResult, error) {
	orchestrator, ok := s.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, providerName)
	}

	apiKey, err := s.creds.Read(providerName.CredentialAccount())
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrCredentialMissing, providerName)
	}

	batch, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading active parcels: %w", err)
	}
	batch = s.filterCooledDown(ctx, providerName, batch)
	if len(batch) == 0 {
		return nil, nil
	}

	results, err := orchestrator.SyncParcels(ctx, apiKey, batch)
	if err != nil {
		return nil, err
	}

	trackingNumbers := make(map[string]string, len(batch))
	for _, parcel := range batch {
		trackingNumbers[parcel.ID] = parcel.TrackingNumber
	}

	applied := make([]domain.SyncResult, 0, len(results))
	for _, result := range results {
		if err := s.applyResult(ctx, result); err != nil {
			s.logger.Warn("Failed to apply sync result",
				zap.String("entry_id", result.Info.EntryID),
				zap.Error(err),
			)
			continue
		}
		applied = append(applied, result)
		s.markSynced(ctx, providerName, trackingNumbers[result.Info.EntryID])
	}

	s.logger.Info("Batch sync finished",
		zap.String("provider", string(providerName)),
		zap.Int("batch_size", len(batch)),
		zap.Int("applied", len(applied)),
	)

	return applied, nil
}

// applyResult overwrites the parcel's status and replaces its serialized
// timeline wholesale with the new sorted sequence.
func (s *SyncService) applyResult(ctx context.Context, result domain.SyncResult) error {
	historyJSON, err := json.Marshal(result.Events)
	if err != nil {
		return fmt.Errorf("encoding timeline: %w", err)
	}
	return s.store.UpdateTracking(ctx, result.Info.EntryID, result.Info.Status, string(historyJSON), time.Now().UTC())
}

// ApplyScrapedText classifies raw page text for one parcel and, when a
// confident signal exists, prepends exactly one new event to the stored
// timeline. A nil classification means "no update" and returns (nil, nil).
func (s *SyncService) ApplyScrapedText(ctx context.Context, parcelID, pageText string) (*domain.ScrapedStatus, error) {
	parcel, err := s.store.GetByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}

	scraped := scraper.Classify(pageText)
	if scraped == nil {
		s.logger.Debug("No confident status signal in page text",
			zap.String("parcel_id", parcelID),
		)
		return nil, nil
	}

	var events []domain.TimelineEvent
	if parcel.TrackingHistory != "" {
		if err := json.Unmarshal([]byte(parcel.TrackingHistory), &events); err != nil {
			s.logger.Warn("Resetting unreadable stored timeline",
				zap.String("parcel_id", parcelID),
				zap.Error(err),
			)
			events = nil
		}
	}

	newEvent := domain.TimelineEvent{
		Timestamp:   time.Now().UTC(),
		Description: scraped.Description,
	}
	events = append([]domain.TimelineEvent{newEvent}, events...)

	historyJSON, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encoding timeline: %w", err)
	}

	if err := s.store.UpdateTracking(ctx, parcelID, scraped.Status, string(historyJSON), time.Now().UTC()); err != nil {
		return nil, err
	}

	if scraped.ExpectedDelivery != nil {
		if err := s.store.SetEstimatedDelivery(ctx, parcelID, *scraped.ExpectedDelivery); err != nil {
			s.logger.Warn("Failed to store expected delivery date",
				zap.String("parcel_id", parcelID),
				zap.Error(err),
			)
		}
	}

	return scraped, nil
}

// Timeline returns a parcel's stored timeline events, newest first.
func (s *SyncService) Timeline(ctx context.Context, parcelID string) ([]domain.TimelineEvent, error) {
	parcel, err := s.store.GetByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}

	if parcel.TrackingHistory == "" {
		return nil, nil
	}

	var events []domain.TimelineEvent
	if err := json.Unmarshal([]byte(parcel.TrackingHistory), &events); err != nil {
		return nil, fmt.Errorf("decoding stored timeline: %w", err)
	}
	return events, nil
}

// ScrapeAndApply fetches the parcel's public tracking page and feeds its
// text through ApplyScrapedText.
func (s *SyncService) ScrapeAndApply(ctx context.Context, parcelID string) (*domain.ScrapedStatus, error) {
	if s.pages == nil {
		return nil, errors.New("no page text source configured")
	}

	parcel, err := s.store.GetByID(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if parcel.TrackingNumber == "" {
		return nil, errors.New("parcel has no tracking number")
	}

	pageURL := carrier.TrackingURL(parcel.Carrier, parcel.TrackingNumber)
	text, err := s.pages.PageText(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("scraping tracking page: %w", err)
	}

	return s.ApplyScrapedText(ctx, parcelID, text)
}

// filterCooledDown drops parcels synced within the cooldown window.
// Cache failures disable the cooldown rather than failing the batch.
func (s *SyncService) filterCooledDown(ctx context.Context, providerName domain.Provider, batch []parcels.Parcel) []parcels.Parcel {
	if s.cache == nil || s.cooldown <= 0 {
		return batch
	}

	filtered := batch[:0]
	for _, parcel := range batch {
		if parcel.TrackingNumber == "" {
			continue
		}
		if _, err := s.cache.Get(ctx, cooldownKey(providerName, parcel.TrackingNumber)); err == nil {
			s.logger.Debug("Parcel inside sync cooldown, skipping",
				zap.String("tracking_number", parcel.TrackingNumber),
			)
			continue
		}
		filtered = append(filtered, parcel)
	}
	return filtered
}

// markSynced records a cooldown mark after a successful per-parcel sync.
// The mark is keyed by the local tracking number so it lines up with the
// filter regardless of the provider's own identifier.
func (s *SyncService) markSynced(ctx context.Context, providerName domain.Provider, trackingNumber string) {
	if s.cache == nil || s.cooldown <= 0 || trackingNumber == "" {
		return
	}
	key := cooldownKey(providerName, trackingNumber)
	if err := s.cache.Set(ctx, key, []byte("1"), s.cooldown); err != nil {
		s.logger.Debug("Failed to set sync cooldown mark", zap.Error(err))
	}
}

func cooldownKey(providerName domain.Provider, trackingNumber string) string {
	return fmt.Sprintf("sync:%s:%s", providerName, trackingNumber)
}
