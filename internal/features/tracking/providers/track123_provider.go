package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"parcel-tracker/internal/core/logger"
	parcels "parcel-tracker/internal/features/parcels/domain"
	adapter "parcel-tracker/internal/features/tracking/adapters"
	"parcel-tracker/internal/features/tracking/domain"
)

// Track123 envelope codes.
const (
	track123CodeOK            = "00000"
	track123CodePlanExhausted = "400"
	track123CodeBadKey        = "401"
)

const (
	track123QueryPath  = "/gateway/open-api/tk/v2.1/track/query"
	track123ImportPath = "/gateway/open-api/tk/v2.1/track/import"
)

// Track123Provider orchestrates batch syncs against the Track123 open
// API. Unknown tracking numbers are imported and the query retried once.
type Track123Provider struct {
	baseURL string
	httpc   *http.Client
	adapter *adapter.Track123Adapter
	logger  *zap.Logger
}

// NewTrack123Provider creates a Track123Provider talking to baseURL.
func NewTrack123Provider(baseURL string, httpc *http.Client) *Track123Provider {
	return &Track123Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		adapter: adapter.NewTrack123Adapter(),
		logger:  logger.Get(),
	}
}

// Provider implements ports.SyncProvider.
func (p *Track123Provider) Provider() domain.Provider {
	return domain.ProviderTrack123
}

// track123Envelope is the query response envelope. Accepted tracking
// objects are kept raw for the adapter.
type track123Envelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Accepted *struct {
			Content []json.RawMessage `json:"content"`
		} `json:"accepted"`
	} `json:"data"`
}

// SyncParcels implements ports.SyncProvider with the same failure contract
// as the Trackingmore orchestrator: sequential per-parcel queries, quiet
// per-parcel skips, batch-fatal auth and quota errors.
func (p *Track123Provider) SyncParcels(ctx context.Context, apiKey string, batch []parcels.Parcel) ([]domain.SyncResult, error) {
	results := make([]domain.SyncResult, 0, len(batch))

	for _, parcel := range batch {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if parcel.TrackingNumber == "" {
			continue
		}

		result, err := p.syncOne(ctx, apiKey, parcel)
		if err != nil {
			if errors.Is(err, domain.ErrAuthFailed) || errors.Is(err, domain.ErrQuotaExceeded) {
				return nil, err
			}
			p.logger.Warn("Skipping parcel after Track123 failure",
				zap.String("tracking_number", parcel.TrackingNumber),
				zap.Error(err),
			)
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

// syncOne runs query -> on miss -> import -> retry once -> give up.
func (p *Track123Provider) syncOne(ctx context.Context, apiKey string, parcel parcels.Parcel) (*domain.SyncResult, error) {
	env, err := p.query(ctx, apiKey, parcel.TrackingNumber)
	if err != nil {
		return nil, err
	}
	if err := p.checkEnvelope(env); err != nil {
		return nil, err
	}

	if content := acceptedContent(env); len(content) > 0 {
		return p.adaptContent(content[0], parcel)
	}

	// Track123 answers 00000 with an empty accepted list when the number
	// was never imported: import it and retry the query exactly once.
	if err := p.register(ctx, apiKey, parcel); err != nil {
		return nil, fmt.Errorf("import tracking: %w", err)
	}

	retry, err := p.query(ctx, apiKey, parcel.TrackingNumber)
	if err != nil {
		return nil, err
	}
	if err := p.checkEnvelope(retry); err != nil {
		return nil, err
	}

	if content := acceptedContent(retry); len(content) > 0 {
		return p.adaptContent(content[0], parcel)
	}

	p.logger.Debug("Track123 still has no data after import",
		zap.String("tracking_number", parcel.TrackingNumber),
	)
	return nil, nil
}

// checkEnvelope translates envelope codes into the shared error taxonomy.
func (p *Track123Provider) checkEnvelope(env *track123Envelope) error {
	switch env.Code {
	case track123CodeOK:
		return nil
	case track123CodeBadKey:
		return fmt.Errorf("%w: %s", domain.ErrAuthFailed, env.Msg)
	case track123CodePlanExhausted:
		return fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, env.Msg)
	default:
		return &domain.APIError{Code: env.Code, Message: env.Msg}
	}
}

func (p *Track123Provider) adaptContent(raw json.RawMessage, parcel parcels.Parcel) (*domain.SyncResult, error) {
	info, events, err := p.adapter.Adapt(raw, parcel)
	if err != nil {
		return nil, err
	}
	return &domain.SyncResult{Info: info, Events: events}, nil
}

// query posts the single-number track query.
func (p *Track123Provider) query(ctx context.Context, apiKey, trackingNumber string) (*track123Envelope, error) {
	body, err := json.Marshal(map[string][]string{
		"trackNos": {trackingNumber},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+track123QueryPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	p.setHeaders(req, apiKey)

	return p.do(req)
}

// register imports the tracking number, carrying the order number along
// when the parcel has one.
func (p *Track123Provider) register(ctx context.Context, apiKey string, parcel parcels.Parcel) error {
	trackObj := map[string]string{
		"trackNo": parcel.TrackingNumber,
	}
	if parcel.OrderNumber != "" {
		trackObj["orderNo"] = parcel.OrderNumber
	}

	body, err := json.Marshal([]map[string]string{trackObj})
	if err != nil {
		return fmt.Errorf("encode import payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+track123ImportPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build import request: %w", err)
	}
	p.setHeaders(req, apiKey)

	env, err := p.do(req)
	if err != nil {
		return err
	}
	return p.checkEnvelope(env)
}

func (p *Track123Provider) do(req *http.Request) (*track123Envelope, error) {
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("track123 request: %w", err)
	}
	defer resp.Body.Close()

	var env track123Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidData, err)
	}
	return &env, nil
}

func (p *Track123Provider) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("accept", "application/json")
	req.Header.Set("Track123-Api-Secret", apiKey)
}

func acceptedContent(env *track123Envelope) []json.RawMessage {
	if env.Data == nil || env.Data.Accepted == nil {
		return nil
	}
	return env.Data.Accepted.Content
}
