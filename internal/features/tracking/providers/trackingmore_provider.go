package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"parcel-tracker/internal/core/logger"
	parcels "parcel-tracker/internal/features/parcels/domain"
	adapter "parcel-tracker/internal/features/tracking/adapters"
	"parcel-tracker/internal/features/tracking/carrier"
	"parcel-tracker/internal/features/tracking/domain"
)

// Trackingmore v4 meta codes that drive the sync state machine.
const (
	trackingmoreCodeOK            = 200
	trackingmoreCodeBadKey        = 4011
	trackingmoreCodePlanExhausted = 4031
	trackingmoreCodeAlreadyExists = 4101
	trackingmoreCodeNotExist      = 4102
)

// TrackingmoreProvider orchestrates batch syncs against the Trackingmore
// v4 API: one query per parcel, auto-registration of unknown tracking
// numbers with a single retry, and batch-fatal handling of auth and
// quota failures.
type TrackingmoreProvider struct {
	baseURL string
	httpc   *http.Client
	adapter *adapter.TrackingmoreAdapter
	logger  *zap.Logger
}

// NewTrackingmoreProvider creates a TrackingmoreProvider talking to baseURL.
func NewTrackingmoreProvider(baseURL string, httpc *http.Client) *TrackingmoreProvider {
	return &TrackingmoreProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   httpc,
		adapter: adapter.NewTrackingmoreAdapter(),
		logger:  logger.Get(),
	}
}

// Provider implements ports.SyncProvider.
func (p *TrackingmoreProvider) Provider() domain.Provider {
	return domain.ProviderTrackingmore
}

// trackingmoreEnvelope is the batch GET envelope: meta plus a data array.
// The raw meta and elements are kept so a single-object payload can be
// rebuilt for the adapter without re-encoding losses.
type trackingmoreEnvelope struct {
	Meta json.RawMessage   `json:"meta"`
	Data []json.RawMessage `json:"data"`

	code    int
	message string
}

// SyncParcels implements ports.SyncProvider. Queries are sequential, one
// round-trip per parcel, to respect Trackingmore rate limits. A parcel
// failure is logged and skipped; invalid-key and quota responses abort
// the batch immediately since every later call would fail the same way.
func (p *TrackingmoreProvider) SyncParcels(ctx context.Context, apiKey string, batch []parcels.Parcel) ([]domain.SyncResult, error) {
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
			p.logger.Warn("Skipping parcel after Trackingmore failure",
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

// syncOne runs the per-parcel state machine:
// query -> on miss -> register -> retry once -> give up.
// A nil result with nil error means the parcel was skipped quietly.
func (p *TrackingmoreProvider) syncOne(ctx context.Context, apiKey string, parcel parcels.Parcel) (*domain.SyncResult, error) {
	env, err := p.query(ctx, apiKey, parcel.TrackingNumber)
	if err != nil {
		return nil, err
	}

	switch env.code {
	case trackingmoreCodeOK:
		return p.adaptFirst(env, parcel)

	case trackingmoreCodeBadKey:
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthFailed, env.message)

	case trackingmoreCodePlanExhausted:
		return nil, fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, env.message)

	case trackingmoreCodeNotExist:
		// The number is unknown to Trackingmore; register it and retry
		// the original query exactly once.
		if err := p.register(ctx, apiKey, parcel); err != nil {
			return nil, fmt.Errorf("register tracking: %w", err)
		}

		retry, err := p.query(ctx, apiKey, parcel.TrackingNumber)
		if err != nil {
			return nil, err
		}
		switch retry.code {
		case trackingmoreCodeOK:
			return p.adaptFirst(retry, parcel)
		case trackingmoreCodeBadKey:
			return nil, fmt.Errorf("%w: %s", domain.ErrAuthFailed, retry.message)
		case trackingmoreCodePlanExhausted:
			return nil, fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, retry.message)
		default:
			return nil, fmt.Errorf("retry after registration: %w", &domain.APIError{
				Code:    fmt.Sprintf("%d", retry.code),
				Message: retry.message,
			})
		}

	default:
		return nil, &domain.APIError{
			Code:    fmt.Sprintf("%d", env.code),
			Message: env.message,
		}
	}
}

// adaptFirst rebuilds a single-object root from the first data element and
// hands it to the adapter. An empty data array on a 200 is treated as a
// quiet per-parcel skip, not a registration miss.
func (p *TrackingmoreProvider) adaptFirst(env *trackingmoreEnvelope, parcel parcels.Parcel) (*domain.SyncResult, error) {
	if len(env.Data) == 0 {
		p.logger.Debug("Trackingmore returned no data for parcel",
			zap.String("tracking_number", parcel.TrackingNumber),
		)
		return nil, nil
	}

	rewrapped, err := json.Marshal(struct {
		Meta json.RawMessage `json:"meta"`
		Data json.RawMessage `json:"data"`
	}{Meta: env.Meta, Data: env.Data[0]})
	if err != nil {
		return nil, fmt.Errorf("rewrap payload: %w", err)
	}

	info, events, err := p.adapter.Adapt(rewrapped, parcel)
	if err != nil {
		return nil, err
	}
	return &domain.SyncResult{Info: info, Events: events}, nil
}

// query issues the single-number GET and decodes its envelope.
func (p *TrackingmoreProvider) query(ctx context.Context, apiKey, trackingNumber string) (*trackingmoreEnvelope, error) {
	endpoint := p.baseURL + "/v4/trackings/get?tracking_numbers=" + url.QueryEscape(trackingNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	p.setHeaders(req, apiKey)

	return p.do(req)
}

// register creates the tracking number on the provider side, detecting
// the courier through the provider's own lookup when the parcel carrier
// is unset or left on auto-detection.
func (p *TrackingmoreProvider) register(ctx context.Context, apiKey string, parcel parcels.Parcel) error {
	courierCode := carrierToCourierCode(parcel.Carrier)
	if courierCode == "" {
		detected, err := p.detectCourier(ctx, apiKey, parcel.TrackingNumber)
		if err != nil {
			return err
		}
		courierCode = detected
	}

	payload := map[string]string{
		"tracking_number": parcel.TrackingNumber,
	}
	if courierCode != "" {
		payload["courier_code"] = courierCode
	}
	if parcel.OrderNumber != "" {
		payload["order_number"] = parcel.OrderNumber
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode create payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v4/trackings/create", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create request: %w", err)
	}
	p.setHeaders(req, apiKey)

	env, err := p.do(req)
	if err != nil {
		return err
	}

	// 4101 means the number raced into existence, which is fine too.
	if env.code != trackingmoreCodeOK && env.code != trackingmoreCodeAlreadyExists {
		return &domain.APIError{
			Code:    fmt.Sprintf("%d", env.code),
			Message: env.message,
		}
	}
	return nil
}

// detectCourier asks the provider to guess the courier for a number.
func (p *TrackingmoreProvider) detectCourier(ctx context.Context, apiKey, trackingNumber string) (string, error) {
	body, err := json.Marshal(map[string]string{"tracking_number": trackingNumber})
	if err != nil {
		return "", fmt.Errorf("encode detect payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v4/couriers/detect", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build detect request: %w", err)
	}
	p.setHeaders(req, apiKey)

	env, err := p.do(req)
	if err != nil {
		return "", err
	}
	if env.code != trackingmoreCodeOK || len(env.Data) == 0 {
		// No confident guess; create without a courier and let the
		// provider pick one server-side.
		return "", nil
	}

	var courier struct {
		CourierCode string `json:"courier_code"`
	}
	if err := json.Unmarshal(env.Data[0], &courier); err != nil {
		return "", nil
	}
	return courier.CourierCode, nil
}

// do executes the request and decodes the common meta/data envelope.
func (p *TrackingmoreProvider) do(req *http.Request) (*trackingmoreEnvelope, error) {
	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trackingmore request: %w", err)
	}
	defer resp.Body.Close()

	var env trackingmoreEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidData, err)
	}

	var meta struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if len(env.Meta) > 0 {
		if err := json.Unmarshal(env.Meta, &meta); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidData, err)
		}
	}
	env.code = meta.Code
	env.message = meta.Message

	return &env, nil
}

func (p *TrackingmoreProvider) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Tracking-Api-Key", apiKey)
}

// carrierToCourierCode maps a locally detected carrier to Trackingmore's
// courier code, or "" when the carrier is unset, auto, or unknown.
func carrierToCourierCode(carrierName string) string {
	switch carrier.Carrier(carrierName) {
	case carrier.UPS:
		return "ups"
	case carrier.FedEx:
		return "fedex"
	case carrier.USPS:
		return "usps"
	case carrier.DHL:
		return "dhl"
	default:
		return ""
	}
}
