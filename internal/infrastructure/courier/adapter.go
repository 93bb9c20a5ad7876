// Package courier talks to the logistics collaborator that schedules pickups
// and reports shipment tracking.
package courier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/domain/shipping"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/infrastructure/config"
	"github.com/erp/console/internal/infrastructure/telemetry"
)

// Errors for courier configuration and responses
var (
	ErrShipperAccountMissing = errors.New("courier: shipper account number is required")
	ErrPickupRejected        = errors.New("courier: pickup was not accepted")
	ErrAWBRequired           = errors.New("courier: AWB number is required")
)

// Adapter schedules pickups and fetches tracking details. Requests are paced
// by a token bucket so a burst of CLI calls cannot trip the courier's quota.
type Adapter struct {
	cfg     config.CourierConfig
	client  *client.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures an Adapter
type Option func(*adapterOptions)

type adapterOptions struct {
	logger     *zap.Logger
	clientOpts []client.Option
}

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *adapterOptions) {
		o.logger = logger
		o.clientOpts = append(o.clientOpts, client.WithLogger(logger))
	}
}

// WithMetrics records courier requests alongside the admin API requests
func WithMetrics(m *client.Metrics) Option {
	return func(o *adapterOptions) {
		o.clientOpts = append(o.clientOpts, client.WithMetrics(m))
	}
}

// NewAdapter creates an adapter. credential supplies the bearer token sent
// to the courier endpoints; it may be nil for an unauthenticated collaborator.
func NewAdapter(cfg config.CourierConfig, credential client.TokenSource, opts ...Option) (*Adapter, error) {
	o := &adapterOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	clientOpts := o.clientOpts
	if credential != nil {
		clientOpts = append(clientOpts, client.WithTokenSource(credential))
	}

	c, err := client.New(config.APIConfig{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("courier: %w", err)
	}

	limit := rate.Inf
	if cfg.RateLimitQPS > 0 {
		limit = rate.Limit(cfg.RateLimitQPS)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Adapter{
		cfg:     cfg,
		client:  c,
		limiter: rate.NewLimiter(limit, burst),
		logger:  o.logger,
	}, nil
}

// SchedulePickup asks the courier to collect the shipment described by
// draft. The draft is expected to have passed validation already.
func (a *Adapter) SchedulePickup(ctx context.Context, draft shipping.PickupDraft) (shipping.PickupConfirmation, error) {
	ctx, span := telemetry.StartSpan(ctx, "courier", "schedule_pickup",
		attribute.String("order.id", draft.OrderID),
	)
	defer span.End()

	if a.cfg.Shipper.AccountNumber == "" {
		telemetry.RecordError(span, ErrShipperAccountMissing)
		return shipping.PickupConfirmation{}, ErrShipperAccountMissing
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return shipping.PickupConfirmation{}, fmt.Errorf("courier: rate limit wait: %w", err)
	}

	resp, err := a.client.Post(ctx, a.cfg.PickupPath, client.JSON(a.pickupRequest(draft)))
	if err != nil {
		telemetry.RecordError(span, err)
		return shipping.PickupConfirmation{}, err
	}

	var out pickupResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		err = fmt.Errorf("courier: decode pickup response: %w", err)
		telemetry.RecordError(span, err)
		return shipping.PickupConfirmation{}, err
	}
	if out.Status != StatusSuccess {
		msg := client.ErrorMessage(resp.Body)
		if msg == "" {
			msg = fmt.Sprintf("pickup status %q", out.Status)
		}
		err := &shared.HTTPError{Status: resp.StatusCode, Message: msg, Err: ErrPickupRejected}
		telemetry.RecordError(span, err)
		return shipping.PickupConfirmation{}, err
	}

	a.logger.Info("Pickup scheduled",
		zap.String("order_id", draft.OrderID),
		zap.String("confirmation_id", out.ConfirmationID),
	)
	return shipping.PickupConfirmation{
		ConfirmationID: out.ConfirmationID,
		ReadyBy:        draft.ReadyBy,
		CloseBy:        draft.CloseBy,
	}, nil
}

func (a *Adapter) pickupRequest(d shipping.PickupDraft) pickupRequest {
	s := a.cfg.Shipper
	return pickupRequest{
		OrderID:       d.OrderID,
		AccountNumber: s.AccountNumber,
		Shipper: shipperInfo{
			CompanyName: s.CompanyName,
			ContactName: s.ContactName,
			Phone:       s.Phone,
			Email:       s.Email,
			Address:     s.Address,
			City:        s.City,
			PostalCode:  s.PostalCode,
			CountryCode: s.CountryCode,
		},
		ReadyBy:        d.ReadyBy.Format(time.RFC3339),
		CloseTime:      d.CloseBy.In(d.ReadyBy.Location()).Format("15:04"),
		Location:       d.Location,
		Instructions:   d.Instructions,
		Weight:         json.Number(d.Weight.String()),
		TotalShipments: d.TotalShipments,
		Contact: contactInfo{
			Name:  d.ContactName,
			Phone: d.ContactPhone,
			Email: d.ContactEmail,
		},
	}
}

// Track fetches the courier's tracking details for one AWB number
func (a *Adapter) Track(ctx context.Context, awb string) (shipping.TrackingResult, error) {
	awb = strings.TrimSpace(awb)
	if awb == "" {
		return shipping.TrackingResult{}, ErrAWBRequired
	}

	ctx, span := telemetry.StartSpan(ctx, "courier", "track", attribute.String("awb", awb))
	defer span.End()

	if err := a.limiter.Wait(ctx); err != nil {
		return shipping.TrackingResult{}, fmt.Errorf("courier: rate limit wait: %w", err)
	}

	resp, err := a.client.Post(ctx, a.cfg.TrackingPath, client.JSON(trackingRequest{AWBNumber: awb}))
	if err != nil {
		telemetry.RecordError(span, err)
		return shipping.TrackingResult{}, err
	}

	var out trackingResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		err = fmt.Errorf("courier: decode tracking response: %w", err)
		telemetry.RecordError(span, err)
		return shipping.TrackingResult{}, err
	}
	if out.Error != "" {
		err := shared.NewHTTPError(resp.StatusCode, out.Error)
		telemetry.RecordError(span, err)
		return shipping.TrackingResult{}, err
	}
	if out.AWBNumber == "" {
		out.AWBNumber = awb
	}
	return shipping.TrackingResult{AWBNumber: out.AWBNumber, Details: out.Details}, nil
}
