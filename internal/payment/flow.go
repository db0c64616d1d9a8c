package payment

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/beat22/storefront-core/internal/catalog"
	"github.com/beat22/storefront-core/internal/ledger"
	pkgerrors "github.com/beat22/storefront-core/pkg/errors"
	"github.com/beat22/storefront-core/pkg/logger"
	"github.com/beat22/storefront-core/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MinorUnitsPerPrice converts a listed whole-currency price into the minor
// units the gateway charges.
const MinorUnitsPerPrice = 100

// State is the flow's position in a checkout attempt.
type State string

const (
	StateIdle                 State = "idle"
	StateIntentCreated        State = "intent_created"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateSettled              State = "settled"
	StateCancelled            State = "cancelled"
)

// InitiateInput is the caller's charge request. AmountMinor must match the
// catalog total for the listed tracks.
type InitiateInput struct {
	AmountMinor int64
	Currency    string
	TrackIDs    []int64
	Payer       Payer
}

// Receipt reports a settled checkout.
type Receipt struct {
	OrderID     uuid.UUID
	TotalMinor  int64
	PurchaseIDs []uuid.UUID
}

// Flow drives a checkout from intent validation through settlement. One
// gateway hand-off per attempt; everything before it is side-effect free, so
// a cancelled or failed attempt leaves the ledger untouched.
type Flow struct {
	gateway  Gateway
	ledger   ledger.Service
	catalog  *catalog.Catalog
	logg     *logger.Logger
	metrics  *metrics.CommerceMetrics
	validate *validator.Validate
	currency string

	state State
}

// NewFlow wires a payment flow. currency is the only accepted intent
// currency.
func NewFlow(gateway Gateway, ledgerSvc ledger.Service, cat *catalog.Catalog, logg *logger.Logger, commerce *metrics.CommerceMetrics, currency string) (*Flow, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	return &Flow{
		gateway:  gateway,
		ledger:   ledgerSvc,
		catalog:  cat,
		logg:     logg,
		metrics:  commerce,
		validate: validator.New(),
		currency: currency,
		state:    StateIdle,
	}, nil
}

// State returns the flow's current position. Gateway failures land in
// Cancelled like user cancellations; the returned error code tells them
// apart.
func (f *Flow) State() State {
	return f.state
}

// Initiate validates the request, suspends on the gateway, and on approval
// records one purchase per track under a fresh order id. Cancellation at any
// point, including via ctx, mutates nothing.
func (f *Flow) Initiate(ctx context.Context, input InitiateInput) (*Receipt, error) {
	f.state = StateIdle

	tracks, err := f.buildIntentTracks(input)
	if err != nil {
		f.metrics.IncPaymentOutcome("rejected")
		return nil, err
	}

	intent := Intent{
		ID:          uuid.New(),
		AmountMinor: input.AmountMinor,
		Currency:    input.Currency,
		TrackIDs:    append([]int64(nil), input.TrackIDs...),
		Payer:       input.Payer,
		CreatedAt:   time.Now().UTC(),
	}
	f.state = StateIntentCreated

	ctx = f.logg.WithPayerID(ctx, input.Payer.ID)
	f.logg.Info(f.logg.WithField(ctx, "amount_minor", intent.AmountMinor), "awaiting payment confirmation")
	f.state = StateAwaitingConfirmation

	confirmation, err := f.gateway.Confirm(ctx, intent)
	if err != nil {
		if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded) {
			f.state = StateCancelled
			f.metrics.IncPaymentOutcome("cancelled")
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentCancelled, err, "payment cancelled")
		}
		f.state = StateCancelled
		f.metrics.IncPaymentOutcome("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, err.Error())
	}
	if !confirmation.Approved {
		f.state = StateCancelled
		f.metrics.IncPaymentOutcome("cancelled")
		return nil, pkgerrors.New(pkgerrors.CodePaymentCancelled, "payer declined the charge")
	}

	receipt, err := f.settle(ctx, intent, tracks, confirmation)
	if err != nil {
		f.state = StateIdle
		f.metrics.IncPaymentOutcome("failed")
		return nil, err
	}
	f.state = StateSettled
	f.metrics.IncPaymentOutcome("settled")
	return receipt, nil
}

// buildIntentTracks rejects every malformed intent before any side effect and
// resolves the tracks being bought.
func (f *Flow) buildIntentTracks(input InitiateInput) ([]catalog.Track, error) {
	if err := f.validate.Struct(input.Payer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidIntent, err, "invalid payer")
	}
	if len(input.TrackIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIntent, "intent lists no tracks")
	}
	if input.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIntent, "amount must be positive")
	}
	if input.Currency != f.currency {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIntent, fmt.Sprintf("unsupported currency %q", input.Currency))
	}

	seen := make(map[int64]bool, len(input.TrackIDs))
	tracks := make([]catalog.Track, 0, len(input.TrackIDs))
	var total int64
	for _, id := range input.TrackIDs {
		if seen[id] {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidIntent, fmt.Sprintf("track %d listed twice", id))
		}
		seen[id] = true

		track, ok := f.catalog.ByID(id)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidIntent, fmt.Sprintf("unknown track %d", id))
		}
		if f.ledger.CanDownload(id) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidIntent, fmt.Sprintf("track %d already owned", id))
		}
		tracks = append(tracks, track)
		total += track.Price * MinorUnitsPerPrice
	}
	if input.AmountMinor != total {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidIntent, fmt.Sprintf("amount %d does not match catalog total %d", input.AmountMinor, total))
	}
	return tracks, nil
}

func (f *Flow) settle(ctx context.Context, intent Intent, tracks []catalog.Track, confirmation Confirmation) (*Receipt, error) {
	orderID := uuid.New()
	ctx = f.logg.WithOrderID(ctx, orderID.String())
	settledAt := time.Now().UTC()

	purchaseIDs := make([]uuid.UUID, 0, len(tracks))
	for _, track := range tracks {
		purchase := ledger.Purchase{
			ID:          uuid.New(),
			OrderID:     orderID,
			TrackID:     track.ID,
			Price:       track.Price,
			Title:       track.Title,
			Producer:    track.Producer,
			Image:       track.Image,
			PurchasedAt: settledAt,
			DownloadRef: fmt.Sprintf("orders/%s/tracks/%d", orderID, track.ID),
		}
		if err := f.ledger.RecordPurchase(ctx, purchase); err != nil {
			// The charge went through; surfacing the record failure beats
			// pretending the checkout never happened.
			f.logg.Error(f.logg.WithTrackID(ctx, track.ID), "recording settled purchase", err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment settled but recording the purchase failed")
		}
		purchaseIDs = append(purchaseIDs, purchase.ID)
	}

	f.logg.Info(f.logg.WithField(ctx, "reference", confirmation.Reference), "payment settled")
	return &Receipt{
		OrderID:     orderID,
		TotalMinor:  intent.AmountMinor,
		PurchaseIDs: purchaseIDs,
	}, nil
}
