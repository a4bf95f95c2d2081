package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/app"
	"github.com/robertarktes/hotel-reservations/internal/auth"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/idempotency"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"github.com/robertarktes/hotel-reservations/internal/pagination"
	"github.com/shopspring/decimal"
)

// Service interfaces consumed by the handlers; satisfied by the app layer and
// by fakes in tests.
type holdCreator interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Reservation, error)
	HoldTTL() time.Duration
}

type confirmer interface {
	Confirm(ctx context.Context, reservationID uuid.UUID, paymentMethod string, caller auth.Caller) (app.ConfirmResult, error)
}

type canceller interface {
	RequestCancellation(ctx context.Context, reservationID uuid.UUID, caller auth.Caller, reason string) (app.CancelResult, error)
}

type refundReviewer interface {
	Review(ctx context.Context, requestID uuid.UUID, approve bool, reviewer auth.Caller) (domain.RefundRequest, error)
	ListRefunds(ctx context.Context, p pagination.Params) ([]domain.RefundRequest, pagination.Meta, error)
}

type querier interface {
	ListReservations(ctx context.Context, caller auth.Caller, status *domain.ReservationStatus, p pagination.Params) ([]domain.Reservation, pagination.Meta, error)
	RoomAvailability(ctx context.Context, roomID uuid.UUID) ([]domain.DateRange, error)
}

type responseCache interface {
	Get(ctx context.Context, key string) (*idempotency.Response, error)
	Set(ctx context.Context, key string, resp idempotency.Response) error
}

type Handlers struct {
	holds    holdCreator
	confirms confirmer
	cancels  canceller
	refunds  refundReviewer
	queries  querier
	idemp    responseCache
	validate *validator.Validate
	logger   observability.Logger
}

func NewHandlers(holds holdCreator, confirms confirmer, cancels canceller, refunds refundReviewer, queries querier, idemp responseCache, logger observability.Logger) *Handlers {
	return &Handlers{
		holds:    holds,
		confirms: confirms,
		cancels:  cancels,
		refunds:  refunds,
		queries:  queries,
		idemp:    idemp,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

const dateLayout = "2006-01-02"

type reservationJSON struct {
	ID            uuid.UUID `json:"id"`
	RoomID        uuid.UUID `json:"roomId"`
	UserID        uuid.UUID `json:"userId"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	Status        string    `json:"status"`
	TotalAmount   string    `json:"totalAmount"`
	HoldExpiresAt *string   `json:"holdExpiresAt"`
	CreatedAt     string    `json:"createdAt"`
}

func toReservationJSON(r domain.Reservation) reservationJSON {
	out := reservationJSON{
		ID:          r.ID,
		RoomID:      r.RoomID,
		UserID:      r.UserID,
		StartDate:   r.StartDate.Format(dateLayout),
		EndDate:     r.EndDate.Format(dateLayout),
		Status:      string(r.Status),
		TotalAmount: r.TotalAmount.String(),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.HoldExpiresAt != nil {
		s := r.HoldExpiresAt.Format(time.RFC3339)
		out.HoldExpiresAt = &s
	}
	return out
}

type paymentJSON struct {
	ID            uuid.UUID `json:"id"`
	ReservationID uuid.UUID `json:"reservationId"`
	Amount        string    `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	RefundAmount  *string   `json:"refundAmount,omitempty"`
	RefundedAt    *string   `json:"refundedAt,omitempty"`
}

func toPaymentJSON(p domain.Payment) paymentJSON {
	out := paymentJSON{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Amount:        p.Amount.String(),
		Method:        p.Method,
		Status:        string(p.Status),
	}
	if p.RefundAmount != nil {
		s := p.RefundAmount.String()
		out.RefundAmount = &s
	}
	if p.RefundedAt != nil {
		s := p.RefundedAt.Format(time.RFC3339)
		out.RefundedAt = &s
	}
	return out
}

type refundRequestJSON struct {
	ID            uuid.UUID  `json:"id"`
	ReservationID uuid.UUID  `json:"reservationId"`
	UserID        uuid.UUID  `json:"userId"`
	Reason        string     `json:"reason,omitempty"`
	Status        string     `json:"status"`
	ReviewedByID  *uuid.UUID `json:"reviewedById,omitempty"`
	ReviewedAt    *string    `json:"reviewedAt,omitempty"`
	CreatedAt     string     `json:"createdAt"`
}

func toRefundRequestJSON(rr domain.RefundRequest) refundRequestJSON {
	out := refundRequestJSON{
		ID:            rr.ID,
		ReservationID: rr.ReservationID,
		UserID:        rr.UserID,
		Reason:        rr.Reason,
		Status:        string(rr.Status),
		ReviewedByID:  rr.ReviewedByID,
		CreatedAt:     rr.CreatedAt.Format(time.RFC3339),
	}
	if rr.ReviewedAt != nil {
		s := rr.ReviewedAt.Format(time.RFC3339)
		out.ReviewedAt = &s
	}
	return out
}

func parseAmount(raw *string) (*decimal.Decimal, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func paginationParams(r *http.Request) pagination.Params {
	page, _ := parseIntQuery(r, "page")
	limit, _ := parseIntQuery(r, "limit")
	return pagination.Normalize(page, limit)
}
