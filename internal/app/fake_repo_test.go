package app_test

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/app"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/pagination"
	"github.com/shopspring/decimal"
)

// fakeRepo is an in-memory stand-in for the Postgres repository. Guards
// mirror the SQL-level ones (status checks on resolve/refund) so service
// tests exercise the same failure paths.
type fakeRepo struct {
	rooms        map[uuid.UUID]domain.Room
	reservations map[uuid.UUID]domain.Reservation
	payments     map[uuid.UUID]domain.Payment
	refunds      map[uuid.UUID]domain.RefundRequest
	events       []app.Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rooms:        make(map[uuid.UUID]domain.Room),
		reservations: make(map[uuid.UUID]domain.Reservation),
		payments:     make(map[uuid.UUID]domain.Payment),
		refunds:      make(map[uuid.UUID]domain.RefundRequest),
	}
}

func (f *fakeRepo) addRoom(price string) domain.Room {
	room := domain.Room{
		ID:       uuid.New(),
		HotelID:  uuid.New(),
		Number:   "101",
		Price:    decimal.RequireFromString(price),
		Capacity: 2,
		Status:   domain.RoomAvailable,
	}
	f.rooms[room.ID] = room
	return room
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) GetRoom(_ context.Context, roomID uuid.UUID) (domain.Room, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return room, nil
}

func (f *fakeRepo) RoomAvailable(_ context.Context, roomID uuid.UUID, start, end, asOf time.Time) (bool, error) {
	for _, res := range f.reservations {
		if res.RoomID == roomID && res.Overlaps(start, end) && res.Blocks(asOf) {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeRepo) CreateReservation(_ context.Context, res domain.Reservation) error {
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeRepo) GetReservationForUpdate(_ context.Context, id uuid.UUID) (domain.Reservation, error) {
	res, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return res, nil
}

func (f *fakeRepo) UpdateReservationStatus(_ context.Context, id uuid.UUID, status domain.ReservationStatus) error {
	res, ok := f.reservations[id]
	if !ok {
		return domain.ErrNotFound
	}
	res.Status = status
	f.reservations[id] = res
	return nil
}

func (f *fakeRepo) CreatePayment(_ context.Context, p domain.Payment) error {
	for _, existing := range f.payments {
		if existing.ReservationID == p.ReservationID {
			return errors.Wrap(domain.ErrConflict, "payment already exists for reservation")
		}
	}
	f.payments[p.ID] = p
	return nil
}

func (f *fakeRepo) GetPaymentByReservation(_ context.Context, reservationID uuid.UUID) (*domain.Payment, error) {
	for _, p := range f.payments {
		if p.ReservationID == reservationID {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) MarkPaymentRefunded(_ context.Context, paymentID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	p, ok := f.payments[paymentID]
	if !ok || p.Status != domain.PaymentCompleted {
		return errors.Wrap(domain.ErrInvalidState, "payment not refundable")
	}
	p.Status = domain.PaymentRefunded
	p.RefundAmount = &amount
	p.RefundedAt = &at
	f.payments[paymentID] = p
	return nil
}

func (f *fakeRepo) UpsertRefundRequest(_ context.Context, rr domain.RefundRequest) (domain.RefundRequest, error) {
	for id, existing := range f.refunds {
		if existing.ReservationID == rr.ReservationID {
			existing.Reason = rr.Reason
			existing.Status = domain.RefundPending
			existing.CreatedAt = rr.CreatedAt
			existing.ReviewedByID = nil
			existing.ReviewedAt = nil
			f.refunds[id] = existing
			return existing, nil
		}
	}
	f.refunds[rr.ID] = rr
	return rr, nil
}

func (f *fakeRepo) GetRefundRequestForUpdate(_ context.Context, id uuid.UUID) (domain.RefundRequest, error) {
	rr, ok := f.refunds[id]
	if !ok {
		return domain.RefundRequest{}, domain.ErrNotFound
	}
	return rr, nil
}

func (f *fakeRepo) ResolveRefundRequest(_ context.Context, id uuid.UUID, status domain.RefundStatus, reviewerID uuid.UUID, at time.Time) error {
	rr, ok := f.refunds[id]
	if !ok || rr.Status != domain.RefundPending {
		return errors.Wrap(domain.ErrInvalidState, "refund already processed")
	}
	rr.Status = status
	rr.ReviewedByID = &reviewerID
	rr.ReviewedAt = &at
	f.refunds[id] = rr
	return nil
}

func (f *fakeRepo) ListRefundRequests(_ context.Context, p pagination.Params) ([]domain.RefundRequest, int, error) {
	all := make([]domain.RefundRequest, 0, len(f.refunds))
	for _, rr := range f.refunds {
		all = append(all, rr)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	from := p.Offset()
	if from > total {
		from = total
	}
	to := from + p.Limit
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

func (f *fakeRepo) ListReservations(_ context.Context, filter app.ReservationFilter, p pagination.Params) ([]domain.Reservation, int, error) {
	var all []domain.Reservation
	for _, res := range f.reservations {
		if filter.UserID != nil && res.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && res.Status != *filter.Status {
			continue
		}
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	from := p.Offset()
	if from > total {
		from = total
	}
	to := from + p.Limit
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

func (f *fakeRepo) BlockedRanges(_ context.Context, roomID uuid.UUID, asOf time.Time) ([]domain.DateRange, error) {
	var ranges []domain.DateRange
	for _, res := range f.reservations {
		if res.RoomID == roomID && res.Blocks(asOf) {
			ranges = append(ranges, domain.DateRange{Start: res.StartDate, End: res.EndDate})
		}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start.Before(ranges[j].Start) })
	return ranges, nil
}

func (f *fakeRepo) EnqueueEvent(_ context.Context, ev app.Event) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepo) eventTypes() []string {
	types := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		types = append(types, ev.Type)
	}
	return types
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
