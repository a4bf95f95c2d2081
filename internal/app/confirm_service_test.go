package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/app"
	"github.com/robertarktes/hotel-reservations/internal/auth"
	"github.com/robertarktes/hotel-reservations/internal/clock"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/stretchr/testify/require"
)

func seedHold(t *testing.T, repo *fakeRepo, at time.Time) domain.Reservation {
	t.Helper()
	room := repo.addRoom("200.00")
	svc := app.NewHoldService(repo, clock.NewFixed(at), app.NopAudit{})
	created, err := svc.CreateHold(context.Background(), app.CreateHoldInput{
		RoomID:    room.ID,
		UserID:    uuid.New(),
		StartDate: date("2024-02-01"),
		EndDate:   date("2024-02-03"),
	})
	require.NoError(t, err)
	return created
}

func caller(role auth.Role) auth.Caller {
	return auth.Caller{ID: uuid.New(), Role: role}
}

func TestConfirm_CreatesCompletedPayment(t *testing.T) {
	repo := newFakeRepo()
	res := seedHold(t, repo, testNow)
	svc := app.NewConfirmService(repo, clock.NewFixed(testNow.Add(time.Minute)), app.NopAudit{})

	result, err := svc.Confirm(context.Background(), res.ID, "CARD", caller(auth.RoleClient))
	require.NoError(t, err)

	require.Equal(t, domain.ReservationConfirmed, result.Reservation.Status)
	require.Equal(t, domain.PaymentCompleted, result.Payment.Status)
	require.Equal(t, "CARD", result.Payment.Method)
	require.True(t, result.Payment.Amount.Equal(res.TotalAmount))
	require.Equal(t, domain.ReservationConfirmed, repo.reservations[res.ID].Status)
	require.Len(t, repo.payments, 1)
}

func TestConfirm_WithinHoldWindow(t *testing.T) {
	repo := newFakeRepo()
	res := seedHold(t, repo, testNow)

	svc := app.NewConfirmService(repo, clock.NewFixed(testNow.Add(14*time.Minute)), app.NopAudit{})
	_, err := svc.Confirm(context.Background(), res.ID, "CARD", caller(auth.RoleClient))
	require.NoError(t, err)
}

func TestConfirm_AfterHoldWindowExpired(t *testing.T) {
	repo := newFakeRepo()
	res := seedHold(t, repo, testNow)

	svc := app.NewConfirmService(repo, clock.NewFixed(testNow.Add(16*time.Minute)), app.NopAudit{})
	_, err := svc.Confirm(context.Background(), res.ID, "CARD", caller(auth.RoleClient))
	require.ErrorIs(t, err, domain.ErrHoldExpired)
	require.Empty(t, repo.payments)
	require.Equal(t, domain.ReservationPending, repo.reservations[res.ID].Status)
}

func TestConfirm_SecondAttemptRejectedWithoutDuplicatePayment(t *testing.T) {
	repo := newFakeRepo()
	res := seedHold(t, repo, testNow)
	svc := app.NewConfirmService(repo, clock.NewFixed(testNow.Add(time.Minute)), app.NopAudit{})

	_, err := svc.Confirm(context.Background(), res.ID, "CARD", caller(auth.RoleClient))
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), res.ID, "CARD", caller(auth.RoleClient))
	require.ErrorIs(t, err, domain.ErrInvalidState)
	require.Len(t, repo.payments, 1)
}

func TestConfirm_MissingPaymentMethod(t *testing.T) {
	repo := newFakeRepo()
	res := seedHold(t, repo, testNow)
	svc := app.NewConfirmService(repo, clock.NewFixed(testNow), app.NopAudit{})

	_, err := svc.Confirm(context.Background(), res.ID, "", caller(auth.RoleClient))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfirm_UnknownReservation(t *testing.T) {
	repo := newFakeRepo()
	svc := app.NewConfirmService(repo, clock.NewFixed(testNow), app.NopAudit{})

	_, err := svc.Confirm(context.Background(), uuid.New(), "CARD", caller(auth.RoleClient))
	require.ErrorIs(t, err, domain.ErrNotFound)
}
