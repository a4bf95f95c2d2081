package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations/internal/app"
	"github.com/robertarktes/hotel-reservations/internal/domain"
	"github.com/robertarktes/hotel-reservations/internal/idempotency"
)

type createReservationRequest struct {
	RoomID      string  `json:"roomId" validate:"required,uuid"`
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	TotalAmount *string `json:"totalAmount"`
}

// CreateReservation places a hold. Repeated submissions with the same
// Idempotency-Key replay the stored response.
func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Replay keys are scoped per caller; one user's key never resolves to
	// another user's stored response.
	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		key = caller.ID.String() + ":" + key
	}
	if existing, err := h.idemp.Get(r.Context(), key); err != nil {
		h.logger.Error("idempotency lookup failed: ", err)
	} else if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	roomID, _ := uuid.Parse(req.RoomID)
	start, _ := time.Parse(dateLayout, req.StartDate)
	end, _ := time.Parse(dateLayout, req.EndDate)
	amount, err := parseAmount(req.TotalAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid total amount")
		return
	}

	created, err := h.holds.CreateHold(r.Context(), app.CreateHoldInput{
		RoomID:      roomID,
		UserID:      caller.ID,
		StartDate:   start,
		EndDate:     end,
		TotalAmount: amount,
	})
	if err != nil {
		status, msg := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("create hold failed: ", err)
		}
		writeError(w, status, msg)
		return
	}

	resp := map[string]interface{}{
		"reservation":   toReservationJSON(created),
		"holdExpiresAt": created.HoldExpiresAt.Format(time.RFC3339),
		"message":       fmt.Sprintf("Hold active for %d minutes.", int(h.holds.HoldTTL().Minutes())),
	}
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data}); err != nil {
		h.logger.Error("idempotency store failed: ", err)
	}
}

type confirmReservationRequest struct {
	ReservationID string `json:"reservationId" validate:"required,uuid"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

func (h *Handlers) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req confirmReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	reservationID, _ := uuid.Parse(req.ReservationID)

	result, err := h.confirms.Confirm(r.Context(), reservationID, req.PaymentMethod, caller)
	if err != nil {
		status, msg := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("confirm failed: ", err)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reservation": toReservationJSON(result.Reservation),
		"payment":     toPaymentJSON(result.Payment),
	})
}

type cancelReservationRequest struct {
	ReservationID string `json:"reservationId" validate:"required,uuid"`
	Reason        string `json:"reason"`
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req cancelReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing reservationId")
		return
	}
	reservationID, _ := uuid.Parse(req.ReservationID)

	result, err := h.cancels.RequestCancellation(r.Context(), reservationID, caller, req.Reason)
	if err != nil {
		status, msg := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("cancellation failed: ", err)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reservation":   toReservationJSON(result.Reservation),
		"refundRequest": toRefundRequestJSON(result.RefundRequest),
	})
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var status *domain.ReservationStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.ReservationStatus(raw)
		status = &s
	}

	reservations, meta, err := h.queries.ListReservations(r.Context(), caller, status, paginationParams(r))
	if err != nil {
		h.logger.Error("list reservations failed: ", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]reservationJSON, 0, len(reservations))
	for _, res := range reservations {
		data = append(data, toReservationJSON(res))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data, "meta": meta})
}

func (h *Handlers) RoomAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room ID")
		return
	}

	ranges, err := h.queries.RoomAvailability(r.Context(), roomID)
	if err != nil {
		h.logger.Error("room availability failed: ", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type rangeJSON struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	out := make([]rangeJSON, 0, len(ranges))
	for _, dr := range ranges {
		out = append(out, rangeJSON{StartDate: dr.Start.Format(dateLayout), EndDate: dr.End.Format(dateLayout)})
	}
	writeJSON(w, http.StatusOK, out)
}

func parseIntQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
