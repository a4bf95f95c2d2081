package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

type reviewRefundRequest struct {
	RefundRequestID string `json:"refundRequestId" validate:"required,uuid"`
	Approve         *bool  `json:"approve" validate:"required"`
}

func (h *Handlers) ReviewRefund(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req reviewRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	requestID, _ := uuid.Parse(req.RefundRequestID)

	if _, err := h.refunds.Review(r.Context(), requestID, *req.Approve, caller); err != nil {
		status, msg := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("refund review failed: ", err)
		}
		writeError(w, status, msg)
		return
	}

	msg := "Refund rejected"
	if *req.Approve {
		msg = "Refund approved"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handlers) ListRefunds(w http.ResponseWriter, r *http.Request) {
	refunds, meta, err := h.refunds.ListRefunds(r.Context(), paginationParams(r))
	if err != nil {
		h.logger.Error("list refunds failed: ", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]refundRequestJSON, 0, len(refunds))
	for _, rr := range refunds {
		data = append(data, toRefundRequestJSON(rr))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data, "meta": meta})
}
