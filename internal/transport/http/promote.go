package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/app"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// HoldPromoter is the minimal interface needed to promote a hold into a
// booking at checkout completion.
type HoldPromoter interface {
	Promote(ctx context.Context, in app.PromoteInput) (app.PromoteResult, error)
}

func promoteHold(w http.ResponseWriter, r *http.Request, svc HoldPromoter, holdID string) {
	key := r.Header.Get(idempotencyHeader)
	if key == "" {
		writeError(w, http.StatusBadRequest, codeIdempotencyRequired, domain.ErrIdempotencyKeyRequired.Error())
		return
	}

	res, err := svc.Promote(r.Context(), app.PromoteInput{
		HoldID:         holdID,
		IdempotencyKey: key,
	})
	if err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrIdempotencyKeyRequired:
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
		case domain.ErrHoldNotFound:
			writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
		case domain.ErrHoldAlreadyTerminal:
			writeError(w, http.StatusConflict, codeHoldAlreadyTerminal, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, bookingResponse{
		ID:         res.Booking.ID,
		HoldID:     res.Booking.HoldID,
		ResourceID: res.Booking.ResourceID,
		Start:      res.Booking.Interval.Start,
		End:        res.Booking.Interval.End,
		Quantity:   res.Booking.Quantity,
		Status:     string(res.Booking.Status),
		CreatedAt:  res.Booking.CreatedAt,
	})
}

type bookingResponse struct {
	ID         string    `json:"id"`
	HoldID     string    `json:"hold_id"`
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
