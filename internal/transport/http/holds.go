package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/app"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

// HoldAcquirer is the minimal interface needed to acquire a hold.
type HoldAcquirer interface {
	Acquire(ctx context.Context, in app.AcquireInput) (domain.Hold, error)
}

// HoldReleaser is the minimal interface needed to release a hold.
type HoldReleaser interface {
	Release(ctx context.Context, holdID string) error
}

// HandleAcquireHold returns an HTTP handler for placing cart holds.
func HandleAcquireHold(svc HoldAcquirer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req acquireHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		in, code, msg := req.toInput()
		if code != "" {
			writeError(w, http.StatusBadRequest, code, msg)
			return
		}

		hold, err := svc.Acquire(r.Context(), in)
		if err != nil {
			writeAcquireError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, holdResponse{
			ID:        hold.ID,
			Status:    string(hold.Status),
			Start:     hold.Interval.Start,
			End:       hold.Interval.End,
			Quantity:  hold.Quantity,
			ExpiresAt: hold.ExpiresAt,
		})
	}
}

func writeAcquireError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidQuantity:
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case domain.ErrInvalidInterval:
		writeError(w, http.StatusBadRequest, codeInvalidInterval, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrIdempotencyKeyRequired:
		writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
	case domain.ErrResourceNotFound:
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	case domain.ErrResourceInactive:
		writeError(w, http.StatusUnprocessableEntity, codeResourceInactive, err.Error())
	case domain.ErrOutOfSchedule:
		writeError(w, http.StatusConflict, codeOutOfSchedule, err.Error())
	case domain.ErrCapacityExceeded:
		writeError(w, http.StatusConflict, codeCapacityExceeded, err.Error())
	case domain.ErrIdempotencyConflict:
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// HandleHoldByID dispatches DELETE /holds/{id} (release) and
// POST /holds/{id}/promote.
func HandleHoldByID(releaser HoldReleaser, promoter HoldPromoter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "holds" || parts[1] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		holdID := parts[1]

		switch {
		case len(parts) == 2 && r.Method == http.MethodDelete:
			releaseHold(w, r, releaser, holdID)
		case len(parts) == 3 && parts[2] == "promote" && r.Method == http.MethodPost:
			promoteHold(w, r, promoter, holdID)
		case len(parts) == 2 || (len(parts) == 3 && parts[2] == "promote"):
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func releaseHold(w http.ResponseWriter, r *http.Request, svc HoldReleaser, holdID string) {
	if err := svc.Release(r.Context(), holdID); err != nil {
		switch err {
		case domain.ErrInvalidID:
			writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
		case domain.ErrHoldNotFound:
			writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type acquireHoldRequest struct {
	ResourceID     string `json:"resource_id"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Quantity       int    `json:"quantity"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (r acquireHoldRequest) toInput() (app.AcquireInput, string, string) {
	if r.ResourceID == "" {
		return app.AcquireInput{}, codeInvalidID, "resource_id is required"
	}
	if r.IdempotencyKey == "" {
		return app.AcquireInput{}, codeIdempotencyRequired, domain.ErrIdempotencyKeyRequired.Error()
	}
	if r.Quantity <= 0 {
		return app.AcquireInput{}, codeInvalidQuantity, domain.ErrInvalidQuantity.Error()
	}
	start, err := time.Parse(time.RFC3339, r.Start)
	if err != nil {
		return app.AcquireInput{}, codeInvalidInterval, "invalid start format"
	}
	end, err := time.Parse(time.RFC3339, r.End)
	if err != nil {
		return app.AcquireInput{}, codeInvalidInterval, "invalid end format"
	}
	return app.AcquireInput{
		ResourceID:     r.ResourceID,
		Start:          start,
		End:            end,
		Quantity:       r.Quantity,
		IdempotencyKey: r.IdempotencyKey,
	}, "", ""
}

type holdResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Quantity  int       `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}
