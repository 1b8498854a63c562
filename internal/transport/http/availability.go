package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/app"
	"github.com/gbrmora6/roomly-reserve-space-sub001/internal/domain"
)

// AvailabilityQueries is the minimal interface needed by the public
// availability endpoints.
type AvailabilityQueries interface {
	FreeSlots(ctx context.Context, in app.FreeSlotsInput) ([]domain.Slot, error)
	IsFree(ctx context.Context, resourceID string, iv domain.Interval, quantity int) (bool, error)
}

// HandleResourceAvailability dispatches GET /resources/{id}/slots and
// GET /resources/{id}/free.
func HandleResourceAvailability(svc AvailabilityQueries, loc *time.Location) http.HandlerFunc {
	if loc == nil {
		loc = time.UTC
	}
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "resources" || parts[1] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch parts[2] {
		case "slots":
			freeSlots(w, r, svc, parts[1], loc)
		case "free":
			isFree(w, r, svc, parts[1])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func freeSlots(w http.ResponseWriter, r *http.Request, svc AvailabilityQueries, resourceID string, loc *time.Location) {
	q := r.URL.Query()

	date, err := time.ParseInLocation("2006-01-02", q.Get("date"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidDate, "date must be YYYY-MM-DD")
		return
	}

	var granularity time.Duration
	if raw := q.Get("granularity"); raw != "" {
		granularity, err = time.ParseDuration(raw)
		if err != nil || granularity <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidGranularity, "invalid granularity")
			return
		}
	}

	quantity, ok := parseQuantity(q.Get("quantity"))
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
		return
	}

	slots, err := svc.FreeSlots(r.Context(), app.FreeSlotsInput{
		ResourceID:  resourceID,
		Date:        date,
		Granularity: granularity,
		Quantity:    quantity,
	})
	if err != nil {
		writeAvailabilityError(w, err)
		return
	}

	resp := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, slotResponse{
			Start:          s.Interval.Start,
			End:            s.Interval.End,
			AvailableUnits: s.AvailableUnits,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func isFree(w http.ResponseWriter, r *http.Request, svc AvailabilityQueries, resourceID string) {
	q := r.URL.Query()

	start, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInterval, "invalid start format")
		return
	}
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInterval, "invalid end format")
		return
	}
	iv, err := domain.NewInterval(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInterval, err.Error())
		return
	}

	quantity, ok := parseQuantity(q.Get("quantity"))
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
		return
	}

	free, err := svc.IsFree(r.Context(), resourceID, iv, quantity)
	if err != nil {
		writeAvailabilityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, freeResponse{Free: free})
}

func writeAvailabilityError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrResourceNotFound:
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	case domain.ErrResourceInactive:
		writeError(w, http.StatusUnprocessableEntity, codeResourceInactive, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func parseQuantity(raw string) (int, bool) {
	if raw == "" {
		return 1, true
	}
	quantity, err := strconv.Atoi(raw)
	if err != nil || quantity <= 0 {
		return 0, false
	}
	return quantity, true
}

type slotResponse struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	AvailableUnits int       `json:"available_units"`
}

type freeResponse struct {
	Free bool `json:"free"`
}
