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

// AdminCatalogService is the minimal interface needed for the admin
// resource/schedule endpoints.
type AdminCatalogService interface {
	CreateResource(ctx context.Context, in app.CreateResourceInput) (domain.Resource, error)
	ListResources(ctx context.Context) ([]domain.Resource, error)
	SetWeeklySchedule(ctx context.Context, resourceID string, in []app.ScheduleEntryInput) ([]domain.ScheduleEntry, error)
	GetWeeklySchedule(ctx context.Context, resourceID string) ([]domain.ScheduleEntry, error)
	DeactivateResource(ctx context.Context, resourceID string) error
}

// BookingCanceller is the minimal interface needed by the refund hook.
type BookingCanceller interface {
	CancelBooking(ctx context.Context, bookingID string) error
}

// HandleAdminResources returns an HTTP handler for resource creation/listing.
func HandleAdminResources(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			resources, err := svc.ListResources(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]resourceResponse, 0, len(resources))
			for _, res := range resources {
				resp = append(resp, toResourceResponse(res))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createResourceRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			resource, err := svc.CreateResource(r.Context(), app.CreateResourceInput{
				Name:      req.Name,
				Kind:      domain.ResourceKind(req.Kind),
				UnitCount: req.UnitCount,
			})
			if err != nil {
				switch err {
				case domain.ErrResourceNameRequired:
					writeError(w, http.StatusBadRequest, codeResourceNameRequired, err.Error())
				case domain.ErrInvalidResourceKind:
					writeError(w, http.StatusBadRequest, codeInvalidKind, err.Error())
				case domain.ErrInvalidUnitCount:
					writeError(w, http.StatusBadRequest, codeInvalidUnitCount, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			writeJSON(w, http.StatusCreated, toResourceResponse(resource))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminResourceByID dispatches /admin/resources/{id}/schedule and
// /admin/resources/{id}/deactivate.
func HandleAdminResourceByID(svc AdminCatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "admin" || parts[1] != "resources" || parts[2] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		resourceID := parts[2]

		switch parts[3] {
		case "schedule":
			switch r.Method {
			case http.MethodGet:
				getSchedule(w, r, svc, resourceID)
			case http.MethodPut:
				putSchedule(w, r, svc, resourceID)
			default:
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			}
		case "deactivate":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			if err := svc.DeactivateResource(r.Context(), resourceID); err != nil {
				writeCatalogError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func getSchedule(w http.ResponseWriter, r *http.Request, svc AdminCatalogService, resourceID string) {
	entries, err := svc.GetWeeklySchedule(r.Context(), resourceID)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(entries))
}

func putSchedule(w http.ResponseWriter, r *http.Request, svc AdminCatalogService, resourceID string) {
	var req []scheduleEntryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	in := make([]app.ScheduleEntryInput, 0, len(req))
	for _, e := range req {
		in = append(in, app.ScheduleEntryInput{
			Weekday: e.Weekday,
			Open:    e.Open,
			Close:   e.Close,
		})
	}

	entries, err := svc.SetWeeklySchedule(r.Context(), resourceID, in)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(entries))
}

// HandleAdminCancelBooking returns an HTTP handler for the refund-workflow
// cancellation hook: POST /admin/bookings/{id}/cancel.
func HandleAdminCancelBooking(svc BookingCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "admin" || parts[1] != "bookings" || parts[2] == "" || parts[3] != "cancel" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		if err := svc.CancelBooking(r.Context(), parts[2]); err != nil {
			switch err {
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrBookingNotFound:
				writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrInvalidSchedule:
		writeError(w, http.StatusBadRequest, codeInvalidSchedule, err.Error())
	case domain.ErrResourceNotFound:
		writeError(w, http.StatusNotFound, codeResourceNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createResourceRequest struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	UnitCount int    `json:"unit_count"`
}

type resourceResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	UnitCount int       `json:"unit_count"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toResourceResponse(res domain.Resource) resourceResponse {
	return resourceResponse{
		ID:        res.ID,
		Name:      res.Name,
		Kind:      string(res.Kind),
		UnitCount: res.UnitCount,
		Active:    res.Active,
		CreatedAt: res.CreatedAt,
	}
}

type scheduleEntryRequest struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

type scheduleEntryResponse struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

func toScheduleResponse(entries []domain.ScheduleEntry) []scheduleEntryResponse {
	resp := make([]scheduleEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, scheduleEntryResponse{
			Weekday: int(e.Weekday),
			Open:    e.Open.String(),
			Close:   e.Close.String(),
		})
	}
	return resp
}
