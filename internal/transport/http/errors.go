package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidDate          = "invalid_date"
	codeInvalidInterval      = "invalid_interval"
	codeInvalidGranularity   = "invalid_granularity"
	codeInvalidID            = "invalid_id"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidKind          = "invalid_resource_kind"
	codeInvalidUnitCount     = "invalid_unit_count"
	codeInvalidSchedule      = "invalid_schedule"
	codeResourceNameRequired = "resource_name_required"
	codeResourceNotFound     = "resource_not_found"
	codeResourceInactive     = "resource_inactive"
	codeOutOfSchedule        = "out_of_schedule"
	codeCapacityExceeded     = "capacity_exceeded"
	codeHoldNotFound         = "hold_not_found"
	codeHoldAlreadyTerminal  = "hold_already_terminal"
	codeBookingNotFound      = "booking_not_found"
	codeIdempotencyRequired  = "idempotency_key_required"
	codeIdempotencyConflict  = "idempotency_conflict"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
