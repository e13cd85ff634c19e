package http

import (
	"encoding/json"
	"net/http"

	apperrors "banya/pkg/errors"
)

// DetailResponse is the error body shape of the customer-facing schedule
// surface: a single human-readable reason under "detail".
type DetailResponse struct {
	Detail string `json:"detail"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, data)
}

// WriteDetailError maps an error onto the public surface: the AppError's
// status code with a {"detail": ...} body. Internal causes are never leaked.
func WriteDetailError(w http.ResponseWriter, err error) {
	appErr := apperrors.AsAppError(err)

	detail := appErr.Message
	if appErr.Code == apperrors.CodeInternal {
		detail = "Internal server error"
	}

	WriteJSON(w, appErr.StatusCode(), DetailResponse{Detail: detail})
}
