package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"fedchat/pkg/fault"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Code    fault.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := fault.CodeOf(err)
	var fe *fault.Error
	msg := err.Error()
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	writeJSON(w, statusFor(code), errorBody{Code: code, Message: msg})
}

func statusFor(code fault.Code) int {
	switch code {
	case fault.CodeInvalidArgument:
		return http.StatusBadRequest
	case fault.CodeUnauthenticated:
		return http.StatusUnauthorized
	case fault.CodeSignatureInvalid:
		return http.StatusForbidden
	case fault.CodeNotFound:
		return http.StatusNotFound
	case fault.CodeAlreadyExists:
		return http.StatusConflict
	case fault.CodeIdentityUnresolved:
		return http.StatusUnprocessableEntity
	case fault.CodeTransportFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, fault.InvalidArg("malformed request body"))
		return false
	}
	return true
}
