package apiresp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type ErrorPayload struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
}

// Envelope is the shape of every JSON response under /api/v1.
type Envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
	Meta  Meta          `json:"meta"`
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	WriteLegacy(w, r, status, true, data, "")
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteLegacy(w, r, status, false, nil, msg)
}

// WriteValidation answers 400 with per-field details.
func WriteValidation(w http.ResponseWriter, r *http.Request, msg string, details interface{}) {
	WriteErrorDetails(w, r, http.StatusBadRequest, msg, details)
}

func WriteErrorDetails(w http.ResponseWriter, r *http.Request, status int, msg string, details interface{}) {
	write(w, status, Envelope{
		Meta: meta(r),
		Error: &ErrorPayload{
			Code:    codeFromStatus(status),
			Message: messageOr(msg, status),
			Details: details,
		},
	})
}

func WriteLegacy(w http.ResponseWriter, r *http.Request, status int, ok bool, data interface{}, errMsg string) {
	res := Envelope{OK: ok, Meta: meta(r)}
	if ok {
		res.Data = data
	} else {
		res.Error = &ErrorPayload{
			Code:    codeFromStatus(status),
			Message: messageOr(errMsg, status),
		}
	}
	write(w, status, res)
}

func write(w http.ResponseWriter, status int, res Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

func meta(r *http.Request) Meta {
	if r == nil {
		return Meta{}
	}
	return Meta{RequestID: middleware.GetReqID(r.Context())}
}

func messageOr(msg string, status int) string {
	if msg == "" {
		return http.StatusText(status)
	}
	return msg
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}
