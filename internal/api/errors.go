package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/natread/pkg/iasi"
	"github.com/samcharles93/natread/pkg/nat"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string { return e.msg }

func (e invalidRequestError) Unwrap() error { return ErrInvalidRequest }

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// statusOf maps decoder and request errors onto HTTP statuses.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, nat.ErrInvalidSelection),
		errors.Is(err, nat.ErrThresholdTooSmall),
		errors.Is(err, nat.ErrDuplicatePartName),
		errors.Is(err, iasi.ErrUnknownProduct):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, nat.ErrRecordNotFound):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, iasi.ErrNotAvailable):
		return http.StatusUnprocessableEntity, "not_available_error"
	case errors.Is(err, nat.ErrTruncatedHeader),
		errors.Is(err, nat.ErrTruncatedStream),
		errors.Is(err, nat.ErrTruncatedField),
		errors.Is(err, nat.ErrUnknownRecordClass),
		errors.Is(err, nat.ErrMissingAuxiliary),
		errors.Is(err, nat.ErrDuplicateAuxiliary),
		errors.Is(err, nat.ErrUndecodedAuxiliary),
		errors.Is(err, nat.ErrInvalidMPHR),
		errors.Is(err, nat.ErrInvalidRecordSize),
		errors.Is(err, nat.ErrNoProduct):
		return http.StatusUnprocessableEntity, "decode_error"
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "too_large_error"
	}
	return http.StatusInternalServerError, "server_error"
}
