package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go-crash/internal/model"
)

type Response struct {
	Status int    `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK = 200
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Error(msg string, status int) Response {
	if status == 0 {
		status = http.StatusInternalServerError
	}

	return Response{
		Status: status,
		Error:  msg,
	}
}

// FromError maps a typed engine rejection to its HTTP status, so every
// rejected request carries the specific failure kind.
func FromError(err error) Response {
	switch {
	case errors.Is(err, model.ErrRoundNotFound),
		errors.Is(err, model.ErrPlayerNotFound),
		errors.Is(err, model.ErrBetNotFound),
		errors.Is(err, model.ErrNoCurrentRound):
		return Error(err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidCurrency),
		errors.Is(err, model.ErrInvalidMultiplier),
		errors.Is(err, model.ErrMultiplierTooHigh):
		return Error(err.Error(), http.StatusBadRequest)
	case errors.Is(err, model.ErrRoundNotPending),
		errors.Is(err, model.ErrRoundNotActive),
		errors.Is(err, model.ErrDuplicateBet),
		errors.Is(err, model.ErrAlreadyCashedOut),
		errors.Is(err, model.ErrSeedNotRevealed):
		return Error(err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrInsufficientBalance):
		return Error(err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, model.ErrPriceUnavailable):
		return Error(err.Error(), http.StatusBadGateway)
	}

	return Error("internal error", http.StatusInternalServerError)
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is required", err.Field()))
		case "gt":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		case "oneof":
			errMsgs = append(errMsgs, fmt.Sprintf("field %s must be one of %s", err.Field(), err.Param()))
		default:
			errMsgs = append(errMsgs, fmt.Sprintf("field %s is invalid", err.Field()))
		}
	}

	return Response{
		Status: http.StatusBadRequest,
		Error:  strings.Join(errMsgs, ", "),
	}
}
