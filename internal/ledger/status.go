package ledger

import (
	"errors"
	"net/http"
)

// HTTPStatus maps a ledger error to the response status the handlers use.
// Unknown errors fall through to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoScore):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrNotProgramOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrOutOfRange),
		errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ErrInvalidRecipient),
		errors.Is(err, ErrAmountOutOfRange),
		errors.Is(err, ErrNonTransferable):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyActive),
		errors.Is(err, ErrAlreadyApproved),
		errors.Is(err, ErrAlreadyRepaid),
		errors.Is(err, ErrNotApproved),
		errors.Is(err, ErrAlreadyConfigured),
		errors.Is(err, ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrPaused),
		errors.Is(err, ErrPublishingPaused),
		errors.Is(err, ErrOracleUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrStaleScore),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientAllowance),
		errors.Is(err, ErrInsufficientReputation),
		errors.Is(err, ErrInsufficientScore):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
