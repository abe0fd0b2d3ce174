package apierror

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	// Orchestration failure taxonomy. Precondition codes are never retried
	// automatically and never recorded in the idempotency store.
	ErrInsufficientReserve ErrorCode = "INSUFFICIENT_RESERVE"
	ErrMissingTrustLine    ErrorCode = "MISSING_TRUST_LINE"
	ErrNotAuthorized       ErrorCode = "NOT_AUTHORIZED"
	ErrEngineRejected      ErrorCode = "ENGINE_REJECTED"
	ErrValidationTimeout   ErrorCode = "VALIDATION_TIMEOUT"
	ErrArtifactNotFound    ErrorCode = "ARTIFACT_NOT_FOUND"
)

type APIError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	// TxRef carries the transaction hash for failures where the mutation may
	// have reached the ledger (timeouts, extraction failures) so a caller can
	// reconcile manually.
	TxRef string `json:"tx_ref,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	logrus.Error(details)
	return APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewTxRefError builds an error that surfaces the underlying transaction
// reference alongside the failure code.
func NewTxRefError(code ErrorCode, message string, txRef string) APIError {
	logrus.Errorf("%s (tx %s)", message, txRef)
	return APIError{
		Code:    code,
		Message: message,
		TxRef:   txRef,
	}
}

// Code extracts the taxonomy code from an error, ErrInternalServer when the
// error did not originate from this package.
func Code(err error) ErrorCode {
	if apiErr, ok := err.(APIError); ok {
		return apiErr.Code
	}
	return ErrInternalServer
}

// IsTransient reports whether the failure is timing-classified and therefore
// eligible for the batch processor's bounded retry loop.
func IsTransient(err error) bool {
	return Code(err) == ErrValidationTimeout
}

func MapErrorToHTTPStatus(err error) int {
	if apiErr, ok := err.(APIError); ok {
		switch apiErr.Code {
		case ErrNotFound:
			return http.StatusNotFound
		case ErrConflict:
			return http.StatusConflict
		case ErrInvalidInput, ErrBadRequest:
			return http.StatusBadRequest
		case ErrInsufficientReserve, ErrMissingTrustLine, ErrEngineRejected:
			return http.StatusUnprocessableEntity
		case ErrNotAuthorized:
			return http.StatusForbidden
		case ErrValidationTimeout:
			return http.StatusGatewayTimeout
		case ErrArtifactNotFound:
			return http.StatusBadGateway
		case ErrInternalServer:
			return http.StatusInternalServerError
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
