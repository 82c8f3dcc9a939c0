package types

import (
	"errors"
	"fmt"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

var (
	// ErrInvalidConfiguration is fatal at startup: missing fields or unknown device type.
	ErrInvalidConfiguration = errors.New("invalid relay configuration")

	// ErrDeviceUnreachable means no HTTP response arrived within the read timeout.
	ErrDeviceUnreachable = errors.New("relay device unreachable")

	// ErrBadDevice means the device answered, but with an error status or an unparseable body.
	ErrBadDevice = errors.New("bad relay device response")

	ErrSlotNotMapped    = errors.New("slot is not mapped")
	ErrInvalidMapping   = errors.New("invalid slot mapping")
	ErrInvalidOperation = errors.New("invalid relay operation")
)

// DeviceHTTPError is returned when a relay device answers with an HTTP error status.
type DeviceHTTPError struct {
	Host       string
	StatusCode int
	Reason     string
}

func (e *DeviceHTTPError) Error() string {
	return fmt.Sprintf("relay device %s returned %d %s", e.Host, e.StatusCode, e.Reason)
}

func (e *DeviceHTTPError) Unwrap() error {
	return ErrBadDevice
}
