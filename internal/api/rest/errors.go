package rest

import (
	"errors"
	"net/http"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/gin-gonic/gin"
)

// errorStatus maps a domain error to its HTTP status, error code and message.
// InvalidOperation is matched before the device errors it may wrap.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, types.ErrSlotNotMapped):
		return http.StatusNotFound, "SLOT_NOT_MAPPED", "Slot is not mapped"
	case errors.Is(err, types.ErrInvalidOperation):
		return http.StatusBadRequest, "INVALID_OPERATION", "Invalid relay operation"
	case errors.Is(err, types.ErrInvalidMapping):
		return http.StatusBadRequest, "INVALID_MAPPING", "Invalid slot mapping"
	case errors.Is(err, types.ErrInvalidConfiguration):
		return http.StatusBadRequest, "INVALID_CONFIGURATION", "Invalid relay configuration"
	case errors.Is(err, types.ErrDeviceUnreachable):
		return http.StatusServiceUnavailable, "DEVICE_UNREACHABLE", "Relay device unreachable"
	case errors.Is(err, types.ErrBadDevice):
		return http.StatusExpectationFailed, "BAD_DEVICE", "Bad relay device response"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}

func respondError(c *gin.Context, err error) {
	status, code, message := errorStatus(err)
	c.AbortWithStatusJSON(status, types.NewErrorResponse(code, message, err.Error()))
}

func respondBadRequest(c *gin.Context, code, message string, details any) {
	c.AbortWithStatusJSON(http.StatusBadRequest, types.NewErrorResponse(code, message, details))
}
