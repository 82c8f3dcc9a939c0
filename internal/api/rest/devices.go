package rest

import (
	"net/http"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/gin-gonic/gin"
)

func deviceView(d types.RelayDevice) gin.H {
	inverted := make([]int, 0)
	for _, r := range d.Relays() {
		if r.IsInverted() {
			inverted = append(inverted, r.Port())
		}
	}

	return gin.H{
		"deviceId":      d.DeviceID(),
		"type":          d.Type(),
		"host":          d.Host(),
		"port":          d.Port(),
		"maxPort":       d.MaxPort(),
		"invertedPorts": inverted,
	}
}

// GET /devices
func (s *Server) listDevices(c *gin.Context) {
	devices := s.lm.DeviceManager().Devices()

	response := make([]gin.H, 0, len(devices))
	for _, device := range devices {
		response = append(response, deviceView(device))
	}

	c.JSON(http.StatusOK, gin.H{
		"devices": response,
		"count":   len(response),
	})
}

// GET /devices/:id
// Adds the live port states; a failed read is reported as UNKNOWN per port.
func (s *Server) getDevice(c *gin.Context) {
	device, ok := s.lm.DeviceManager().Device(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("DEVICE_NOT_FOUND", "Device not found", c.Param("id")))
		return
	}

	view := deviceView(device)

	statuses, err := device.Status(c.Request.Context())
	if err != nil {
		statuses = make([]types.Status, device.MaxPort())
		for i := range statuses {
			statuses[i] = types.StatusUnknown
		}
		view["error"] = err.Error()
	}
	view["status"] = statuses

	c.JSON(http.StatusOK, view)
}
