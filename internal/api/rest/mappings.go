package rest

import (
	"net/http"

	"github.com/KevinKickass/RackRelay/internal/events"
	"github.com/KevinKickass/RackRelay/internal/slots"
	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/gin-gonic/gin"
)

// mappingsChanged publishes the new mapping set and refreshes the gauge.
func (s *Server) mappingsChanged(action, slot, mapping string, all map[string]string) {
	live := 0
	for _, v := range all {
		if v != slots.Tombstone {
			live++
		}
	}
	s.lm.Metrics().MappedSlots(live)
	s.lm.Events().Publish(events.NewMappingEvent(action, slot, mapping, all))
}

// GET /mappings
func (s *Server) getMappings(c *gin.Context) {
	c.JSON(http.StatusOK, types.SlotMappings{Slots: s.lm.SlotStore().GetAll()})
}

// POST /mappings
func (s *Server) setMappings(c *gin.Context) {
	var req types.SlotMappings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "INVALID_REQUEST", "Invalid request body", err.Error())
		return
	}
	if req.Slots == nil {
		req.Slots = map[string]string{}
	}

	all, err := s.lm.SlotStore().SetAll(c.Request.Context(), req.Slots)
	if err != nil {
		respondError(c, err)
		return
	}

	s.mappingsChanged("set_all", "", "", all)
	c.JSON(http.StatusOK, types.SlotMappings{Slots: all})
}

// DELETE /mappings
func (s *Server) deleteMappings(c *gin.Context) {
	if err := s.lm.SlotStore().RemoveAll(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	s.mappingsChanged("remove_all", "", "", map[string]string{})
	c.Status(http.StatusOK)
}

// GET /mappings/:slot
func (s *Server) getMapping(c *gin.Context) {
	slot := c.Param("slot")

	mapping, err := s.lm.SlotStore().Get(slot)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{slot: mapping})
}

// POST /mappings/:slot?mapping=device:port
func (s *Server) setMapping(c *gin.Context) {
	slot := c.Param("slot")

	mapping, ok := c.GetQuery("mapping")
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, types.NewErrorResponse("SLOT_NOT_MAPPED",
			"Mapping request for slot "+slot+" did not include query param", nil))
		return
	}

	all, err := s.lm.SlotStore().Set(c.Request.Context(), slot, mapping)
	if err != nil {
		respondError(c, err)
		return
	}

	s.mappingsChanged("set", slot, mapping, all)
	c.JSON(http.StatusOK, types.SlotMappings{Slots: all})
}

// DELETE /mappings/:slot
func (s *Server) removeMapping(c *gin.Context) {
	slot := c.Param("slot")

	all, err := s.lm.SlotStore().Remove(c.Request.Context(), slot)
	if err != nil {
		respondError(c, err)
		return
	}

	s.mappingsChanged("remove", slot, slots.Tombstone, all)
	c.JSON(http.StatusOK, types.SlotMappings{Slots: all})
}
