package http

import (
	"net/http"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
	"roomchat/pkg/errors"
	"roomchat/pkg/validation"

	"github.com/gin-gonic/gin"
)

type RoomsHandler struct {
	registry ports.RoomRegistry
}

func NewRoomsHandler(registry ports.RoomRegistry) *RoomsHandler {
	return &RoomsHandler{registry: registry}
}

// SetupRoutes expects router to be behind AuthMiddleware.
func (h *RoomsHandler) SetupRoutes(router gin.IRouter) {
	router.GET("/rooms/:room/online", h.Online)
}

// Online lists the users connected to a room, one entry per connection.
// Unknown rooms have nobody online.
func (h *RoomsHandler) Online(c *gin.Context) {
	room := c.Param("room")
	if err := validation.ValidateRoomName(room); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":   room,
		"online": h.registry.Online(domain.RoomName(room)),
	})
}
