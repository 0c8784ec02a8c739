package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/haconeco/infra-tracker/internal/domain"
)

func (s *Server) handleListNotifications(c *gin.Context) {
	unreadOnly := false
	if raw := c.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(c, domain.NewValidationError("unread", "must be a boolean"))
			return
		}
		unreadOnly = v
	}

	notifications, err := s.services.Notifications.List(c.Request.Context(), principal(c), unreadOnly)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (s *Server) handleMarkRead(c *gin.Context) {
	notification, err := s.services.Notifications.MarkRead(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}
