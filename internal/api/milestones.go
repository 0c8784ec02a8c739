package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haconeco/infra-tracker/internal/domain"
)

type createMilestoneRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TargetDate  time.Time `json:"target_date"`
}

func (s *Server) handleCreateMilestone(c *gin.Context) {
	var req createMilestoneRequest
	if !s.bindJSON(c, &req) {
		return
	}

	milestone, err := s.services.Milestones.Create(c.Request.Context(), principal(c), c.Param("id"), domain.MilestoneDraft{
		Title:       req.Title,
		Description: req.Description,
		TargetDate:  req.TargetDate,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

func (s *Server) handleListMilestones(c *gin.Context) {
	milestones, err := s.services.Milestones.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestones)
}

func (s *Server) handleCompleteMilestone(c *gin.Context) {
	milestone, err := s.services.Milestones.Complete(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}
