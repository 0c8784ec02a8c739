package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haconeco/infra-tracker/internal/service"
)

type postCommentRequest struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

func (s *Server) handlePostComment(c *gin.Context) {
	var req postCommentRequest
	if !s.bindJSON(c, &req) {
		return
	}

	comment, err := s.services.Comments.Post(c.Request.Context(), principal(c), service.PostCommentInput{
		ProjectID: c.Param("id"),
		Content:   req.Content,
		ParentID:  req.ParentID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) handleThread(c *gin.Context) {
	thread, err := s.services.Comments.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

func (s *Server) handleGetComment(c *gin.Context) {
	comment, err := s.services.Comments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// handleUpvote は冪等。同じPrincipalが何度呼んでも票は1つ。
func (s *Server) handleUpvote(c *gin.Context) {
	comment, err := s.services.Comments.Upvote(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}
