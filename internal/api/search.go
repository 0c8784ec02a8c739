package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haconeco/infra-tracker/internal/domain"
)

func (s *Server) handleSearch(c *gin.Context) {
	v := &domain.ValidationError{}
	limit := queryInt(c, "limit", v)
	if err := v.Err(); err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.services.Search.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
