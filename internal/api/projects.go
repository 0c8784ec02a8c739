package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/query"
	"github.com/haconeco/infra-tracker/internal/service"
)

type createProjectRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Type          string          `json:"type"`
	Location      domain.Location `json:"location"`
	Budget        int64           `json:"budget"`
	TimelineStart string          `json:"timeline_start"` // RFC3339 または YYYY-MM-DD
	TimelineEnd   string          `json:"timeline_end"`
	DeveloperID   string          `json:"developer_id"`
}

type transitionRequest struct {
	Status   string `json:"status"`
	Progress *int   `json:"progress"`
}

type progressRequest struct {
	Progress *int `json:"progress"`
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	v := &domain.ValidationError{}
	start := parseTime("timeline_start", req.TimelineStart, v)
	end := parseTime("timeline_end", req.TimelineEnd, v)
	if v.HasErrors() {
		// 日付の解釈エラーも他のフィールドの違反と一緒に返す。権限エラーが優先。
		if err := domain.Authorize(principal(c), domain.ActionCreateProject); err != nil {
			s.respondError(c, err)
			return
		}
		v.Merge(domain.ProjectDraft{
			Title:         req.Title,
			Description:   req.Description,
			Type:          domain.ProjectType(req.Type),
			Location:      req.Location,
			Budget:        req.Budget,
			TimelineStart: start,
			TimelineEnd:   end,
		}.Validate())
		s.respondError(c, v)
		return
	}

	project, err := s.services.Projects.Create(c.Request.Context(), principal(c), service.CreateProjectInput{
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		Location:      req.Location,
		Budget:        req.Budget,
		TimelineStart: start,
		TimelineEnd:   end,
		DeveloperID:   req.DeveloperID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) handleGetProject(c *gin.Context) {
	project, err := s.services.Projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) handleTransition(c *gin.Context) {
	var req transitionRequest
	if !s.bindJSON(c, &req) {
		return
	}
	to := domain.ProjectStatus(req.Status)
	if !to.IsValid() {
		s.respondError(c, domain.NewValidationError("status", "unknown status "+req.Status))
		return
	}

	project, err := s.services.Projects.Transition(c.Request.Context(), principal(c), c.Param("id"), to, req.Progress)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) handleUpdateProgress(c *gin.Context) {
	var req progressRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Progress == nil {
		s.respondError(c, domain.NewValidationError("progress", "is required"))
		return
	}

	project, err := s.services.Projects.UpdateProgress(c.Request.Context(), principal(c), c.Param("id"), *req.Progress)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// handleQueryProjects は ?status=&type=&state=&q=&developer_id=&limit= で絞り込む。
// 複数値はカンマ区切りまたはパラメータの繰り返しで指定する。
func (s *Server) handleQueryProjects(c *gin.Context) {
	filter := query.ProjectFilter{
		Text:        c.Query("q"),
		States:      multiValue(c, "state"),
		DeveloperID: c.Query("developer_id"),
	}

	v := &domain.ValidationError{}
	for _, raw := range multiValue(c, "status") {
		status := domain.ProjectStatus(raw)
		if !status.IsValid() {
			v.Add("status", "unknown status "+raw)
			continue
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range multiValue(c, "type") {
		typ := domain.ProjectType(raw)
		if !typ.IsValid() {
			v.Add("type", "unknown type "+raw)
			continue
		}
		filter.Types = append(filter.Types, typ)
	}
	limit := queryInt(c, "limit", v)
	if err := v.Err(); err != nil {
		s.respondError(c, err)
		return
	}

	projects, err := s.services.Projects.Query(c.Request.Context(), filter, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// multiValue は ?k=a,b&k=c を [a b c] に展開する。
func multiValue(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

// queryInt は非負整数のクエリパラメータを読む。未指定なら 0。
func queryInt(c *gin.Context, key string, v *domain.ValidationError) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		v.Add(key, "must be a non-negative integer")
		return 0
	}
	return n
}
