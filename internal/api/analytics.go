package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haconeco/infra-tracker/internal/domain"
	"github.com/haconeco/infra-tracker/internal/service"
)

type saveReportRequest struct {
	Title  string `json:"title"`
	From   string `json:"from"`
	To     string `json:"to"`
	Bucket string `json:"bucket"`
}

func (s *Server) handleAnalytics(c *gin.Context) {
	input, err := portfolioInput(c.Query("from"), c.Query("to"), c.Query("bucket"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	stats, err := s.services.Analytics.Portfolio(c.Request.Context(), principal(c), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleSaveReport(c *gin.Context) {
	var req saveReportRequest
	if !s.bindJSON(c, &req) {
		return
	}
	input, err := portfolioInput(req.From, req.To, req.Bucket)
	if err != nil {
		s.respondError(c, err)
		return
	}

	report, err := s.services.Analytics.SaveReport(c.Request.Context(), principal(c), req.Title, input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleListReports(c *gin.Context) {
	reports, err := s.services.Analytics.ListReports(c.Request.Context(), principal(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) handleGetReport(c *gin.Context) {
	report, err := s.services.Analytics.GetReport(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// portfolioInput は from/to (RFC3339 または YYYY-MM-DD) と bucket を解釈する。
// 日付のみの to はその日を含むよう翌日0時の排他境界に変換する。
func portfolioInput(from, to, bucket string) (service.PortfolioInput, error) {
	v := &domain.ValidationError{}
	input := service.PortfolioInput{Bucket: bucket}
	input.From = parseTime("from", from, v)
	input.To = parseUntil("to", to, v)
	return input, v.Err()
}

// parseUntil は parseTime と同じだが、日付のみの入力は翌日0時を返す。
func parseUntil(field, raw string, v *domain.ValidationError) time.Time {
	t := parseTime(field, raw, v)
	if _, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.AddDate(0, 0, 1)
	}
	return t
}

func parseTime(field, raw string, v *domain.ValidationError) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	v.Add(field, "must be RFC3339 or YYYY-MM-DD")
	return time.Time{}
}
