// Package api はサービス層をHTTP(JSON)で公開する。
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haconeco/infra-tracker/internal/service"
)

// Server はHTTPハンドラを束ねる。
type Server struct {
	engine   *gin.Engine
	services *service.Services
	verifier *TokenVerifier
	logger   *slog.Logger
}

// New はルーティングとミドルウェアを設定したServerを生成する。
// gin のモードは呼び出し側で gin.SetMode により設定する。
func New(services *service.Services, verifier *TokenVerifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger(logger))
	router.Use(gin.Recovery())

	srv := &Server{
		engine:   router,
		services: services,
		verifier: verifier,
		logger:   logger,
	}
	srv.registerRoutes()
	return srv
}

// Engine は内部の gin.Engine を返す。http.Server の Handler として使う。
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	// 閲覧は匿名でも可能
	public := s.engine.Group("")
	{
		public.GET("/projects", s.handleQueryProjects)
		public.GET("/projects/:id", s.handleGetProject)
		public.GET("/projects/:id/comments", s.handleThread)
		public.GET("/projects/:id/milestones", s.handleListMilestones)
		public.GET("/comments/:id", s.handleGetComment)
		public.GET("/search", s.handleSearch)
	}

	authed := s.engine.Group("", RequireAuth(s.verifier))
	{
		authed.POST("/projects", s.handleCreateProject)
		authed.PATCH("/projects/:id/status", s.handleTransition)
		authed.PATCH("/projects/:id/progress", s.handleUpdateProgress)

		authed.POST("/projects/:id/comments", s.handlePostComment)
		authed.POST("/comments/:id/upvote", s.handleUpvote)

		authed.POST("/projects/:id/milestones", s.handleCreateMilestone)
		authed.POST("/milestones/:id/complete", s.handleCompleteMilestone)

		authed.GET("/notifications", s.handleListNotifications)
		authed.POST("/notifications/:id/read", s.handleMarkRead)

		authed.GET("/analytics", s.handleAnalytics)
		authed.POST("/analytics/reports", s.handleSaveReport)
		authed.GET("/analytics/reports", s.handleListReports)
		authed.GET("/analytics/reports/:id", s.handleGetReport)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
