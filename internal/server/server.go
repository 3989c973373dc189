// Package server exposes the JSON API the browser front end drives.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"patient-education/internal/education"
	"patient-education/internal/store"
)

type Server struct {
	store      *store.Store
	education  *education.Service
	logger     *zap.Logger
	httpServer *http.Server
}

func New(st *store.Store, edu *education.Service, logger *zap.Logger) *Server {
	return &Server{store: st, education: edu, logger: logger}
}

func (s *Server) Router(maxUploadBytes int64) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		s.requestLogger(),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}),
	)
	router.MaxMultipartMemory = maxUploadBytes

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/analytics", s.handleAnalytics)
		api.GET("/consistency", s.handleConsistency)

		api.POST("/patients", s.handleCreatePatient)
		api.GET("/patients", s.handleListPatients)
		api.GET("/patients/:id", s.handleGetPatient)
		api.PUT("/patients/:id", s.handleUpdatePatient)
		api.DELETE("/patients/:id", s.handleDeletePatient)

		api.POST("/patients/:id/materials", s.handleGenerateMaterial)
		api.GET("/patients/:id/materials", s.handleListPatientMaterials)
		api.GET("/materials", s.handleListMaterials)
		api.GET("/materials/:id/download", s.handleDownloadMaterial)
		api.DELETE("/materials/:id", s.handleDeleteMaterial)

		api.GET("/patients/:id/chat", s.handleGetChat)
		api.POST("/patients/:id/chat", s.handlePostChat)
		api.DELETE("/patients/:id/chat", s.handleClearChat)

		api.POST("/injuries", s.handleAnalyzeInjury)
		api.GET("/injuries", s.handleListInjuries)
		api.GET("/injuries/:id/download", s.handleDownloadInjury)

		api.POST("/patients/:id/assessments", s.handleGenerateAssessment)
		api.GET("/patients/:id/assessments", s.handleListAssessments)
		api.POST("/assessments/:id/responses", s.handleSubmitAssessment)
	}
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) Start(addr string, maxUploadBytes int64) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(maxUploadBytes),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      180 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
