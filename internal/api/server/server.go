package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"airtrack/internal/config"
	database "airtrack/internal/db"
	"airtrack/internal/export"
	"airtrack/internal/storage"
	"airtrack/internal/syncer"

	"airtrack/internal/api/handlers"
	"airtrack/internal/api/middleware"
)

type Server struct {
	cfg     *config.Config
	db      *database.Client
	storage *storage.Client
	sync    *syncer.Service
	loc     *time.Location
	router  *gin.Engine
}

func New(cfg *config.Config, db *database.Client, store *storage.Client, sync *syncer.Service, loc *time.Location) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		db:      db,
		storage: store,
		sync:    sync,
		loc:     loc,
		router:  gin.Default(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	// CORS Configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}

	// IMPORTANT: "Authorization" must be allowed so the frontend can send the JWT
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	// 1. Initialize Modular Handlers
	authHandler := handlers.NewAuthHandler(s.db.DB)
	submissionHandler := handlers.NewSubmissionHandler(s.db.DB, s.sync)
	playLogHandler := handlers.NewPlayLogHandler(s.db.DB, s.sync)
	statsHandler := handlers.NewStatsHandler(s.db.DB, s.loc)
	integrationHandler := handlers.NewIntegrationHandler(s.sync)
	exportHandler := handlers.NewExportHandler(export.New(s.db.DB, s.storage, s.loc), s.storage)

	// Health Check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "airtrack"})
	})

	// API Group
	v1 := s.router.Group("/api/v1")
	{
		// ==========================================
		// PUBLIC ROUTES (No Token Required)
		// ==========================================
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/leaderboard", statsHandler.Leaderboard)

		// ==========================================
		// PROTECTED ROUTES (JWT Token Required)
		// ==========================================
		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth()) // Checks for valid JWT
		{
			// --- ADMIN ONLY ---
			// Only Admins can register new staff/users.
			protected.POST("/auth/register", middleware.RequireRole("admin"), authHandler.Register)

			// --- SUBMISSIONS ---
			protected.GET("/submissions", middleware.RequireRole("manager", "viewer"), submissionHandler.ListSubmissions)
			protected.GET("/submissions/:id", middleware.RequireRole("manager", "viewer"), submissionHandler.GetSubmission)
			protected.GET("/submissions/:id/stats", middleware.RequireRole("manager", "viewer"), statsHandler.GetSubmissionStats)
			protected.POST("/submissions", middleware.RequireRole("manager"), submissionHandler.CreateSubmission)
			protected.PUT("/submissions/:id", middleware.RequireRole("manager"), submissionHandler.UpdateSubmission)
			protected.DELETE("/submissions/:id", middleware.RequireRole("manager"), submissionHandler.DeleteSubmission)
			protected.POST("/submissions/analyze", middleware.RequireRole("manager"), submissionHandler.AnalyzeUpload)

			// --- PLAY LOG ---
			protected.GET("/plays", middleware.RequireRole("manager", "viewer"), playLogHandler.ListPlays)
			protected.GET("/plays/staged", middleware.RequireRole("manager", "viewer"), playLogHandler.ListStaged)
			protected.POST("/plays/manual", middleware.RequireRole("manager"), playLogHandler.ManualLog)
			protected.POST("/plays/rematch", middleware.RequireRole("manager"), playLogHandler.Rematch)

			// --- STATISTICS ---
			protected.POST("/stats/reconcile", middleware.RequireRole("admin"), statsHandler.Reconcile)

			// --- INTEGRATION (Admin manages the platform connection) ---
			protected.POST("/integration/sync", middleware.RequireRole("manager"), integrationHandler.TriggerSync)
			protected.GET("/integration/config", middleware.RequireRole("admin"), integrationHandler.GetConfig)
			protected.POST("/integration/config/validate", middleware.RequireRole("admin"), integrationHandler.ValidateConfig)
			protected.PUT("/integration/config", middleware.RequireRole("admin"), integrationHandler.UpdateConfig)
			protected.POST("/integration/health", middleware.RequireRole("admin"), integrationHandler.CheckHealth)
			protected.POST("/integration/pause", middleware.RequireRole("admin"), integrationHandler.Pause)
			protected.POST("/integration/resume", middleware.RequireRole("admin"), integrationHandler.Resume)

			// --- REPORTS ---
			protected.POST("/reports/:year/:month", middleware.RequireRole("manager"), exportHandler.ExportMonth)
			protected.GET("/reports", middleware.RequireRole("manager", "viewer"), exportHandler.ListReports)
			protected.GET("/reports/:name", middleware.RequireRole("manager", "viewer"), exportHandler.DownloadReport)
		}
	}
}

// Start runs the server on the configured port
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
