package api

import (
	"fmt"
	"net/http"
	"strings"

	"agentmarket/server/internal/agents"
	"agentmarket/server/internal/auth"
	"agentmarket/server/internal/events"
	"agentmarket/server/internal/models"
	"agentmarket/server/internal/payments"
	"agentmarket/server/internal/processor"
	"agentmarket/server/internal/profiles"
	"agentmarket/server/internal/reviews"
	"agentmarket/server/internal/storage"
	"agentmarket/server/internal/tasks"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server wraps the REST API server
type Server struct {
	handler *Handler
	router  *gin.Engine
	hub     *events.Hub
}

// Handler contains API handlers
type Handler struct {
	db        *gorm.DB
	tasks     *tasks.Service
	payments  *payments.Simulator
	processor *processor.Processor
	reviews   *reviews.Service
	agents    *agents.Service
	profiles  *profiles.Service
	storage   *storage.Storage
	jwt       *auth.JWTManager
	hub       *events.Hub
}

// Deps carries the service dependencies for the API server.
type Deps struct {
	DB        *gorm.DB
	Tasks     *tasks.Service
	Payments  *payments.Simulator
	Processor *processor.Processor
	Reviews   *reviews.Service
	Agents    *agents.Service
	Profiles  *profiles.Service
	Storage   *storage.Storage
	JWT       *auth.JWTManager
	Hub       *events.Hub
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	handler := &Handler{
		db:        deps.DB,
		tasks:     deps.Tasks,
		payments:  deps.Payments,
		processor: deps.Processor,
		reviews:   deps.Reviews,
		agents:    deps.Agents,
		profiles:  deps.Profiles,
		storage:   deps.Storage,
		jwt:       deps.JWT,
		hub:       deps.Hub,
	}

	// gin.New() instead of gin.Default(): the custom logger below skips
	// the websocket endpoint, which would otherwise flood the access log
	router := gin.New()

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		if strings.HasPrefix(param.Path, "/ws/") {
			return ""
		}
		return fmt.Sprintf("[%s] %s %s %d %s %s \"%s\" %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.ClientIP,
			param.Method,
			param.StatusCode,
			param.Latency,
			param.Path,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Task update stream (token via query parameter; browsers cannot set
	// headers on websocket upgrades)
	router.GET("/ws/tasks/:id", handler.TaskSocket)

	api := router.Group("/api/v1")
	{
		// Public auth endpoints
		api.POST("/auth/register", handler.Register)
		api.POST("/auth/login", handler.Login)

		// Public catalog
		api.GET("/agents", handler.ListAgents)
		api.GET("/agents/:id/reviews", handler.ListAgentReviews)

		protected := api.Group("")
		protected.Use(auth.RequireAuth(deps.JWT))
		{
			protected.GET("/auth/me", handler.Me)
			protected.POST("/auth/refresh", handler.Refresh)

			// Tasks
			protected.GET("/tasks", handler.ListTasks)
			protected.POST("/tasks", handler.CreateTask)
			protected.GET("/tasks/:id", handler.GetTask)
			protected.GET("/tasks/:id/revisions", handler.ListTaskRevisions)
			protected.POST("/tasks/:id/revision", handler.RequestRevision)
			protected.POST("/tasks/:id/cancel", handler.CancelTask)
			protected.POST("/tasks/:id/process", handler.ProcessTask)
			protected.PATCH("/tasks/:id/output-format", handler.UpdateOutputFormat)
			protected.PATCH("/tasks/:id/notification-channel", handler.UpdateNotificationChannel)

			// Reviews
			protected.POST("/tasks/:id/review", handler.SubmitReview)
			protected.GET("/tasks/:id/review", handler.GetTaskReview)

			// Payments
			protected.POST("/payments/initiate", handler.InitiatePayment)
			protected.POST("/payments/verify", handler.VerifyPayment)

			// Attachments
			protected.POST("/attachments", handler.UploadAttachment)
			protected.GET("/attachments/:id", handler.DownloadAttachment)

			// Agent detail (unapproved visibility depends on the caller)
			protected.GET("/agents/:id", handler.GetAgent)

			// Developer endpoints
			developer := protected.Group("/developer")
			{
				developer.POST("/agents", handler.CreateAgent)
				developer.GET("/agents", handler.ListMyAgents)
			}

			// Admin endpoints
			admin := protected.Group("/admin")
			admin.Use(auth.RequireRole(models.RoleAdmin))
			{
				admin.GET("/stats", handler.GetPlatformStats)
				admin.GET("/agents/pending", handler.ListPendingAgents)
				admin.POST("/agents/:id/approve", handler.ApproveAgent)
				admin.POST("/agents/:id/reject", handler.RejectAgent)
				admin.PATCH("/profiles/:id/role", handler.UpdateProfileRole)
			}
		}
	}

	// Serve static files (web app) - must be last
	ServeStaticFiles(router)

	return &Server{
		handler: handler,
		router:  router,
		hub:     deps.Hub,
	}
}

// GetRouter returns the router
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
