package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mcq-genie/mcq-service/internal/repositories"
	"github.com/mcq-genie/mcq-service/internal/services"
	"github.com/mcq-genie/mcq-service/internal/utils"
)

type HandlerManager struct {
	testHandler *TestHandler
	chatHandler *ChatHandler
	repo        repositories.Repository
}

func NewHandlerManager(
	testService services.TestService,
	chatService services.ChatService,
	exportService services.ExportService,
	repo repositories.Repository,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		testHandler: NewTestHandler(testService, exportService, validator, logger),
		chatHandler: NewChatHandler(chatService, logger),
		repo:        repo,
	}
}

// NewRouter builds the gin engine with middleware and all routes registered.
func NewRouter(hm *HandlerManager, logger utils.Logger, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	hm.SetupRoutes(router)
	return router
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", hm.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Test lifecycle routes
		tests := v1.Group("/tests")
		{
			tests.POST("", hm.testHandler.GenerateTest)
			tests.GET("", hm.testHandler.GetTestHistory)
			tests.GET("/stats", hm.testHandler.GetTestStats)
			tests.GET("/export", hm.testHandler.ExportTestHistory)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.GET("/:id/status", hm.testHandler.GetTestStatus)
			tests.GET("/:id/result", hm.testHandler.GetTestResult)
			tests.POST("/:id/answers", hm.testHandler.SubmitAnswer)
			tests.POST("/:id/submit", hm.testHandler.SubmitTest)
			tests.POST("/:id/finalize", hm.testHandler.FinalizeTest)
		}

		// Chat routes
		chat := v1.Group("/chat")
		{
			chat.POST("/sessions", hm.chatHandler.CreateChatSession)
			chat.GET("/sessions/:id/messages", hm.chatHandler.GetChatHistory)
			chat.POST("/messages", hm.chatHandler.SendChatMessage)
		}
	}
}

// HealthCheck reports service and database health
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.repo.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "mcq-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mcq-service",
	})
}
