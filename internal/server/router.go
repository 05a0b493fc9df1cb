package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/atendoteam/atendo-backend/internal/http/handlers"
)

type RouterConfig struct {
	AllowOrigins []string

	HealthHandler   *handlers.HealthHandler
	InboundHandler  *handlers.InboundHandler
	ContactsHandler *handlers.ContactsHandler
	LeadsHandler    *handlers.LeadsHandler
	MediaHandler    *handlers.MediaHandler
	TicketsHandler  *handlers.TicketsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/webhooks/inbound", cfg.InboundHandler.ReceiveEvent)

		api.PUT("/contacts/:id/primary-phone", cfg.ContactsHandler.SetPrimaryPhone)
		api.PUT("/contacts/:id/primary-email", cfg.ContactsHandler.SetPrimaryEmail)

		api.POST("/leads/batch", cfg.LeadsHandler.AllocateBatch)
		api.PATCH("/allocations/:id", cfg.LeadsHandler.UpdateAllocationStatus)
		api.GET("/campaigns/:id/metrics", cfg.LeadsHandler.CampaignMetrics)

		api.GET("/tickets/:id/messages", cfg.TicketsHandler.ListMessages)

		api.GET("/messages/:id/media-job", cfg.MediaHandler.GetJob)
		api.POST("/messages/:id/media-job/retry", cfg.MediaHandler.RetryJob)
	}

	return router
}
