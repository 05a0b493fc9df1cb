package app

import (
	"github.com/gin-gonic/gin"

	"github.com/atendoteam/atendo-backend/internal/server"
)

func wireRouter(cfg Config, h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AllowOrigins:    cfg.AllowOrigins,
		HealthHandler:   h.Health,
		InboundHandler:  h.Inbound,
		ContactsHandler: h.Contacts,
		LeadsHandler:    h.Leads,
		MediaHandler:    h.Media,
		TicketsHandler:  h.Tickets,
	})
}
