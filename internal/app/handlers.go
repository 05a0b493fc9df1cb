package app

import (
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/http/handlers"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Inbound  *handlers.InboundHandler
	Contacts *handlers.ContactsHandler
	Leads    *handlers.LeadsHandler
	Media    *handlers.MediaHandler
	Tickets  *handlers.TicketsHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, r Repos, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   handlers.NewHealthHandler(),
		Inbound:  handlers.NewInboundHandler(log, db, s.ContactResolver, s.TicketResolver, s.MessageIngest, s.MediaQueue),
		Contacts: handlers.NewContactsHandler(log, s.ContactResolver),
		Leads:    handlers.NewLeadsHandler(log, s.LeadAllocator, s.CampaignReporter),
		Media:    handlers.NewMediaHandler(log, r.Message, r.MediaJob, s.MediaQueue),
		Tickets:  handlers.NewTicketsHandler(log, r.Ticket, r.Message),
	}
}
