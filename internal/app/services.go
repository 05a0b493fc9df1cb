package app

import (
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/jobs/mediaworker"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
	"github.com/atendoteam/atendo-backend/internal/realtime/bus"
	"github.com/atendoteam/atendo-backend/internal/services"
)

type Services struct {
	ContactResolver  services.ContactResolver
	TicketResolver   services.TicketResolver
	MessageIngest    services.MessageIngest
	MediaQueue       services.MediaQueue
	LeadAllocator    services.LeadAllocator
	CampaignReporter services.CampaignReporter

	MediaWorker *mediaworker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, notifier bus.Notifier) Services {
	log.Info("Wiring services...")
	contactResolver := services.NewContactResolver(db, log, r.Contact, r.ContactPhone, r.ContactEmail, r.Tag, notifier)
	ticketResolver := services.NewTicketResolver(db, log, r.Ticket, r.Queue, notifier)
	messageIngest := services.NewMessageIngest(db, log, r.Message, r.Ticket, notifier)
	mediaQueue := services.NewMediaQueue(db, log, r.MediaJob, notifier)
	leadAllocator := services.NewLeadAllocator(db, log, r.Campaign, r.BrokerLead, r.Allocation, notifier)
	campaignReporter := services.NewCampaignReporter(db, log, r.Campaign, r.Allocation)

	fetcher := mediaworker.NewHTTPFetcher(log, cfg.MediaStorageDir, cfg.MediaFetchTimeout)
	worker := mediaworker.New(log, mediaQueue, fetcher, mediaworker.Config{
		PollInterval: cfg.MediaPollInterval,
		BatchSize:    cfg.MediaBatchSize,
		MaxAttempts:  cfg.MediaMaxAttempts,
		BackoffBase:  cfg.MediaBackoffBase,
	})

	return Services{
		ContactResolver:  contactResolver,
		TicketResolver:   ticketResolver,
		MessageIngest:    messageIngest,
		MediaQueue:       mediaQueue,
		LeadAllocator:    leadAllocator,
		CampaignReporter: campaignReporter,
		MediaWorker:      worker,
	}
}
