package app

import (
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type Repos struct {
	Contact      repos.ContactRepo
	ContactPhone repos.ContactPhoneRepo
	ContactEmail repos.ContactEmailRepo
	Tag          repos.TagRepo
	Queue        repos.QueueRepo
	Ticket       repos.TicketRepo
	Message      repos.MessageRepo

	Campaign   repos.CampaignRepo
	BrokerLead repos.BrokerLeadRepo
	Allocation repos.AllocationRepo

	MediaJob repos.MediaJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Contact:      repos.NewContactRepo(db, log),
		ContactPhone: repos.NewContactPhoneRepo(db, log),
		ContactEmail: repos.NewContactEmailRepo(db, log),
		Tag:          repos.NewTagRepo(db, log),
		Queue:        repos.NewQueueRepo(db, log),
		Ticket:       repos.NewTicketRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),

		Campaign:   repos.NewCampaignRepo(db, log),
		BrokerLead: repos.NewBrokerLeadRepo(db, log),
		Allocation: repos.NewAllocationRepo(db, log),

		MediaJob: repos.NewMediaJobRepo(db, log),
	}
}
