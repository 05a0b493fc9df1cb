package repos

import (
	"gorm.io/gorm"

	"github.com/atendoteam/atendo-backend/internal/data/repos/engagement"
	"github.com/atendoteam/atendo-backend/internal/data/repos/jobs"
	"github.com/atendoteam/atendo-backend/internal/data/repos/leads"
	"github.com/atendoteam/atendo-backend/internal/pkg/logger"
)

type ContactRepo = engagement.ContactRepo
type ContactPhoneRepo = engagement.ContactPhoneRepo
type ContactEmailRepo = engagement.ContactEmailRepo
type TagRepo = engagement.TagRepo
type QueueRepo = engagement.QueueRepo
type TicketRepo = engagement.TicketRepo
type MessageRepo = engagement.MessageRepo

type CampaignRepo = leads.CampaignRepo
type BrokerLeadRepo = leads.BrokerLeadRepo
type AllocationRepo = leads.AllocationRepo

type MediaJobRepo = jobs.MediaJobRepo

func NewContactRepo(db *gorm.DB, baseLog *logger.Logger) ContactRepo {
	return engagement.NewContactRepo(db, baseLog)
}
func NewContactPhoneRepo(db *gorm.DB, baseLog *logger.Logger) ContactPhoneRepo {
	return engagement.NewContactPhoneRepo(db, baseLog)
}
func NewContactEmailRepo(db *gorm.DB, baseLog *logger.Logger) ContactEmailRepo {
	return engagement.NewContactEmailRepo(db, baseLog)
}
func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return engagement.NewTagRepo(db, baseLog)
}
func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return engagement.NewQueueRepo(db, baseLog)
}
func NewTicketRepo(db *gorm.DB, baseLog *logger.Logger) TicketRepo {
	return engagement.NewTicketRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return engagement.NewMessageRepo(db, baseLog)
}

func NewCampaignRepo(db *gorm.DB, baseLog *logger.Logger) CampaignRepo {
	return leads.NewCampaignRepo(db, baseLog)
}
func NewBrokerLeadRepo(db *gorm.DB, baseLog *logger.Logger) BrokerLeadRepo {
	return leads.NewBrokerLeadRepo(db, baseLog)
}
func NewAllocationRepo(db *gorm.DB, baseLog *logger.Logger) AllocationRepo {
	return leads.NewAllocationRepo(db, baseLog)
}

func NewMediaJobRepo(db *gorm.DB, baseLog *logger.Logger) MediaJobRepo {
	return jobs.NewMediaJobRepo(db, baseLog)
}
