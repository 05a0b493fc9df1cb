package domain

import (
	"github.com/atendoteam/atendo-backend/internal/domain/engagement"
	"github.com/atendoteam/atendo-backend/internal/domain/jobs"
	"github.com/atendoteam/atendo-backend/internal/domain/leads"
)

type Contact = engagement.Contact
type ContactPhone = engagement.ContactPhone
type ContactEmail = engagement.ContactEmail
type Tag = engagement.Tag
type ContactTag = engagement.ContactTag
type Queue = engagement.Queue
type Ticket = engagement.Ticket
type Message = engagement.Message
type MessageType = engagement.MessageType
type TicketTimeline = engagement.TicketTimeline

type Campaign = leads.Campaign
type BrokerLead = leads.BrokerLead
type LeadAllocation = leads.LeadAllocation

type InboundMediaJob = jobs.InboundMediaJob

const (
	TicketStatusOpen     = engagement.TicketStatusOpen
	TicketStatusPending  = engagement.TicketStatusPending
	TicketStatusAssigned = engagement.TicketStatusAssigned
	TicketStatusClosed   = engagement.TicketStatusClosed

	DirectionInbound  = engagement.DirectionInbound
	DirectionOutbound = engagement.DirectionOutbound

	MessageTypeText     = engagement.MessageTypeText
	MessageTypeImage    = engagement.MessageTypeImage
	MessageTypeVideo    = engagement.MessageTypeVideo
	MessageTypeAudio    = engagement.MessageTypeAudio
	MessageTypeDocument = engagement.MessageTypeDocument

	MessageStatusPending   = engagement.MessageStatusPending
	MessageStatusSent      = engagement.MessageStatusSent
	MessageStatusDelivered = engagement.MessageStatusDelivered
	MessageStatusRead      = engagement.MessageStatusRead
	MessageStatusFailed    = engagement.MessageStatusFailed

	CampaignStatusDraft  = leads.CampaignStatusDraft
	CampaignStatusActive = leads.CampaignStatusActive
	CampaignStatusPaused = leads.CampaignStatusPaused
	CampaignStatusEnded  = leads.CampaignStatusEnded

	AllocationStatusAllocated = leads.AllocationStatusAllocated
	AllocationStatusContacted = leads.AllocationStatusContacted
	AllocationStatusWon       = leads.AllocationStatusWon
	AllocationStatusLost      = leads.AllocationStatusLost

	MediaJobStatusPending    = jobs.MediaJobStatusPending
	MediaJobStatusProcessing = jobs.MediaJobStatusProcessing
	MediaJobStatusCompleted  = jobs.MediaJobStatusCompleted
	MediaJobStatusFailed     = jobs.MediaJobStatusFailed
)

var TicketOpenStatuses = engagement.TicketOpenStatuses

func IsOpenStatus(status string) bool { return engagement.IsOpenStatus(status) }
