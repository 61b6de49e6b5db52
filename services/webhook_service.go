package services

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

// WebhookService queues outbound notifications. Enqueueing is the only
// thing that happens on the request path; the worker owns delivery,
// retries and failure accounting. Callers treat every method here as
// fire-and-forget: a queue error is logged, never surfaced back to the
// operation that produced the event.
type WebhookService struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewWebhookService(db *gorm.DB, logger *logrus.Logger) *WebhookService {
	return &WebhookService{DB: db, Logger: logger}
}

// Notify queues one event for one agent. Agents without a webhook URL
// are silently skipped.
func (s *WebhookService) Notify(agentID, event string, payload map[string]interface{}) {
	var agent models.Agent
	if err := s.DB.Select("id", "webhook_url").First(&agent, "id = ?", agentID).Error; err != nil {
		s.Logger.WithFields(logrus.Fields{"agent_id": agentID, "event": event}).
			WithError(err).Warn("webhook target lookup failed")
		return
	}
	if agent.WebhookURL == "" {
		return
	}

	webhook := models.Webhook{
		AgentID:   agentID,
		EventType: event,
		Payload:   payload,
		URL:       agent.WebhookURL,
		Status:    "pending",
	}
	if err := s.DB.Create(&webhook).Error; err != nil {
		s.Logger.WithFields(logrus.Fields{"agent_id": agentID, "event": event}).
			WithError(err).Error("failed to queue webhook")
	}
}

// NotifyTeamMembers queues an event for every member of a team, minus
// the optional excluded agent (usually the actor).
func (s *WebhookService) NotifyTeamMembers(teamID, event string, payload map[string]interface{}, excludeAgentID string) {
	query := s.DB.Model(&models.TeamMember{}).Where("team_id = ?", teamID)
	if excludeAgentID != "" {
		query = query.Where("agent_id <> ?", excludeAgentID)
	}

	var agentIDs []string
	if err := query.Pluck("agent_id", &agentIDs).Error; err != nil {
		s.Logger.WithFields(logrus.Fields{"team_id": teamID, "event": event}).
			WithError(err).Error("failed to list webhook recipients")
		return
	}
	for _, agentID := range agentIDs {
		s.Notify(agentID, event, payload)
	}
}
