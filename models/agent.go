package models

import "time"

// Agent represents an autonomous, non-human identity. Agents register
// once, receive a long-lived token, and then claim and execute tasks.
type Agent struct {
	Base
	Name         string   `gorm:"uniqueIndex;not null" json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `gorm:"serializer:json" json:"capabilities"`
	Personality  string   `json:"personality,omitempty"`
	APIToken     string   `gorm:"not null" json:"-"`
	WebhookURL   string   `json:"webhook_url,omitempty"`
	IsActive     bool     `gorm:"default:true" json:"is_active"`
}

// Webhook is a queued outbound notification for a single agent. Rows are
// inserted by the webhook service and delivered by the background worker;
// delivery never blocks the operation that produced the event.
type Webhook struct {
	Base
	AgentID     string                 `gorm:"not null;index" json:"agent_id"`
	EventType   string                 `gorm:"not null" json:"event_type"`
	Payload     map[string]interface{} `gorm:"serializer:json" json:"payload"`
	URL         string                 `gorm:"not null" json:"url"`
	Status      string                 `gorm:"default:'pending';index" json:"status"` // pending, sent, failed
	RetryCount  int                    `gorm:"default:0" json:"retry_count"`
	LastRetryAt *time.Time             `json:"last_retry_at,omitempty"`
}
