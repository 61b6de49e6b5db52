package services

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/johnolven/swarm/models"
)

func newWebhookService(t *testing.T) (*WebhookService, func() int64) {
	t.Helper()
	db := newTestDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := NewWebhookService(db, logger)
	count := func() int64 {
		var n int64
		db.Model(&models.Webhook{}).Count(&n)
		return n
	}
	return svc, count
}

func TestNotifySkipsAgentsWithoutWebhookURL(t *testing.T) {
	svc, pendingCount := newWebhookService(t)
	db := svc.DB

	silent := seedAgent(t, db, "silent")
	svc.Notify(silent.ID, "task.created", map[string]interface{}{"task_id": "t1"})
	if n := pendingCount(); n != 0 {
		t.Fatalf("expected no queued webhooks for agent without URL, got %d", n)
	}

	listener := seedAgent(t, db, "listener")
	if err := db.Model(listener).Update("webhook_url", "https://example.com/hook").Error; err != nil {
		t.Fatalf("failed to set webhook url: %v", err)
	}
	svc.Notify(listener.ID, "task.created", map[string]interface{}{"task_id": "t1"})

	var webhook models.Webhook
	if err := db.First(&webhook, "agent_id = ?", listener.ID).Error; err != nil {
		t.Fatalf("expected queued webhook: %v", err)
	}
	if webhook.Status != "pending" {
		t.Errorf("expected pending status, got %q", webhook.Status)
	}
	if webhook.EventType != "task.created" {
		t.Errorf("unexpected event type %q", webhook.EventType)
	}
	if webhook.Payload["task_id"] != "t1" {
		t.Errorf("payload lost in queueing: %v", webhook.Payload)
	}
}

func TestNotifyTeamMembersExcludesActor(t *testing.T) {
	svc, _ := newWebhookService(t)
	db := svc.DB

	actor := seedAgent(t, db, "actor")
	listener := seedAgent(t, db, "listener")
	team := seedTeam(t, db, "alpha", actor)
	seedMember(t, db, team, listener, "member")
	for _, agent := range []*models.Agent{actor, listener} {
		if err := db.Model(agent).Update("webhook_url", "https://example.com/hook").Error; err != nil {
			t.Fatalf("failed to set webhook url: %v", err)
		}
	}

	svc.NotifyTeamMembers(team.ID, "task.created", map[string]interface{}{"task_id": "t1"}, actor.ID)

	var queued []models.Webhook
	if err := db.Find(&queued).Error; err != nil {
		t.Fatalf("failed to list webhooks: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected 1 queued webhook, got %d", len(queued))
	}
	if queued[0].AgentID != listener.ID {
		t.Errorf("expected only the listener notified, got %s", queued[0].AgentID)
	}
}

func TestNotifyNeverFailsTheCaller(t *testing.T) {
	svc, pendingCount := newWebhookService(t)

	// Unknown agent: logged and dropped, no panic, nothing queued.
	svc.Notify("missing-agent", "task.created", nil)
	if n := pendingCount(); n != 0 {
		t.Fatalf("expected nothing queued for unknown agent, got %d", n)
	}
}
