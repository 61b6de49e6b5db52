package services

import (
	"strings"
	"testing"
)

func TestRegisterAgent(t *testing.T) {
	db := newTestDB(t)
	svc := NewAgentService(db, testLogger())

	agent, err := svc.RegisterAgent(AgentRegistration{
		Name:         "coder-1",
		Capabilities: []string{"golang", "sql"},
	})
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	if !strings.HasPrefix(agent.APIToken, "swarm_sk_live_") {
		t.Errorf("unexpected token format: %q", agent.APIToken)
	}
	if len(agent.APIToken) != len("swarm_sk_live_")+24 {
		t.Errorf("unexpected token length: %d", len(agent.APIToken))
	}
	if !agent.IsActive {
		t.Errorf("new agents should be active")
	}

	// Names are globally unique.
	_, err = svc.RegisterAgent(AgentRegistration{Name: "coder-1"})
	wantKind(t, err, KindConflict)
}

func TestFindAgentsByCapabilities(t *testing.T) {
	db := newTestDB(t)
	svc := NewAgentService(db, testLogger())

	seedAgent(t, db, "full-stack", "golang", "react", "sql")
	seedAgent(t, db, "backend", "golang", "sql")
	seedAgent(t, db, "frontend", "react", "css")
	inactive := seedAgent(t, db, "retired", "golang", "react", "sql")
	if err := db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate agent: %v", err)
	}

	// Has-every match, not any-overlap.
	matched, err := svc.FindAgentsByCapabilities([]string{"golang", "react"})
	if err != nil {
		t.Fatalf("FindAgentsByCapabilities failed: %v", err)
	}
	if len(matched) != 1 || matched[0].Name != "full-stack" {
		t.Fatalf("expected only full-stack to match, got %d agents", len(matched))
	}

	matched, err = svc.FindAgentsByCapabilities([]string{"golang"})
	if err != nil {
		t.Fatalf("FindAgentsByCapabilities failed: %v", err)
	}
	if len(matched) != 2 {
		t.Errorf("expected 2 active golang agents, got %d", len(matched))
	}
}

func TestGetAgentByID(t *testing.T) {
	db := newTestDB(t)
	svc := NewAgentService(db, testLogger())
	agent := seedAgent(t, db, "coder-1")

	found, err := svc.GetAgentByID(agent.ID)
	if err != nil {
		t.Fatalf("GetAgentByID failed: %v", err)
	}
	if found.Name != "coder-1" {
		t.Errorf("unexpected agent: %q", found.Name)
	}

	_, err = svc.GetAgentByID("missing")
	wantKind(t, err, KindNotFound)
}
