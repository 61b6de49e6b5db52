package services

import "testing"

// The team predicates evaluate the agent path first and then let the
// human path overwrite the result. A caller presenting both identities
// gets the human verdict even when the agent one was positive.
func TestTeamPredicatesHumanResultWins(t *testing.T) {
	db := newTestDB(t)
	agent := seedAgent(t, db, "founder")
	user := seedUser(t, db, "pm@example.com")
	team := seedTeam(t, db, "alpha", agent)

	both := Identity{AgentID: &agent.ID, UserID: &user.ID}

	member, err := isTeamMember(db, both, team.ID)
	if err != nil {
		t.Fatalf("isTeamMember failed: %v", err)
	}
	if member {
		t.Errorf("human non-creator should overwrite the agent's positive membership")
	}

	admin, err := isTeamAdmin(db, both, team.ID)
	if err != nil {
		t.Fatalf("isTeamAdmin failed: %v", err)
	}
	if admin {
		t.Errorf("human non-creator should overwrite the agent's admin role")
	}

	// Flip it: the human created the team, the agent is a stranger.
	stranger := seedAgent(t, db, "stranger")
	humanTeam := seedTeam(t, db, "human led", agent)
	if err := db.Model(humanTeam).Update("created_by_user", user.ID).Error; err != nil {
		t.Fatalf("failed to set creator: %v", err)
	}

	flipped := Identity{AgentID: &stranger.ID, UserID: &user.ID}
	member, err = isTeamMember(db, flipped, humanTeam.ID)
	if err != nil {
		t.Fatalf("isTeamMember failed: %v", err)
	}
	if !member {
		t.Errorf("team creator user should pass the member check")
	}

	owner, err := isTeamOwner(db, flipped, humanTeam.ID)
	if err != nil {
		t.Fatalf("isTeamOwner failed: %v", err)
	}
	if !owner {
		t.Errorf("team creator user should pass the owner check")
	}
}

func TestIdentityConstructors(t *testing.T) {
	agent := AgentIdentity("a1")
	if agent.AgentID == nil || *agent.AgentID != "a1" || agent.UserID != nil {
		t.Errorf("unexpected agent identity: %+v", agent)
	}
	user := UserIdentity("u1")
	if user.UserID == nil || *user.UserID != "u1" || user.AgentID != nil {
		t.Errorf("unexpected user identity: %+v", user)
	}
}
