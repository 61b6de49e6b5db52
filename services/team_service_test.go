package services

import (
	"testing"

	"github.com/johnolven/swarm/models"
)

func TestCreateTeamAgentBecomesOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	agent := seedAgent(t, db, "founder")

	team, err := svc.CreateTeam(AgentIdentity(agent.ID), CreateTeamInput{Name: "alpha"})
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	if team.Visibility != "public" {
		t.Errorf("expected default visibility public, got %q", team.Visibility)
	}

	var member models.TeamMember
	if err := db.First(&member, "team_id = ? AND agent_id = ?", team.ID, agent.ID).Error; err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if member.Role != "owner" {
		t.Errorf("expected role owner, got %q", member.Role)
	}
}

func TestCreateTeamHumanGetsNoMembershipRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	user := seedUser(t, db, "pm@example.com")

	team, err := svc.CreateTeam(UserIdentity(user.ID), CreateTeamInput{Name: "human led", Visibility: "private"})
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	if team.CreatedByUser == nil || *team.CreatedByUser != user.ID {
		t.Errorf("expected created_by_user set")
	}

	var members int64
	db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&members)
	if members != 0 {
		t.Errorf("expected no membership rows for human creator, got %d", members)
	}

	// Creator authority still works: the human can update their team.
	name := "renamed"
	if _, err := svc.UpdateTeam(team.ID, UserIdentity(user.ID), UpdateTeamInput{Name: &name}); err != nil {
		t.Fatalf("creator update failed: %v", err)
	}
}

func TestGetTeamsVisibility(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	founder := seedAgent(t, db, "founder")
	viewer := seedAgent(t, db, "viewer")

	public := seedTeam(t, db, "public team", founder)
	private := models.Team{Name: "private team", Visibility: "private", CreatedBy: &founder.ID}
	if err := db.Create(&private).Error; err != nil {
		t.Fatalf("failed to create private team: %v", err)
	}

	teams, err := svc.GetTeams(AgentIdentity(viewer.ID))
	if err != nil {
		t.Fatalf("GetTeams failed: %v", err)
	}
	if len(teams) != 1 || teams[0].ID != public.ID {
		t.Fatalf("expected only the public team, got %d teams", len(teams))
	}

	// Membership makes the private team visible.
	seedMember(t, db, &private, viewer, "member")
	teams, err = svc.GetTeams(AgentIdentity(viewer.ID))
	if err != nil {
		t.Fatalf("GetTeams failed: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("expected both teams after joining, got %d", len(teams))
	}
}

func TestUpdateTeamRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	founder := seedAgent(t, db, "founder")
	member := seedAgent(t, db, "member")
	team := seedTeam(t, db, "alpha", founder)
	seedMember(t, db, team, member, "member")

	name := "beta"
	_, err := svc.UpdateTeam(team.ID, AgentIdentity(member.ID), UpdateTeamInput{Name: &name})
	wantKind(t, err, KindForbidden)

	updated, err := svc.UpdateTeam(team.ID, AgentIdentity(founder.ID), UpdateTeamInput{Name: &name})
	if err != nil {
		t.Fatalf("UpdateTeam failed: %v", err)
	}
	if updated.Name != "beta" {
		t.Errorf("expected renamed team, got %q", updated.Name)
	}
}

func TestDeleteTeamCascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	tasks := NewTaskService(db, testLogger(), false)
	founder := seedAgent(t, db, "founder")
	admin := seedAgent(t, db, "admin")
	team := seedTeam(t, db, "alpha", founder)
	seedMember(t, db, team, admin, "admin")
	column := seedColumn(t, db, team, "To Do", 0)
	task := seedTask(t, db, team, column, "doomed")
	if _, err := tasks.ClaimTask(task.ID, founder.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	// Admins are not enough; deletion is owner-only.
	err := svc.DeleteTeam(team.ID, AgentIdentity(admin.ID))
	wantKind(t, err, KindForbidden)

	if err := svc.DeleteTeam(team.ID, AgentIdentity(founder.ID)); err != nil {
		t.Fatalf("DeleteTeam failed: %v", err)
	}

	for model, label := range map[interface{}]string{
		&models.Task{}:           "tasks",
		&models.Column{}:         "columns",
		&models.TeamMember{}:     "members",
		&models.TaskAssignment{}: "assignments",
	} {
		var count int64
		if label == "assignments" {
			db.Model(model).Where("task_id = ?", task.ID).Count(&count)
		} else {
			db.Model(model).Where("team_id = ?", team.ID).Count(&count)
		}
		if count != 0 {
			t.Errorf("%s survived team deletion", label)
		}
	}
}

func TestInviteAgentConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	founder := seedAgent(t, db, "founder")
	invitee := seedAgent(t, db, "invitee")
	team := seedTeam(t, db, "alpha", founder)

	invitation, err := svc.InviteAgentToTeam(team.ID, AgentIdentity(founder.ID), InviteInput{AgentID: &invitee.ID})
	if err != nil {
		t.Fatalf("InviteAgentToTeam failed: %v", err)
	}
	if invitation.Role != "member" {
		t.Errorf("expected default role member, got %q", invitation.Role)
	}
	if invitation.Status != "pending" {
		t.Errorf("expected pending invitation, got %q", invitation.Status)
	}

	// A second pending invitation to the same agent is refused.
	_, err = svc.InviteAgentToTeam(team.ID, AgentIdentity(founder.ID), InviteInput{AgentID: &invitee.ID})
	wantKind(t, err, KindConflict)

	// As is inviting an existing member.
	_, err = svc.InviteAgentToTeam(team.ID, AgentIdentity(founder.ID), InviteInput{AgentID: &founder.ID})
	wantKind(t, err, KindConflict)

	// Non-admins cannot invite at all.
	outsider := seedAgent(t, db, "outsider")
	_, err = svc.InviteAgentToTeam(team.ID, AgentIdentity(outsider.ID), InviteInput{AgentID: &invitee.ID})
	wantKind(t, err, KindForbidden)
}

func TestInviteByEmailLinksKnownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	founder := seedAgent(t, db, "founder")
	team := seedTeam(t, db, "alpha", founder)
	user := seedUser(t, db, "known@example.com")

	email := "known@example.com"
	invitation, err := svc.InviteAgentToTeam(team.ID, AgentIdentity(founder.ID), InviteInput{UserEmail: &email})
	if err != nil {
		t.Fatalf("InviteAgentToTeam failed: %v", err)
	}
	if invitation.UserID == nil || *invitation.UserID != user.ID {
		t.Errorf("expected invitation linked to existing user")
	}

	bad := "not-an-email"
	_, err = svc.InviteAgentToTeam(team.ID, AgentIdentity(founder.ID), InviteInput{UserEmail: &bad})
	wantKind(t, err, KindValidation)

	_, err = svc.InviteAgentToTeam(team.ID, AgentIdentity(founder.ID), InviteInput{})
	wantKind(t, err, KindValidation)
}

func TestRequestToJoinAutoAccept(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	founder := seedAgent(t, db, "founder")
	joiner := seedAgent(t, db, "joiner")
	team := seedTeam(t, db, "alpha", founder)
	if err := db.Model(team).Update("auto_accept", true).Error; err != nil {
		t.Fatalf("failed to enable auto accept: %v", err)
	}

	request, err := svc.RequestToJoinTeam(team.ID, joiner.ID, "let me in")
	if err != nil {
		t.Fatalf("RequestToJoinTeam failed: %v", err)
	}
	if request.Status != "approved" {
		t.Errorf("expected auto-approved request, got %q", request.Status)
	}
	if request.ResolvedAt == nil {
		t.Errorf("expected resolved_at set on auto accept")
	}

	var member models.TeamMember
	if err := db.First(&member, "team_id = ? AND agent_id = ?", team.ID, joiner.ID).Error; err != nil {
		t.Fatalf("membership missing after auto accept: %v", err)
	}
	if member.Role != "member" {
		t.Errorf("expected role member, got %q", member.Role)
	}

	// Now a member; asking again conflicts.
	_, err = svc.RequestToJoinTeam(team.ID, joiner.ID, "again")
	wantKind(t, err, KindConflict)
}

func TestRequestToJoinPendingAndDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	founder := seedAgent(t, db, "founder")
	joiner := seedAgent(t, db, "joiner")
	team := seedTeam(t, db, "alpha", founder)

	request, err := svc.RequestToJoinTeam(team.ID, joiner.ID, "")
	if err != nil {
		t.Fatalf("RequestToJoinTeam failed: %v", err)
	}
	if request.Status != "pending" {
		t.Errorf("expected pending request, got %q", request.Status)
	}

	_, err = svc.RequestToJoinTeam(team.ID, joiner.ID, "")
	wantKind(t, err, KindConflict)
}

func TestRemoveAgentFromTeam(t *testing.T) {
	db := newTestDB(t)
	svc := NewTeamService(db, testLogger())
	founder := seedAgent(t, db, "founder")
	member := seedAgent(t, db, "member")
	bystander := seedAgent(t, db, "bystander")
	team := seedTeam(t, db, "alpha", founder)
	seedMember(t, db, team, member, "member")
	seedMember(t, db, team, bystander, "member")

	// Plain members cannot remove others.
	err := svc.RemoveAgentFromTeam(team.ID, bystander.ID, member.ID)
	wantKind(t, err, KindForbidden)

	// But anyone may leave.
	if err := svc.RemoveAgentFromTeam(team.ID, member.ID, member.ID); err != nil {
		t.Fatalf("self removal failed: %v", err)
	}

	// Admins remove others.
	if err := svc.RemoveAgentFromTeam(team.ID, bystander.ID, founder.ID); err != nil {
		t.Fatalf("owner removing member failed: %v", err)
	}

	// The sole owner cannot leave.
	err = svc.RemoveAgentFromTeam(team.ID, founder.ID, founder.ID)
	wantKind(t, err, KindConflict)
	if err.Error() != "Cannot remove the last owner" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	// With a second owner the first may go.
	second := seedAgent(t, db, "second-owner")
	seedMember(t, db, team, second, "owner")
	if err := svc.RemoveAgentFromTeam(team.ID, founder.ID, founder.ID); err != nil {
		t.Fatalf("owner leaving with co-owner failed: %v", err)
	}
}
