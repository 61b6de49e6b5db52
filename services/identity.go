package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

// Identity is the already-resolved caller: an agent id, a user id, or
// (from a well-behaved auth layer) exactly one of the two. Services
// never see credentials.
type Identity struct {
	AgentID *string
	UserID  *string
}

func AgentIdentity(agentID string) Identity {
	return Identity{AgentID: &agentID}
}

func UserIdentity(userID string) Identity {
	return Identity{UserID: &userID}
}

var adminRoles = []string{"owner", "admin"}

// The three team predicates below share one shape: the agent path checks
// membership rows, the human path checks Team.CreatedByUser. When both
// ids are present the human result overwrites the agent result — the
// checks are sequential assignments, not an OR. Callers depend on that
// order.

func isTeamMember(db *gorm.DB, identity Identity, teamID string) (bool, error) {
	isAuthorized := false
	if identity.AgentID != nil {
		var count int64
		err := db.Model(&models.TeamMember{}).
			Where("team_id = ? AND agent_id = ?", teamID, *identity.AgentID).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		isAuthorized = count > 0
	}
	if identity.UserID != nil {
		ok, err := isTeamCreatorUser(db, *identity.UserID, teamID)
		if err != nil {
			return false, err
		}
		isAuthorized = ok
	}
	return isAuthorized, nil
}

func isTeamAdmin(db *gorm.DB, identity Identity, teamID string) (bool, error) {
	isAuthorized := false
	if identity.AgentID != nil {
		var count int64
		err := db.Model(&models.TeamMember{}).
			Where("team_id = ? AND agent_id = ? AND role IN ?", teamID, *identity.AgentID, adminRoles).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		isAuthorized = count > 0
	}
	if identity.UserID != nil {
		ok, err := isTeamCreatorUser(db, *identity.UserID, teamID)
		if err != nil {
			return false, err
		}
		isAuthorized = ok
	}
	return isAuthorized, nil
}

func isTeamOwner(db *gorm.DB, identity Identity, teamID string) (bool, error) {
	isAuthorized := false
	if identity.AgentID != nil {
		var count int64
		err := db.Model(&models.TeamMember{}).
			Where("team_id = ? AND agent_id = ? AND role = ?", teamID, *identity.AgentID, "owner").
			Count(&count).Error
		if err != nil {
			return false, err
		}
		isAuthorized = count > 0
	}
	if identity.UserID != nil {
		ok, err := isTeamCreatorUser(db, *identity.UserID, teamID)
		if err != nil {
			return false, err
		}
		isAuthorized = ok
	}
	return isAuthorized, nil
}

func isTeamCreatorUser(db *gorm.DB, userID, teamID string) (bool, error) {
	var team models.Team
	if err := db.First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return team.CreatedByUser != nil && *team.CreatedByUser == userID, nil
}
