package services

import (
	"errors"
	"log"
	"time"

	"github.com/badoux/checkmail"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

type TeamService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTeamService(db *gorm.DB, logger *log.Logger) *TeamService {
	return &TeamService{DB: db, Logger: logger}
}

type CreateTeamInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Visibility  string `json:"visibility" validate:"omitempty,oneof=public private"`
	AutoAccept  bool   `json:"auto_accept"`
}

type UpdateTeamInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  *string `json:"visibility" validate:"omitempty,oneof=public private"`
	AutoAccept  *bool   `json:"auto_accept"`
}

type InviteInput struct {
	AgentID   *string `json:"agent_id"`
	UserEmail *string `json:"user_email"`
	Role      string  `json:"role" validate:"omitempty,oneof=owner admin member"`
}

// CreateTeam inserts the team and, for agent creators, the owner
// membership in one transaction. Human creators get no membership row;
// their authority is carried by CreatedByUser.
func (s *TeamService) CreateTeam(identity Identity, input CreateTeamInput) (*models.Team, error) {
	visibility := input.Visibility
	if visibility == "" {
		visibility = "public"
	}

	team := models.Team{
		Name:          input.Name,
		Description:   input.Description,
		Visibility:    visibility,
		AutoAccept:    input.AutoAccept,
		CreatedBy:     identity.AgentID,
		CreatedByUser: identity.UserID,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		if identity.AgentID != nil {
			return tx.Create(&models.TeamMember{
				TeamID:  team.ID,
				AgentID: *identity.AgentID,
				Role:    "owner",
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetTeams returns public teams plus teams the caller belongs to (agent)
// or created (human). The clauses are independent ORs over one table, so
// a team matching several of them still appears once.
func (s *TeamService) GetTeams(identity Identity) ([]models.Team, error) {
	cond := s.DB.Where("visibility = ?", "public")
	if identity.AgentID != nil {
		memberOf := s.DB.Model(&models.TeamMember{}).
			Select("team_id").
			Where("agent_id = ?", *identity.AgentID)
		cond = cond.Or("id IN (?)", memberOf)
	}
	if identity.UserID != nil {
		cond = cond.Or("created_by_user = ?", *identity.UserID)
	}

	var teams []models.Team
	err := s.DB.Preload("Members.Agent").
		Where(cond).
		Order("created_at DESC").
		Find(&teams).Error
	return teams, err
}

func (s *TeamService) GetTeamByID(teamID string) (*models.Team, error) {
	var team models.Team
	err := s.DB.
		Preload("Members.Agent").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(20)
		}).
		Preload("Invitations", "status = ?", "pending").
		First(&team, "id = ?", teamID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Team not found")
		}
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) UpdateTeam(teamID string, identity Identity, input UpdateTeamInput) (*models.Team, error) {
	authorized, err := isTeamAdmin(s.DB, identity, teamID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ForbiddenError("Only team admins can update team settings")
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Visibility != nil {
		updates["visibility"] = *input.Visibility
	}
	if input.AutoAccept != nil {
		updates["auto_accept"] = *input.AutoAccept
	}

	var team models.Team
	if err := s.DB.First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Team not found")
		}
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.DB.Model(&team).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &team, nil
}

// DeleteTeam removes the team and everything it owns. The cascade is
// explicit so it behaves the same on every dialect AutoMigrate targets.
func (s *TeamService) DeleteTeam(teamID string, identity Identity) error {
	authorized, err := isTeamOwner(s.DB, identity, teamID)
	if err != nil {
		return err
	}
	if !authorized {
		return ForbiddenError("Only team owner can delete team")
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var taskIDs []string
		if err := tx.Model(&models.Task{}).Where("team_id = ?", teamID).Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskAssignment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Message{}).Error; err != nil {
				return err
			}
		}
		for _, model := range []interface{}{
			&models.Task{}, &models.Column{}, &models.TeamMember{},
			&models.TeamInvitation{}, &models.JoinRequest{},
		} {
			if err := tx.Where("team_id = ?", teamID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Team{}, "id = ?", teamID).Error
	})
}

// InviteAgentToTeam creates a pending invitation addressed to an agent id
// or a human email, whichever the caller supplied.
func (s *TeamService) InviteAgentToTeam(teamID string, identity Identity, input InviteInput) (*models.TeamInvitation, error) {
	authorized, err := isTeamAdmin(s.DB, identity, teamID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ForbiddenError("Only team admins/creators can invite members")
	}

	role := input.Role
	if role == "" {
		role = "member"
	}

	if input.AgentID != nil {
		var memberCount int64
		err := s.DB.Model(&models.TeamMember{}).
			Where("team_id = ? AND agent_id = ?", teamID, *input.AgentID).
			Count(&memberCount).Error
		if err != nil {
			return nil, err
		}
		if memberCount > 0 {
			return nil, ConflictError("Agent is already a team member")
		}

		var pending int64
		err = s.DB.Model(&models.TeamInvitation{}).
			Where("team_id = ? AND agent_id = ? AND status = ?", teamID, *input.AgentID, "pending").
			Count(&pending).Error
		if err != nil {
			return nil, err
		}
		if pending > 0 {
			return nil, ConflictError("Invitation already sent to this agent")
		}

		invitation := models.TeamInvitation{
			TeamID:  teamID,
			AgentID: input.AgentID,
			Role:    role,
			Status:  "pending",
		}
		if err := s.DB.Create(&invitation).Error; err != nil {
			return nil, err
		}
		return &invitation, nil
	}

	if input.UserEmail != nil {
		if err := checkmail.ValidateFormat(*input.UserEmail); err != nil {
			return nil, ValidationError("Invalid email address")
		}

		var pending int64
		err := s.DB.Model(&models.TeamInvitation{}).
			Where("team_id = ? AND user_email = ? AND status = ?", teamID, *input.UserEmail, "pending").
			Count(&pending).Error
		if err != nil {
			return nil, err
		}
		if pending > 0 {
			return nil, ConflictError("Invitation already sent to this email")
		}

		invitation := models.TeamInvitation{
			TeamID:    teamID,
			UserEmail: input.UserEmail,
			Role:      role,
			Status:    "pending",
		}
		var user models.User
		if err := s.DB.First(&user, "email = ?", *input.UserEmail).Error; err == nil {
			invitation.UserID = &user.ID
		}
		if err := s.DB.Create(&invitation).Error; err != nil {
			return nil, err
		}
		return &invitation, nil
	}

	return nil, ValidationError("Must provide either agent_id or user_email")
}

// RequestToJoinTeam files a join request. On auto-accept teams the
// request is written already approved and the membership is created in
// the same transaction, so the caller never observes a pending state.
func (s *TeamService) RequestToJoinTeam(teamID, agentID, message string) (*models.JoinRequest, error) {
	var memberCount int64
	err := s.DB.Model(&models.TeamMember{}).
		Where("team_id = ? AND agent_id = ?", teamID, agentID).
		Count(&memberCount).Error
	if err != nil {
		return nil, err
	}
	if memberCount > 0 {
		return nil, ConflictError("Already a team member")
	}

	var pending int64
	err = s.DB.Model(&models.JoinRequest{}).
		Where("team_id = ? AND agent_id = ? AND status = ?", teamID, agentID, "pending").
		Count(&pending).Error
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, ConflictError("Join request already pending")
	}

	var team models.Team
	if err := s.DB.First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Team not found")
		}
		return nil, err
	}

	if team.AutoAccept {
		now := time.Now()
		request := models.JoinRequest{
			TeamID:     teamID,
			AgentID:    agentID,
			Message:    message,
			Status:     "approved",
			ResolvedAt: &now,
		}
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&request).Error; err != nil {
				return err
			}
			return tx.Create(&models.TeamMember{
				TeamID:  teamID,
				AgentID: agentID,
				Role:    "member",
			}).Error
		})
		if err != nil {
			return nil, err
		}
		return &request, nil
	}

	request := models.JoinRequest{
		TeamID:  teamID,
		AgentID: agentID,
		Message: message,
		Status:  "pending",
	}
	if err := s.DB.Create(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// RemoveAgentFromTeam removes a membership. Members may remove
// themselves; removing anyone else takes admin or owner. The last-owner
// guard fires only on owner self-removal.
func (s *TeamService) RemoveAgentFromTeam(teamID, agentIDToRemove, removedByID string) error {
	var remover models.TeamMember
	err := s.DB.First(&remover, "team_id = ? AND agent_id = ?", teamID, removedByID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ForbiddenError("Not a team member")
		}
		return err
	}

	canRemove := remover.Role == "owner" || remover.Role == "admin" || agentIDToRemove == removedByID
	if !canRemove {
		return ForbiddenError("Only admins can remove other members")
	}

	if remover.Role == "owner" {
		var ownerCount int64
		err := s.DB.Model(&models.TeamMember{}).
			Where("team_id = ? AND role = ?", teamID, "owner").
			Count(&ownerCount).Error
		if err != nil {
			return err
		}
		if ownerCount == 1 && agentIDToRemove == removedByID {
			return ConflictError("Cannot remove the last owner")
		}
	}

	return s.DB.Where("team_id = ? AND agent_id = ?", teamID, agentIDToRemove).
		Delete(&models.TeamMember{}).Error
}
