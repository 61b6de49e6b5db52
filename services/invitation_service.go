package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

type InvitationService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewInvitationService(db *gorm.DB, logger *log.Logger) *InvitationService {
	return &InvitationService{DB: db, Logger: logger}
}

// GetInvitations lists pending invitations addressed to the caller.
// Human callers get an empty list: invitation acceptance is agent-only
// for now, and the listing matches.
func (s *InvitationService) GetInvitations(identity Identity) ([]models.TeamInvitation, error) {
	if identity.AgentID == nil {
		return []models.TeamInvitation{}, nil
	}

	var invitations []models.TeamInvitation
	err := s.DB.
		Preload("Team.Members.Agent").
		Where("agent_id = ? AND status = ?", *identity.AgentID, "pending").
		Order("invited_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// AcceptInvitation marks the invitation accepted and inserts the
// membership with the invitation's stored role, both in one transaction.
// Only the invited agent may respond; any other caller, human included,
// is refused.
func (s *InvitationService) AcceptInvitation(invitationID string, identity Identity) (*models.TeamInvitation, error) {
	var invitation models.TeamInvitation
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&invitation, "id = ?", invitationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("Invitation not found")
			}
			return err
		}
		if identity.AgentID == nil || invitation.AgentID == nil || *invitation.AgentID != *identity.AgentID {
			return ForbiddenError("This invitation is not for you")
		}
		if invitation.Status != "pending" {
			return ConflictError("Invitation already processed")
		}

		now := time.Now()
		err := tx.Model(&invitation).Updates(map[string]interface{}{
			"status":       "accepted",
			"responded_at": now,
		}).Error
		if err != nil {
			return err
		}

		role := invitation.Role
		if role == "" {
			role = "member"
		}
		return tx.Create(&models.TeamMember{
			TeamID:  invitation.TeamID,
			AgentID: *identity.AgentID,
			Role:    role,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (s *InvitationService) DeclineInvitation(invitationID string, identity Identity) (*models.TeamInvitation, error) {
	var invitation models.TeamInvitation
	if err := s.DB.First(&invitation, "id = ?", invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Invitation not found")
		}
		return nil, err
	}
	if identity.AgentID == nil || invitation.AgentID == nil || *invitation.AgentID != *identity.AgentID {
		return nil, ForbiddenError("This invitation is not for you")
	}
	if invitation.Status != "pending" {
		return nil, ConflictError("Invitation already processed")
	}

	now := time.Now()
	err := s.DB.Model(&invitation).Updates(map[string]interface{}{
		"status":       "rejected",
		"responded_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (s *InvitationService) GetTeamJoinRequests(teamID string, identity Identity) ([]models.JoinRequest, error) {
	authorized, err := isTeamAdmin(s.DB, identity, teamID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ForbiddenError("Only team admins/creators can view join requests")
	}

	var requests []models.JoinRequest
	err = s.DB.Preload("Agent").
		Where("team_id = ? AND status = ?", teamID, "pending").
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// ApproveJoinRequest resolves the request and inserts the membership in
// one transaction. New joiners always come in as plain members.
func (s *InvitationService) ApproveJoinRequest(requestID string, identity Identity) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("Request not found")
			}
			return err
		}
		if request.Status != "pending" {
			return ConflictError("Request already processed")
		}

		authorized, err := isTeamAdmin(tx, identity, request.TeamID)
		if err != nil {
			return err
		}
		if !authorized {
			return ForbiddenError("Only team admins/creators can approve requests")
		}

		now := time.Now()
		err = tx.Model(&request).Updates(map[string]interface{}{
			"status":      "approved",
			"resolved_at": now,
		}).Error
		if err != nil {
			return err
		}

		return tx.Create(&models.TeamMember{
			TeamID:  request.TeamID,
			AgentID: request.AgentID,
			Role:    "member",
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *InvitationService) RejectJoinRequest(requestID string, identity Identity) (*models.JoinRequest, error) {
	var request models.JoinRequest
	if err := s.DB.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Request not found")
		}
		return nil, err
	}
	if request.Status != "pending" {
		return nil, ConflictError("Request already processed")
	}

	authorized, err := isTeamAdmin(s.DB, identity, request.TeamID)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, ForbiddenError("Only team admins/creators can reject requests")
	}

	now := time.Now()
	err = s.DB.Model(&request).Updates(map[string]interface{}{
		"status":      "rejected",
		"resolved_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}
