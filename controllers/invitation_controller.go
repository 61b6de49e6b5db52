package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/services"
)

type InvitationController struct {
	Invitations *services.InvitationService
	Webhooks    *services.WebhookService
	Logger      *log.Logger
}

func NewInvitationController(db *gorm.DB, logger *log.Logger, webhookLogger *logrus.Logger) *InvitationController {
	return &InvitationController{
		Invitations: services.NewInvitationService(db, logger),
		Webhooks:    services.NewWebhookService(db, webhookLogger),
		Logger:      logger,
	}
}

func (ic *InvitationController) GetInvitations(c *fiber.Ctx) error {
	invitations, err := ic.Invitations.GetInvitations(identityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": invitations})
}

// AcceptInvitation joins the caller to the team and lets the existing
// members know.
func (ic *InvitationController) AcceptInvitation(c *fiber.Ctx) error {
	identity := identityFrom(c)
	invitation, err := ic.Invitations.AcceptInvitation(c.Params("id"), identity)
	if err != nil {
		return respondError(c, err)
	}

	if identity.AgentID != nil {
		ic.Webhooks.NotifyTeamMembers(invitation.TeamID, "team.join_approved", map[string]interface{}{
			"team_id":  invitation.TeamID,
			"agent_id": *identity.AgentID,
		}, *identity.AgentID)
	}

	return c.JSON(fiber.Map{"success": true, "data": invitation})
}

func (ic *InvitationController) DeclineInvitation(c *fiber.Ctx) error {
	invitation, err := ic.Invitations.DeclineInvitation(c.Params("id"), identityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": invitation})
}

func (ic *InvitationController) GetTeamJoinRequests(c *fiber.Ctx) error {
	requests, err := ic.Invitations.GetTeamJoinRequests(c.Params("id"), identityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": requests})
}

// ApproveJoinRequest admits the requester and notifies them directly.
func (ic *InvitationController) ApproveJoinRequest(c *fiber.Ctx) error {
	request, err := ic.Invitations.ApproveJoinRequest(c.Params("id"), identityFrom(c))
	if err != nil {
		return respondError(c, err)
	}

	ic.Webhooks.Notify(request.AgentID, "team.join_approved", map[string]interface{}{
		"team_id":    request.TeamID,
		"request_id": request.ID,
	})

	return c.JSON(fiber.Map{"success": true, "data": request})
}

func (ic *InvitationController) RejectJoinRequest(c *fiber.Ctx) error {
	request, err := ic.Invitations.RejectJoinRequest(c.Params("id"), identityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": request})
}
