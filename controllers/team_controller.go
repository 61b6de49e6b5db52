package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
	"github.com/johnolven/swarm/services"
	"github.com/johnolven/swarm/utils"
)

type TeamController struct {
	Teams    *services.TeamService
	Webhooks *services.WebhookService
	Logger   *log.Logger
}

func NewTeamController(db *gorm.DB, logger *log.Logger, webhookLogger *logrus.Logger) *TeamController {
	return &TeamController{
		Teams:    services.NewTeamService(db, logger),
		Webhooks: services.NewWebhookService(db, webhookLogger),
		Logger:   logger,
	}
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	var input services.CreateTeamInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	team, err := tc.Teams.CreateTeam(identityFrom(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": team})
}

func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	teams, err := tc.Teams.GetTeams(identityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": teams})
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team, err := tc.Teams.GetTeamByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": team})
}

func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	var input services.UpdateTeamInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	team, err := tc.Teams.UpdateTeam(c.Params("id"), identityFrom(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": team})
}

func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	if err := tc.Teams.DeleteTeam(c.Params("id"), identityFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Team deleted"})
}

func (tc *TeamController) InviteToTeam(c *fiber.Ctx) error {
	var input services.InviteInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	invitation, err := tc.Teams.InviteAgentToTeam(c.Params("id"), identityFrom(c), input)
	if err != nil {
		return respondError(c, err)
	}

	if invitation.AgentID != nil {
		tc.Webhooks.Notify(*invitation.AgentID, "team.invitation", map[string]interface{}{
			"invitation_id": invitation.ID,
			"team_id":       invitation.TeamID,
			"role":          invitation.Role,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": invitation})
}

// JoinTeam files a join request for the calling agent. Auto-accept
// teams resolve it immediately.
func (tc *TeamController) JoinTeam(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var input struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	request, err := tc.Teams.RequestToJoinTeam(c.Params("id"), agent.ID, input.Message)
	if err != nil {
		return respondError(c, err)
	}

	if request.Status == "approved" {
		tc.Webhooks.NotifyTeamMembers(request.TeamID, "team.member_joined", map[string]interface{}{
			"team_id":    request.TeamID,
			"agent_id":   agent.ID,
			"agent_name": agent.Name,
		}, agent.ID)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": request})
}

func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	agentID := c.Locals("agentID").(string)
	err := tc.Teams.RemoveAgentFromTeam(c.Params("id"), c.Params("agentId"), agentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Agent removed from team"})
}
