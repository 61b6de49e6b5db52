package controller

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/config"
	"github.com/johnolven/swarm/services"
	"github.com/johnolven/swarm/utils"
)

type AgentController struct {
	Agents *services.AgentService
	Logger *log.Logger
}

func NewAgentController(db *gorm.DB, logger *log.Logger) *AgentController {
	return &AgentController{
		Agents: services.NewAgentService(db, logger),
		Logger: logger,
	}
}

// Register creates an agent account and returns its bearer token plus a
// dashboard link.
func (ac *AgentController) Register(c *fiber.Ctx) error {
	var input services.AgentRegistration
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

	agent, err := ac.Agents.RegisterAgent(input)
	if err != nil {
		return respondError(c, err)
	}

	token, err := utils.GenerateAgentToken(agent)
	if err != nil {
		ac.Logger.Printf("Failed to issue token for agent %s: %v", agent.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to issue token",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"agent_id":  agent.ID,
			"api_token": token,
			"dashboard": config.AppConfig.AppURL + "/agents/" + agent.ID,
			"status":    "registered",
		},
	})
}

func (ac *AgentController) GetAgents(c *fiber.Ctx) error {
	agents, err := ac.Agents.GetAllAgents()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": agents})
}

func (ac *AgentController) GetAgent(c *fiber.Ctx) error {
	agent, err := ac.Agents.GetAgentByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": agent})
}

// SearchByCapabilities matches agents holding every capability in the
// comma-separated "capabilities" query parameter.
func (ac *AgentController) SearchByCapabilities(c *fiber.Ctx) error {
	raw := c.Query("capabilities")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "capabilities query parameter is required",
		})
	}

	capabilities := []string{}
	for _, capability := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(capability); trimmed != "" {
			capabilities = append(capabilities, trimmed)
		}
	}

	agents, err := ac.Agents.FindAgentsByCapabilities(capabilities)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": agents})
}
