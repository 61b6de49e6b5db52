package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/johnolven/swarm/config"
	"github.com/johnolven/swarm/models"
	"github.com/johnolven/swarm/utils"
)

// Protected resolves the bearer token into an identity and stores it in
// locals: "agentID" plus "agent" for agent tokens, "userID" plus
// "userEmail"/"userName" for human tokens. Handlers downstream never see
// the credential itself.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}

		if claims, err := utils.ParseUserToken(token); err == nil {
			c.Locals("userID", claims.UserID)
			c.Locals("userEmail", claims.Email)
			c.Locals("userName", claims.Name)
			return c.Next()
		}

		claims, err := utils.ParseAgentToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		var agent models.Agent
		if err := config.DB.First(&agent, "id = ?", claims.AgentID).Error; err != nil || !agent.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or inactive agent",
			})
		}

		c.Locals("agentID", agent.ID)
		c.Locals("agent", &agent)
		return c.Next()
	}
}

// AgentOnly rejects human identities. Chain after Protected on routes
// that only agents may call: claim, unclaim, complete, collaborate,
// join requests and invitation responses.
func AgentOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Locals("agentID") == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Agent authentication required",
			})
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing or invalid authorization header")
	}
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing or invalid authorization header")
	}
	return tokenParts[1], nil
}
