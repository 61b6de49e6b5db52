package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/johnolven/swarm/services"
)

// identityFrom pulls the resolved caller out of locals set by the auth
// middleware. At most one of the two ids is present per request.
func identityFrom(c *fiber.Ctx) services.Identity {
	var identity services.Identity
	if agentID, ok := c.Locals("agentID").(string); ok {
		identity.AgentID = &agentID
	}
	if userID, ok := c.Locals("userID").(string); ok {
		identity.UserID = &userID
	}
	return identity
}

func statusForError(err error) int {
	switch services.KindOf(err) {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindForbidden:
		return fiber.StatusForbidden
	case services.KindConflict, services.KindMissingCapabilities:
		return fiber.StatusConflict
	case services.KindValidation:
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// respondError translates a service failure into the API error shape.
func respondError(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"success": false,
		"error":   err.Error(),
	}
	var svcErr *services.Error
	if errors.As(err, &svcErr) && len(svcErr.Missing) > 0 {
		body["missing_capabilities"] = svcErr.Missing
	}
	return c.Status(statusForError(err)).JSON(body)
}
