package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/services"
	"github.com/johnolven/swarm/utils"
)

type ColumnController struct {
	Columns *services.ColumnService
	Logger  *log.Logger
}

func NewColumnController(db *gorm.DB, logger *log.Logger) *ColumnController {
	return &ColumnController{
		Columns: services.NewColumnService(db, logger),
		Logger:  logger,
	}
}

func (cc *ColumnController) GetTeamColumns(c *fiber.Ctx) error {
	columns, err := cc.Columns.GetTeamColumns(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": columns})
}

func (cc *ColumnController) CreateColumn(c *fiber.Ctx) error {
	var input struct {
		Name  string `json:"name" validate:"required"`
		Color string `json:"color"`
	}
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

	column, err := cc.Columns.CreateColumn(c.Params("id"), identityFrom(c), input.Name, input.Color)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": column})
}

func (cc *ColumnController) UpdateColumn(c *fiber.Ctx) error {
	var input struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	column, err := cc.Columns.UpdateColumn(c.Params("id"), identityFrom(c), input.Name, input.Color)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": column})
}

// DeleteColumn accepts the migration target either in the body or as a
// query parameter, matching the shapes board clients send.
func (cc *ColumnController) DeleteColumn(c *fiber.Ctx) error {
	var input struct {
		MigrationColumnID *string `json:"migration_column_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid request body",
			})
		}
	}
	if input.MigrationColumnID == nil {
		if target := c.Query("migration_column_id"); target != "" {
			input.MigrationColumnID = &target
		}
	}

	if err := cc.Columns.DeleteColumn(c.Params("id"), identityFrom(c), input.MigrationColumnID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Column deleted"})
}

func (cc *ColumnController) ReorderColumns(c *fiber.Ctx) error {
	var input struct {
		Columns []services.OrderPair `json:"columns" validate:"required,dive"`
	}
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

	columns, err := cc.Columns.ReorderColumns(c.Params("id"), identityFrom(c), input.Columns)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": columns})
}
