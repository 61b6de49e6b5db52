package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
	"github.com/johnolven/swarm/services"
	"github.com/johnolven/swarm/utils"
)

type UserController struct {
	Users  *services.UserService
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, logger *log.Logger) *UserController {
	return &UserController{
		Users:  services.NewUserService(db, logger),
		Logger: logger,
	}
}

func (uc *UserController) Signup(c *fiber.Ctx) error {
	var input services.SignupInput
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

	user, err := uc.Users.CreateUser(input)
	if err != nil {
		return respondError(c, err)
	}
	return uc.respondWithToken(c, fiber.StatusCreated, user)
}

func (uc *UserController) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	user, err := uc.Users.LoginUser(input.Email, input.Password)
	if err != nil {
		// Login failures are 401 regardless of the service kind so the
		// response never distinguishes a missing account from a wrong
		// password.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid email or password",
		})
	}
	return uc.respondWithToken(c, fiber.StatusOK, user)
}

func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Human authentication required",
		})
	}
	user, err := uc.Users.GetUserByID(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}

func (uc *UserController) UpdateName(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Human authentication required",
		})
	}

	var input struct {
		Name string `json:"name" validate:"required"`
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

	user, err := uc.Users.UpdateUserName(userID, input.Name)
	if err != nil {
		return respondError(c, err)
	}
	return uc.respondWithToken(c, fiber.StatusOK, user)
}

func (uc *UserController) UpdateEmail(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Human authentication required",
		})
	}

	var input struct {
		Email string `json:"email" validate:"required,email"`
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

	user, err := uc.Users.UpdateUserEmail(userID, input.Email)
	if err != nil {
		return respondError(c, err)
	}
	return uc.respondWithToken(c, fiber.StatusOK, user)
}

func (uc *UserController) UpdatePassword(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Human authentication required",
		})
	}

	var input struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=6"`
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

	user, err := uc.Users.UpdateUserPassword(userID, input.CurrentPassword, input.NewPassword)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
		"id": user.ID, "email": user.Email, "name": user.Name,
	}})
}

// respondWithToken reissues the human token so claims stay in sync with
// profile changes.
func (uc *UserController) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := utils.GenerateUserToken(user)
	if err != nil {
		uc.Logger.Printf("Failed to issue token for user %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to issue token",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":    user.ID,
				"email": user.Email,
				"name":  user.Name,
				"type":  "human",
			},
		},
	})
}
