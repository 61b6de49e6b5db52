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

type TaskController struct {
	Tasks    *services.TaskService
	Messages *services.MessageService
	Webhooks *services.WebhookService
	Logger   *log.Logger
}

func NewTaskController(db *gorm.DB, logger *log.Logger, webhookLogger *logrus.Logger, skipCapabilityCheck bool) *TaskController {
	return &TaskController{
		Tasks:    services.NewTaskService(db, logger, skipCapabilityCheck),
		Messages: services.NewMessageService(db, logger),
		Webhooks: services.NewWebhookService(db, webhookLogger),
		Logger:   logger,
	}
}

func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	var input services.CreateTaskInput
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

	identity := identityFrom(c)
	task, err := tc.Tasks.CreateTask(c.Params("id"), identity, input)
	if err != nil {
		return respondError(c, err)
	}

	actor := ""
	if identity.AgentID != nil {
		actor = *identity.AgentID
	}
	tc.Webhooks.NotifyTeamMembers(task.TeamID, "task.created", map[string]interface{}{
		"task_id":               task.ID,
		"task_title":            task.Title,
		"team_id":               task.TeamID,
		"required_capabilities": task.RequiredCapabilities,
		"priority":              task.Priority,
	}, actor)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": task})
}

func (tc *TaskController) GetTeamTasks(c *fiber.Ctx) error {
	tasks, err := tc.Tasks.GetTeamTasks(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": tasks})
}

func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	task, err := tc.Tasks.GetTaskByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": task})
}

// ClaimTask assigns the task to the calling agent, logs a system entry
// and tells the rest of the team who picked it up.
func (tc *TaskController) ClaimTask(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	task, err := tc.Tasks.ClaimTask(c.Params("id"), agent.ID)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := tc.Messages.SendSystemMessage(task.ID, agent.Name+" claimed this task", nil); err != nil {
		tc.Logger.Printf("Failed to log claim on task %s: %v", task.ID, err)
	}
	tc.Webhooks.NotifyTeamMembers(task.TeamID, "task.assigned", map[string]interface{}{
		"task_id":     task.ID,
		"task_title":  task.Title,
		"assigned_to": agent.Name,
	}, agent.ID)

	return c.JSON(fiber.Map{"success": true, "data": task})
}

func (tc *TaskController) UnclaimTask(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	task, err := tc.Tasks.UnclaimTask(c.Params("id"), agent.ID)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := tc.Messages.SendSystemMessage(task.ID, agent.Name+" unclaimed this task", nil); err != nil {
		tc.Logger.Printf("Failed to log unclaim on task %s: %v", task.ID, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": task})
}

// CompleteTask moves the task into review and notifies the team so a
// reviewer can pick it up.
func (tc *TaskController) CompleteTask(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	task, err := tc.Tasks.CompleteTask(c.Params("id"), agent.ID)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := tc.Messages.SendSystemMessage(task.ID, agent.Name+" marked this task as complete", nil); err != nil {
		tc.Logger.Printf("Failed to log completion on task %s: %v", task.ID, err)
	}
	tc.Webhooks.NotifyTeamMembers(task.TeamID, "task.review_completed", map[string]interface{}{
		"task_id":      task.ID,
		"task_title":   task.Title,
		"completed_by": agent.Name,
	}, agent.ID)

	return c.JSON(fiber.Map{"success": true, "data": task})
}

func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	var input services.UpdateTaskInput
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

	task, err := tc.Tasks.UpdateTask(c.Params("id"), identityFrom(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": task})
}

func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	if err := tc.Tasks.DeleteTask(c.Params("id"), identityFrom(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Task deleted"})
}

// RequestCollaboration posts the request into the task log and pings
// every teammate whose capabilities overlap the ask.
func (tc *TaskController) RequestCollaboration(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var input struct {
		Message              string   `json:"message" validate:"required"`
		RequiredCapabilities []string `json:"required_capabilities"`
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

	result, err := tc.Tasks.RequestCollaboration(c.Params("id"), agent.ID, input.Message, input.RequiredCapabilities)
	if err != nil {
		return respondError(c, err)
	}

	if _, err := tc.Messages.SendMessage(result.TaskID, agent.ID, input.Message, "collaboration_request"); err != nil {
		tc.Logger.Printf("Failed to log collaboration request on task %s: %v", result.TaskID, err)
	}
	for _, match := range result.MatchingAgents {
		tc.Webhooks.Notify(match.ID, "task.collaboration_requested", map[string]interface{}{
			"task_id":               result.TaskID,
			"requesting_agent":      agent.Name,
			"message":               input.Message,
			"required_capabilities": input.RequiredCapabilities,
		})
	}

	return c.JSON(fiber.Map{"success": true, "data": result})
}

func (tc *TaskController) ReorderTasks(c *fiber.Ctx) error {
	var input struct {
		Tasks []services.OrderPair `json:"tasks" validate:"required,dive"`
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

	if err := tc.Tasks.ReorderTasks(c.Params("id"), identityFrom(c), input.Tasks); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Tasks reordered"})
}

func (tc *TaskController) GetTaskMessages(c *fiber.Ctx) error {
	messages, err := tc.Messages.GetTaskMessages(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": messages})
}

func (tc *TaskController) SendTaskMessage(c *fiber.Ctx) error {
	agent := c.Locals("agent").(*models.Agent)

	var input struct {
		Content string `json:"content" validate:"required"`
		Type    string `json:"type"`
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

	message, err := tc.Messages.SendMessage(c.Params("id"), agent.ID, input.Content, input.Type)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": message})
}
