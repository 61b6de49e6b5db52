package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/config"
	controller "github.com/johnolven/swarm/controllers"
	"github.com/johnolven/swarm/middleware"
)

// SetupRoutes wires the full REST surface. Identity resolution happens
// in middleware.Protected(); handlers that only make sense for agents
// additionally chain middleware.AgentOnly().
func SetupRoutes(app *fiber.App, db *gorm.DB, webhookLogger *logrus.Logger) {
	requestLog := logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	})

	agentController := controller.NewAgentController(db, log.New(os.Stdout, "AGENT: ", log.LstdFlags))
	userController := controller.NewUserController(db, log.New(os.Stdout, "USER: ", log.LstdFlags))
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags), webhookLogger)
	columnController := controller.NewColumnController(db, log.New(os.Stdout, "COLUMN: ", log.LstdFlags))
	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags), webhookLogger, config.AppConfig.SkipCapabilityCheck)
	invitationController := controller.NewInvitationController(db, log.New(os.Stdout, "INVITE: ", log.LstdFlags), webhookLogger)

	api := app.Group("/api", requestLog)

	// Agent registry. Registration is public but rate limited per IP.
	agents := api.Group("/agents")
	agents.Post("/register", middleware.RegisterRateLimiter(), agentController.Register)
	agents.Get("/", middleware.Protected(), agentController.GetAgents)
	agents.Get("/search", middleware.Protected(), agentController.SearchByCapabilities)
	agents.Get("/:id", middleware.Protected(), agentController.GetAgent)

	// Human accounts.
	users := api.Group("/users")
	users.Post("/signup", userController.Signup)
	users.Post("/login", userController.Login)
	userProfile := users.Group("/me", middleware.Protected())
	userProfile.Get("/", userController.GetProfile)
	userProfile.Patch("/name", userController.UpdateName)
	userProfile.Patch("/email", userController.UpdateEmail)
	userProfile.Patch("/password", userController.UpdatePassword)

	// Teams and membership.
	teams := api.Group("/teams", middleware.Protected())
	teams.Post("/", teamController.CreateTeam)
	teams.Get("/", teamController.GetTeams)
	teams.Get("/:id", teamController.GetTeam)
	teams.Patch("/:id", teamController.UpdateTeam)
	teams.Delete("/:id", teamController.DeleteTeam)
	teams.Post("/:id/invite", teamController.InviteToTeam)
	teams.Post("/:id/join", middleware.AgentOnly(), teamController.JoinTeam)
	teams.Get("/:id/join-requests", invitationController.GetTeamJoinRequests)
	teams.Delete("/:id/members/:agentId", middleware.AgentOnly(), teamController.RemoveMember)

	// Board structure.
	teams.Get("/:id/columns", columnController.GetTeamColumns)
	teams.Post("/:id/columns", columnController.CreateColumn)
	teams.Put("/:id/columns/reorder", columnController.ReorderColumns)

	columns := api.Group("/columns", middleware.Protected())
	columns.Patch("/:id", columnController.UpdateColumn)
	columns.Delete("/:id", columnController.DeleteColumn)
	columns.Put("/:id/tasks/reorder", taskController.ReorderTasks)

	// Tasks and the claim lifecycle.
	teams.Get("/:id/tasks", taskController.GetTeamTasks)
	teams.Post("/:id/tasks", taskController.CreateTask)

	tasks := api.Group("/tasks", middleware.Protected())
	tasks.Get("/:id", taskController.GetTask)
	tasks.Patch("/:id", taskController.UpdateTask)
	tasks.Delete("/:id", taskController.DeleteTask)
	tasks.Post("/:id/claim", middleware.AgentOnly(), taskController.ClaimTask)
	tasks.Post("/:id/unclaim", middleware.AgentOnly(), taskController.UnclaimTask)
	tasks.Post("/:id/complete", middleware.AgentOnly(), taskController.CompleteTask)
	tasks.Post("/:id/collaborate", middleware.AgentOnly(), taskController.RequestCollaboration)
	tasks.Get("/:id/messages", taskController.GetTaskMessages)
	tasks.Post("/:id/messages", middleware.AgentOnly(), taskController.SendTaskMessage)

	// Invitations and join requests.
	invitations := api.Group("/invitations", middleware.Protected())
	invitations.Get("/", invitationController.GetInvitations)
	invitations.Post("/:id/accept", invitationController.AcceptInvitation)
	invitations.Post("/:id/decline", invitationController.DeclineInvitation)

	joinRequests := api.Group("/join-requests", middleware.Protected())
	joinRequests.Post("/:id/approve", invitationController.ApproveJoinRequest)
	joinRequests.Post("/:id/reject", invitationController.RejectJoinRequest)
}
