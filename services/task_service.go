package services

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnolven/swarm/models"
)

// TaskService owns the task workflow: creation defaults, the
// claim/unclaim/complete lifecycle, capability matching, collaboration
// requests, reordering and deletion.
type TaskService struct {
	DB     *gorm.DB
	Logger *log.Logger

	// SkipCapabilityCheck disables the capability gate on claims. Wired
	// from configuration at construction; never read from the
	// environment here.
	SkipCapabilityCheck bool
}

func NewTaskService(db *gorm.DB, logger *log.Logger, skipCapabilityCheck bool) *TaskService {
	return &TaskService{DB: db, Logger: logger, SkipCapabilityCheck: skipCapabilityCheck}
}

type CreateTaskInput struct {
	Title                string     `json:"title" validate:"required"`
	Description          string     `json:"description"`
	RequiredCapabilities []string   `json:"required_capabilities"`
	Priority             string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate              *time.Time `json:"due_date"`
	ColumnID             *string    `json:"column_id"`
}

type UpdateTaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
	ColumnID    *string    `json:"column_id"`
}

// AgentSummary is the slice of agent state exposed in collaboration
// match lists and webhook payloads.
type AgentSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

type CollaborationResult struct {
	TaskID         string         `json:"task_id"`
	Message        string         `json:"message"`
	MatchingAgents []AgentSummary `json:"matching_agents"`
}

// CreateTask creates a task in the given column, defaulting to the
// team's first column by ascending order. Status starts as the resolved
// column's name; task order appends within the column. Only agent
// callers are membership-checked — any authenticated human may create a
// task in a team they can see.
func (s *TaskService) CreateTask(teamID string, identity Identity, input CreateTaskInput) (*models.Task, error) {
	if identity.AgentID != nil {
		var count int64
		err := s.DB.Model(&models.TeamMember{}).
			Where("team_id = ? AND agent_id = ?", teamID, *identity.AgentID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ForbiddenError("Only team members can create tasks")
		}
	}

	columnID := input.ColumnID
	status := "todo"
	if columnID == nil || *columnID == "" {
		var first models.Column
		err := s.DB.Where("team_id = ?", teamID).Order(`"order" ASC`).First(&first).Error
		if err == nil {
			columnID = &first.ID
			status = first.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		} else {
			columnID = nil
		}
	} else {
		var column models.Column
		if err := s.DB.First(&column, "id = ?", *columnID).Error; err == nil {
			status = column.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	// Order appends within the column, or within the team's column-less
	// tasks when no column exists yet.
	scope := s.DB.Where("team_id = ? AND column_id IS NULL", teamID)
	if columnID != nil {
		scope = s.DB.Where("column_id = ?", *columnID)
	}
	order := 0
	var last models.Task
	err := scope.Order(`"order" DESC`).First(&last).Error
	if err == nil {
		order = last.Order + 1
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = "medium"
	}
	capabilities := input.RequiredCapabilities
	if capabilities == nil {
		capabilities = []string{}
	}

	task := models.Task{
		TeamID:               teamID,
		ColumnID:             columnID,
		Title:                input.Title,
		Description:          input.Description,
		RequiredCapabilities: capabilities,
		Priority:             priority,
		Status:               status,
		Order:                order,
		DueDate:              input.DueDate,
		CreatedByID:          identity.AgentID,
		CreatedByUserID:      identity.UserID,
	}
	if err := s.DB.Create(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) GetTeamTasks(teamID string) ([]models.Task, error) {
	var tasks []models.Task
	err := s.DB.
		Preload("AssignedTo").
		Preload("CreatedBy").
		Where("team_id = ?", teamID).
		Order(`column_id ASC, "order" ASC`).
		Find(&tasks).Error
	return tasks, err
}

func (s *TaskService) GetTaskByID(taskID string) (*models.Task, error) {
	var task models.Task
	err := s.DB.
		Preload("Team").
		Preload("AssignedTo").
		Preload("CreatedBy").
		First(&task, "id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Task not found")
		}
		return nil, err
	}
	return &task, nil
}

// ClaimTask gives the calling agent exclusive ownership of a task. The
// whole check-then-set runs in one transaction with the task row locked,
// so concurrent claims serialize: exactly one succeeds and the rest see
// "already claimed".
func (s *TaskService) ClaimTask(taskID, agentID string) (*models.Task, error) {
	var task models.Task
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		read := tx
		// sqlite has no row locks; its writes serialize anyway.
		if tx.Dialector.Name() == "postgres" {
			read = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := read.First(&task, "id = ?", taskID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("Task not found")
			}
			return err
		}
		if task.AssignedToID != nil {
			return ConflictError("Task already claimed")
		}

		var memberCount int64
		err = tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND agent_id = ?", task.TeamID, agentID).
			Count(&memberCount).Error
		if err != nil {
			return err
		}
		if memberCount == 0 {
			return ForbiddenError("Only team members can claim tasks")
		}

		var agent models.Agent
		if err := tx.First(&agent, "id = ?", agentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("Agent not found")
			}
			return err
		}

		if !s.SkipCapabilityCheck && len(task.RequiredCapabilities) > 0 {
			missing := missingCapabilities(task.RequiredCapabilities, agent.Capabilities)
			if len(missing) > 0 {
				return MissingCapabilitiesError(missing)
			}
		}

		err = tx.Model(&task).Updates(map[string]interface{}{
			"assigned_to_id": agentID,
			"status":         "in_progress",
		}).Error
		if err != nil {
			return err
		}

		now := time.Now()
		return tx.Create(&models.TaskAssignment{
			TaskID:    taskID,
			AgentID:   agentID,
			Status:    "claimed",
			ClaimedAt: &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UnclaimTask releases a claim. Status resets to the todo marker, which
// discards whatever column name was mirrored there.
func (s *TaskService) UnclaimTask(taskID, agentID string) (*models.Task, error) {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Task not found")
		}
		return nil, err
	}
	if task.AssignedToID == nil || *task.AssignedToID != agentID {
		return nil, ForbiddenError("Can only unclaim tasks assigned to you")
	}

	err := s.DB.Model(&task).Updates(map[string]interface{}{
		"assigned_to_id": nil,
		"status":         "todo",
	}).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask moves an assigned task into review. The assignment is
// kept so the reviewer knows who did the work.
func (s *TaskService) CompleteTask(taskID, agentID string) (*models.Task, error) {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Task not found")
		}
		return nil, err
	}
	if task.AssignedToID == nil || *task.AssignedToID != agentID {
		return nil, ForbiddenError("Only assigned agent can complete task")
	}

	now := time.Now()
	err := s.DB.Model(&task).Updates(map[string]interface{}{
		"status":       "review",
		"completed_at": now,
	}).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update. When the patch moves the task to
// another column the status is re-derived from that column's name,
// overriding any literal status in the same patch.
func (s *TaskService) UpdateTask(taskID string, identity Identity, input UpdateTaskInput) (*models.Task, error) {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Task not found")
		}
		return nil, err
	}

	isAuthorized := false
	if identity.AgentID != nil {
		isAssigned := task.AssignedToID != nil && *task.AssignedToID == *identity.AgentID
		admin, err := isTeamAdmin(s.DB, Identity{AgentID: identity.AgentID}, task.TeamID)
		if err != nil {
			return nil, err
		}
		isAuthorized = isAssigned || admin
	}
	if identity.UserID != nil {
		isCreator := task.CreatedByUserID != nil && *task.CreatedByUserID == *identity.UserID
		teamCreator, err := isTeamCreatorUser(s.DB, *identity.UserID, task.TeamID)
		if err != nil {
			return nil, err
		}
		isAuthorized = isCreator || teamCreator
	}
	if !isAuthorized {
		return nil, ForbiddenError("Not authorized to update this task")
	}

	status := input.Status
	if input.ColumnID != nil && *input.ColumnID != "" {
		var column models.Column
		if err := s.DB.First(&column, "id = ?", *input.ColumnID).Error; err == nil {
			status = &column.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if status != nil {
		updates["status"] = *status
	}
	if input.Priority != nil {
		updates["priority"] = *input.Priority
	}
	if input.AssignedTo != nil {
		updates["assigned_to_id"] = *input.AssignedTo
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if input.ColumnID != nil {
		updates["column_id"] = *input.ColumnID
	}

	if len(updates) > 0 {
		if err := s.DB.Model(&task).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &task, nil
}

// RequestCollaboration returns the other team members whose capability
// set intersects the requested capabilities (any overlap counts — this
// is not a superset match). It does not mutate the task; fan-out is the
// notifier's job.
func (s *TaskService) RequestCollaboration(taskID, agentID, message string, requiredCapabilities []string) (*CollaborationResult, error) {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Task not found")
		}
		return nil, err
	}
	if task.AssignedToID == nil || *task.AssignedToID != agentID {
		return nil, ForbiddenError("Only assigned agent can request collaboration")
	}

	var members []models.TeamMember
	err := s.DB.Preload("Agent").
		Where("team_id = ? AND agent_id <> ?", task.TeamID, agentID).
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	matching := []AgentSummary{}
	for _, member := range members {
		if len(requiredCapabilities) > 0 && !capabilitiesIntersect(requiredCapabilities, member.Agent.Capabilities) {
			continue
		}
		matching = append(matching, AgentSummary{
			ID:           member.Agent.ID,
			Name:         member.Agent.Name,
			Capabilities: member.Agent.Capabilities,
		})
	}

	return &CollaborationResult{TaskID: taskID, Message: message, MatchingAgents: matching}, nil
}

// DeleteTask removes the task and everything it owns (assignments and
// messages) in one transaction.
func (s *TaskService) DeleteTask(taskID string, identity Identity) error {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("Task not found")
		}
		return err
	}

	isAuthorized := false
	if identity.AgentID != nil {
		isCreator := task.CreatedByID != nil && *task.CreatedByID == *identity.AgentID
		admin, err := isTeamAdmin(s.DB, Identity{AgentID: identity.AgentID}, task.TeamID)
		if err != nil {
			return err
		}
		isAuthorized = isCreator || admin
	}
	if identity.UserID != nil {
		isCreator := task.CreatedByUserID != nil && *task.CreatedByUserID == *identity.UserID
		teamCreator, err := isTeamCreatorUser(s.DB, *identity.UserID, task.TeamID)
		if err != nil {
			return err
		}
		isAuthorized = isCreator || teamCreator
	}
	if !isAuthorized {
		return ForbiddenError("Not authorized to delete this task")
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, "id = ?", taskID).Error
	})
}

// ReorderTasks applies a caller-supplied ordering within a column as one
// atomic multi-update.
func (s *TaskService) ReorderTasks(columnID string, identity Identity, orders []OrderPair) error {
	var column models.Column
	err := s.DB.Preload("Team").First(&column, "id = ?", columnID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFoundError("Column not found")
		}
		return err
	}

	isAuthorized := false
	if identity.AgentID != nil {
		var count int64
		err := s.DB.Model(&models.TeamMember{}).
			Where("team_id = ? AND agent_id = ?", column.TeamID, *identity.AgentID).
			Count(&count).Error
		if err != nil {
			return err
		}
		isAuthorized = count > 0
	}
	if identity.UserID != nil {
		isAuthorized = column.Team.CreatedByUser != nil && *column.Team.CreatedByUser == *identity.UserID
	}
	if !isAuthorized {
		return ForbiddenError("Only team members can reorder tasks")
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, pair := range orders {
			err := tx.Model(&models.Task{}).
				Where("id = ?", pair.ID).
				Update("order", pair.Order).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func missingCapabilities(required, available []string) []string {
	have := make(map[string]bool, len(available))
	for _, capability := range available {
		have[capability] = true
	}
	missing := []string{}
	for _, capability := range required {
		if !have[capability] {
			missing = append(missing, capability)
		}
	}
	return missing
}

func capabilitiesIntersect(required, available []string) bool {
	have := make(map[string]bool, len(available))
	for _, capability := range available {
		have[capability] = true
	}
	for _, capability := range required {
		if have[capability] {
			return true
		}
	}
	return false
}
