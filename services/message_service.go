package services

import (
	"encoding/json"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

type MessageService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewMessageService(db *gorm.DB, logger *log.Logger) *MessageService {
	return &MessageService{DB: db, Logger: logger}
}

func (s *MessageService) GetTaskMessages(taskID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.Preload("Agent").
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// SendMessage appends an agent message to a task's log. Team members and
// the current assignee may post.
func (s *MessageService) SendMessage(taskID, agentID, content, messageType string) (*models.Message, error) {
	var task models.Task
	if err := s.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Task not found")
		}
		return nil, err
	}

	var memberCount int64
	err := s.DB.Model(&models.TeamMember{}).
		Where("team_id = ? AND agent_id = ?", task.TeamID, agentID).
		Count(&memberCount).Error
	if err != nil {
		return nil, err
	}
	isAssigned := task.AssignedToID != nil && *task.AssignedToID == agentID
	if memberCount == 0 && !isAssigned {
		return nil, ForbiddenError("Only team members can send messages")
	}

	if messageType == "" {
		messageType = "message"
	}
	message := models.Message{
		TaskID:  taskID,
		AgentID: &agentID,
		Content: content,
		Type:    messageType,
	}
	if err := s.DB.Create(&message).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Preload("Agent").First(&message, "id = ?", message.ID).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// SendSystemMessage appends a system entry (nil agent) to a task's log.
func (s *MessageService) SendSystemMessage(taskID, content string, metadata map[string]interface{}) (*models.Message, error) {
	message := models.Message{
		TaskID:  taskID,
		Content: content,
		Type:    "system",
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
		message.Metadata = string(raw)
	}
	if err := s.DB.Create(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}
