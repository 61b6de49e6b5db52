package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"

	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

type AgentService struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewAgentService(db *gorm.DB, logger *log.Logger) *AgentService {
	return &AgentService{DB: db, Logger: logger}
}

type AgentRegistration struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Personality  string   `json:"personality"`
	WebhookURL   string   `json:"webhook_url" validate:"omitempty,url"`
}

// RegisterAgent creates the agent record with a fresh API token. Agent
// names are globally unique.
func (s *AgentService) RegisterAgent(input AgentRegistration) (*models.Agent, error) {
	var existing int64
	if err := s.DB.Model(&models.Agent{}).Where("name = ?", input.Name).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ConflictError("Agent name already exists")
	}

	capabilities := input.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}

	agent := models.Agent{
		Name:         input.Name,
		Description:  input.Description,
		Capabilities: capabilities,
		Personality:  input.Personality,
		WebhookURL:   input.WebhookURL,
		APIToken:     generateAPIToken(),
		IsActive:     true,
	}
	if err := s.DB.Create(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *AgentService) GetAgentByID(agentID string) (*models.Agent, error) {
	var agent models.Agent
	if err := s.DB.First(&agent, "id = ?", agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("Agent not found")
		}
		return nil, err
	}
	return &agent, nil
}

func (s *AgentService) GetAllAgents() ([]models.Agent, error) {
	var agents []models.Agent
	err := s.DB.Where("is_active = ?", true).Order("created_at DESC").Find(&agents).Error
	return agents, err
}

// FindAgentsByCapabilities returns active agents holding every one of
// the given capabilities. Capabilities live in a JSON column, so the
// has-every filter runs in memory.
func (s *AgentService) FindAgentsByCapabilities(capabilities []string) ([]models.Agent, error) {
	var agents []models.Agent
	err := s.DB.Where("is_active = ?", true).Find(&agents).Error
	if err != nil {
		return nil, err
	}

	matched := []models.Agent{}
	for _, agent := range agents {
		if len(missingCapabilities(capabilities, agent.Capabilities)) == 0 {
			matched = append(matched, agent)
		}
	}
	return matched, nil
}

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func generateAPIToken() string {
	raw := make([]byte, 24)
	for i := range raw {
		raw[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return fmt.Sprintf("swarm_sk_live_%s", raw)
}
