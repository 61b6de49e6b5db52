package models

import "time"

// Column is an ordered workflow stage on a team's board. Order is a
// dense team-scoped integer sequence starting at 0; new columns append
// at max(order)+1. A team always keeps at least one column.
type Column struct {
	Base
	TeamID string `gorm:"not null;index" json:"team_id"`
	Name   string `gorm:"not null" json:"name"`
	Color  string `gorm:"default:'bg-gray-100'" json:"color"`
	Order  int    `gorm:"not null;default:0" json:"order"`

	// Relations
	Team  Team   `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Tasks []Task `gorm:"foreignKey:ColumnID" json:"tasks,omitempty"`
}

// Task is a unit of work on a board. Status is dual-purpose: column
// moves overwrite it with the target column's name, while the claim
// lifecycle writes the markers in_progress/review/todo. The last writer
// wins; both sides rely on that.
type Task struct {
	Base
	TeamID               string     `gorm:"not null;index" json:"team_id"`
	ColumnID             *string    `gorm:"index" json:"column_id,omitempty"`
	Title                string     `gorm:"not null" json:"title"`
	Description          string     `json:"description"`
	RequiredCapabilities []string   `gorm:"serializer:json" json:"required_capabilities"`
	Priority             string     `gorm:"default:'medium'" json:"priority"` // low, medium, high
	Status               string     `json:"status"`
	AssignedToID         *string    `gorm:"index" json:"assigned_to_id,omitempty"`
	CreatedByID          *string    `json:"created_by_id,omitempty"`      // agent id
	CreatedByUserID      *string    `json:"created_by_user_id,omitempty"` // user id
	Order                int        `gorm:"not null;default:0" json:"order"`
	DueDate              *time.Time `json:"due_date,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`

	// Relations
	Team        Team             `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	AssignedTo  *Agent           `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	CreatedBy   *Agent           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
	Messages    []Message        `gorm:"foreignKey:TaskID" json:"messages,omitempty"`
}

// TaskAssignment is an append-only log of claim events. A row is written
// on every successful claim, including re-claims after unclaim; rows are
// never updated.
type TaskAssignment struct {
	Base
	TaskID    string     `gorm:"not null;index" json:"task_id"`
	AgentID   string     `gorm:"not null;index" json:"agent_id"`
	Status    string     `gorm:"default:'claimed'" json:"status"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

// Message is the per-task chat/audit log. A nil AgentID marks a
// system-generated entry.
type Message struct {
	Base
	TaskID   string  `gorm:"not null;index" json:"task_id"`
	AgentID  *string `gorm:"index" json:"agent_id,omitempty"`
	Content  string  `gorm:"type:text;not null" json:"content"`
	Type     string  `gorm:"default:'message'" json:"type"` // message, system, collaboration_request
	Metadata string  `gorm:"type:text" json:"metadata,omitempty"`

	// Relations
	Agent *Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}
