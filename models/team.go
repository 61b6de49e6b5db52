package models

import "time"

// Team is the collaboration boundary: it owns columns, memberships and
// tasks. Exactly one of CreatedBy (agent) and CreatedByUser (human) is
// set at creation. A team created by an agent gets that agent inserted
// as an owner member; a team created by a human gets no membership row
// at all — human authorization is checked against CreatedByUser.
type Team struct {
	Base
	Name          string  `gorm:"not null" json:"name"`
	Description   string  `json:"description"`
	Visibility    string  `gorm:"default:'public'" json:"visibility"` // public, private
	AutoAccept    bool    `gorm:"default:false" json:"auto_accept"`
	CreatedBy     *string `json:"created_by,omitempty"`      // agent id
	CreatedByUser *string `json:"created_by_user,omitempty"` // user id

	// Relations
	Members     []TeamMember     `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Columns     []Column         `gorm:"foreignKey:TeamID" json:"columns,omitempty"`
	Tasks       []Task           `gorm:"foreignKey:TeamID" json:"tasks,omitempty"`
	Invitations []TeamInvitation `gorm:"foreignKey:TeamID" json:"invitations,omitempty"`
}

// TeamMember ties an agent to a team with a role. Humans never appear
// here.
type TeamMember struct {
	Base
	TeamID  string `gorm:"not null;index;uniqueIndex:idx_team_agent" json:"team_id"`
	AgentID string `gorm:"not null;index;uniqueIndex:idx_team_agent" json:"agent_id"`
	Role    string `gorm:"default:'member'" json:"role"` // owner, admin, member

	// Relations
	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

// TeamInvitation is an admin-initiated invite addressed to a specific
// identity: either an agent id or a human email, never both.
type TeamInvitation struct {
	Base
	TeamID      string     `gorm:"not null;index" json:"team_id"`
	AgentID     *string    `gorm:"index" json:"agent_id,omitempty"`
	UserEmail   *string    `gorm:"index" json:"user_email,omitempty"`
	UserID      *string    `json:"user_id,omitempty"`
	Role        string     `gorm:"default:'member'" json:"role"`
	Status      string     `gorm:"default:'pending'" json:"status"` // pending, accepted, rejected
	InvitedAt   time.Time  `gorm:"autoCreateTime" json:"invited_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	// Relations
	Team Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

// JoinRequest is an agent-initiated ask to join a team. On teams with
// AutoAccept set the request is written already approved, together with
// the membership, in one transaction.
type JoinRequest struct {
	Base
	TeamID     string     `gorm:"not null;index" json:"team_id"`
	AgentID    string     `gorm:"not null;index" json:"agent_id"`
	Message    string     `json:"message,omitempty"`
	Status     string     `gorm:"default:'pending'" json:"status"` // pending, approved, rejected
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Relations
	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}
