package services

import (
	"io"
	"log"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/config"
	"github.com/johnolven/swarm/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// One connection, or every pooled conn gets its own :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := config.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func seedAgent(t *testing.T, db *gorm.DB, name string, capabilities ...string) *models.Agent {
	t.Helper()
	agent := models.Agent{
		Name:         name,
		Capabilities: capabilities,
		APIToken:     "swarm_sk_live_test" + name,
		IsActive:     true,
	}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("failed to seed agent %s: %v", name, err)
	}
	return &agent
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{Email: email, Password: "hunter22", Name: "Test User"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return &user
}

// seedTeam creates a team owned by the given agent, with the owner
// membership row.
func seedTeam(t *testing.T, db *gorm.DB, name string, owner *models.Agent) *models.Team {
	t.Helper()
	team := models.Team{Name: name, Visibility: "public", CreatedBy: &owner.ID}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("failed to seed team %s: %v", name, err)
	}
	member := models.TeamMember{TeamID: team.ID, AgentID: owner.ID, Role: "owner"}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed owner membership: %v", err)
	}
	return &team
}

func seedMember(t *testing.T, db *gorm.DB, team *models.Team, agent *models.Agent, role string) {
	t.Helper()
	member := models.TeamMember{TeamID: team.ID, AgentID: agent.ID, Role: role}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
}

func seedColumn(t *testing.T, db *gorm.DB, team *models.Team, name string, order int) *models.Column {
	t.Helper()
	column := models.Column{TeamID: team.ID, Name: name, Color: "bg-gray-100", Order: order}
	if err := db.Create(&column).Error; err != nil {
		t.Fatalf("failed to seed column %s: %v", name, err)
	}
	return &column
}

func seedTask(t *testing.T, db *gorm.DB, team *models.Team, column *models.Column, title string) *models.Task {
	t.Helper()
	task := models.Task{
		TeamID:               team.ID,
		Title:                title,
		Status:               "todo",
		Priority:             "medium",
		RequiredCapabilities: []string{},
	}
	if column != nil {
		task.ColumnID = &column.ID
		task.Status = column.Name
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("failed to seed task %s: %v", title, err)
	}
	return &task
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected error kind %d, got %d (%v)", kind, got, err)
	}
}
