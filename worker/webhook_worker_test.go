package worker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/config"
	"github.com/johnolven/swarm/models"
)

func newWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
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

func newTestWorker(db *gorm.DB) *WebhookWorker {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewWebhookWorker(db, logger, 3, time.Millisecond)
}

func queueWebhook(t *testing.T, db *gorm.DB, url, event string) *models.Webhook {
	t.Helper()
	webhook := models.Webhook{
		AgentID:   "agent-1",
		EventType: event,
		Payload:   map[string]interface{}{"task_id": "t1"},
		URL:       url,
		Status:    "pending",
	}
	if err := db.Create(&webhook).Error; err != nil {
		t.Fatalf("failed to queue webhook: %v", err)
	}
	return &webhook
}

func TestDeliverPostsEnvelope(t *testing.T) {
	var got struct {
		Event     string                 `json:"event"`
		Timestamp string                 `json:"timestamp"`
		Data      map[string]interface{} `json:"data"`
	}
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	db := newWorkerTestDB(t)
	worker := newTestWorker(db)
	webhook := queueWebhook(t, db, server.URL, "task.assigned")

	worker.deliver(context.Background(), *webhook)

	if userAgent != "SWARM-Board-Webhook/1.0" {
		t.Errorf("unexpected User-Agent %q", userAgent)
	}
	if got.Event != "task.assigned" {
		t.Errorf("unexpected event %q", got.Event)
	}
	if got.Data["task_id"] != "t1" {
		t.Errorf("payload lost in delivery: %v", got.Data)
	}
	if _, err := time.Parse(time.RFC3339, got.Timestamp); err != nil {
		t.Errorf("timestamp not RFC3339: %q", got.Timestamp)
	}

	var fresh models.Webhook
	if err := db.First(&fresh, "id = ?", webhook.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if fresh.Status != "sent" {
		t.Errorf("expected sent status, got %q", fresh.Status)
	}
}

func TestDeliverMarksFailedAfterMaxAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	db := newWorkerTestDB(t)
	worker := newTestWorker(db)
	webhook := queueWebhook(t, db, server.URL, "task.created")

	for attempt := 0; attempt < worker.MaxAttempts; attempt++ {
		var current models.Webhook
		if err := db.First(&current, "id = ?", webhook.ID).Error; err != nil {
			t.Fatalf("reload failed: %v", err)
		}
		worker.deliver(context.Background(), current)
	}

	var fresh models.Webhook
	if err := db.First(&fresh, "id = ?", webhook.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if fresh.Status != "failed" {
		t.Errorf("expected failed status after %d attempts, got %q", worker.MaxAttempts, fresh.Status)
	}
	if fresh.RetryCount != worker.MaxAttempts {
		t.Errorf("expected retry_count %d, got %d", worker.MaxAttempts, fresh.RetryCount)
	}
}

func TestDueBacksOffExponentially(t *testing.T) {
	worker := &WebhookWorker{RetryDelay: time.Second}
	now := time.Now()

	fresh := models.Webhook{}
	if !worker.due(fresh, now) {
		t.Errorf("never-attempted webhook should be due")
	}

	// Attempt 2 waits RetryDelay * 2.
	lastTry := now.Add(-1500 * time.Millisecond)
	waiting := models.Webhook{RetryCount: 2, LastRetryAt: &lastTry}
	if worker.due(waiting, now) {
		t.Errorf("webhook inside its backoff window should not be due")
	}

	longAgo := now.Add(-3 * time.Second)
	ready := models.Webhook{RetryCount: 2, LastRetryAt: &longAgo}
	if !worker.due(ready, now) {
		t.Errorf("webhook past its backoff window should be due")
	}
}

func TestProcessPendingSkipsDelivered(t *testing.T) {
	delivered := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	db := newWorkerTestDB(t)
	worker := newTestWorker(db)
	queueWebhook(t, db, server.URL, "task.created")

	worker.processPending(context.Background())
	worker.processPending(context.Background())

	if delivered != 1 {
		t.Errorf("expected one delivery, got %d", delivered)
	}
}
