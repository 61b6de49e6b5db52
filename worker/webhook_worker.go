package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/johnolven/swarm/models"
)

// WebhookWorker drains the webhook queue. Each pending row is POSTed to
// the agent's webhook URL; failures back off exponentially by retry
// count until MaxAttempts, then the row is marked failed. Delivery never
// feeds back into the operations that queued the events.
type WebhookWorker struct {
	DB          *gorm.DB
	Client      *http.Client
	Logger      *logrus.Logger
	MaxAttempts int
	RetryDelay  time.Duration
}

func NewWebhookWorker(db *gorm.DB, logger *logrus.Logger, maxAttempts int, retryDelay time.Duration) *WebhookWorker {
	return &WebhookWorker{
		DB:          db,
		Client:      &http.Client{Timeout: 10 * time.Second},
		Logger:      logger,
		MaxAttempts: maxAttempts,
		RetryDelay:  retryDelay,
	}
}

func (w *WebhookWorker) Start(ctx context.Context) {
	w.Logger.Info("Webhook worker started")

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("Webhook worker shutting down...")
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *WebhookWorker) processPending(ctx context.Context) {
	var pending []models.Webhook
	if err := w.DB.Where("status = ?", "pending").Order("created_at ASC").Limit(50).Find(&pending).Error; err != nil {
		w.Logger.WithError(err).Error("Error fetching pending webhooks")
		return
	}

	now := time.Now()
	for _, webhook := range pending {
		if !w.due(webhook, now) {
			continue
		}
		w.deliver(ctx, webhook)
	}
}

// due applies the backoff schedule: attempt n waits RetryDelay * 2^(n-1)
// after the previous attempt.
func (w *WebhookWorker) due(webhook models.Webhook, now time.Time) bool {
	if webhook.LastRetryAt == nil {
		return true
	}
	wait := time.Duration(float64(w.RetryDelay) * math.Pow(2, float64(webhook.RetryCount-1)))
	return now.Sub(*webhook.LastRetryAt) >= wait
}

func (w *WebhookWorker) deliver(ctx context.Context, webhook models.Webhook) {
	log := w.Logger.WithFields(logrus.Fields{
		"webhook_id": webhook.ID,
		"agent_id":   webhook.AgentID,
		"event":      webhook.EventType,
		"attempt":    webhook.RetryCount + 1,
	})

	err := w.post(ctx, webhook)
	now := time.Now()
	if err == nil {
		updates := map[string]interface{}{"status": "sent", "last_retry_at": now}
		if err := w.DB.Model(&models.Webhook{}).Where("id = ?", webhook.ID).Updates(updates).Error; err != nil {
			log.WithError(err).Error("Failed to mark webhook sent")
		}
		log.Info("Webhook delivered")
		return
	}

	log.WithError(err).Warn("Webhook delivery attempt failed")
	attempts := webhook.RetryCount + 1
	updates := map[string]interface{}{"retry_count": attempts, "last_retry_at": now}
	if attempts >= w.MaxAttempts {
		updates["status"] = "failed"
		sentry.CaptureException(fmt.Errorf("webhook %s to %s failed after %d attempts: %w",
			webhook.EventType, webhook.URL, attempts, err))
		log.Error("Webhook delivery exhausted retries")
	}
	if err := w.DB.Model(&models.Webhook{}).Where("id = ?", webhook.ID).Updates(updates).Error; err != nil {
		log.WithError(err).Error("Failed to record webhook attempt")
	}
}

func (w *WebhookWorker) post(ctx context.Context, webhook models.Webhook) error {
	body, err := json.Marshal(map[string]interface{}{
		"event":     webhook.EventType,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      webhook.Payload,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SWARM-Board-Webhook/1.0")

	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}
	return nil
}
