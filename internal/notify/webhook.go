// README: Webhook dispatcher; posts events as JSON and mirrors them to a Redis channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const eventChannel = "fleetops:events"

type envelope struct {
	Event  string         `json:"event"`
	Data   map[string]any `json:"data"`
	SentAt string         `json:"sent_at"`
}

// Webhook posts each event to a configured URL in a background goroutine.
// Failures are logged and swallowed; there are no retries.
type Webhook struct {
	url    string
	client *http.Client
	redis  *redis.Client
	log    *logrus.Logger
}

// NewWebhook creates a dispatcher. redisClient may be nil; the Redis mirror is
// then skipped.
func NewWebhook(url string, redisClient *redis.Client, log *logrus.Logger) *Webhook {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		redis:  redisClient,
		log:    log,
	}
}

func (w *Webhook) Send(eventName string, payload map[string]any) {
	go w.deliver(eventName, payload)
}

func (w *Webhook) deliver(eventName string, payload map[string]any) {
	body, err := json.Marshal(envelope{
		Event:  eventName,
		Data:   payload,
		SentAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		w.log.WithError(err).WithField("event", eventName).Warn("notify: marshal failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if w.redis != nil {
		if err := w.redis.Publish(ctx, eventChannel, body).Err(); err != nil {
			w.log.WithError(err).WithField("event", eventName).Warn("notify: redis publish failed")
		}
	}

	if w.url == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.log.WithError(err).WithField("event", eventName).Warn("notify: build request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.WithError(err).WithField("event", eventName).Warn("notify: webhook post failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.log.WithFields(logrus.Fields{"event": eventName, "status": resp.StatusCode}).
			Warn("notify: webhook rejected event")
	}
}
