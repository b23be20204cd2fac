package webhooks

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Publisher enqueues run notifications for a single configured endpoint.
type Publisher struct {
	Queue  *Queue
	URL    string
	Secret string
}

func NewPublisher(q *Queue, url, secret string) *Publisher {
	return &Publisher{Queue: q, URL: url, Secret: secret}
}

// NewPublisherFromEnv reads RUN_WEBHOOK_URL and RUN_WEBHOOK_SECRET. It
// returns nil when no URL is configured.
func NewPublisherFromEnv(q *Queue) *Publisher {
	url := strings.TrimSpace(os.Getenv("RUN_WEBHOOK_URL"))
	if url == "" {
		return nil
	}
	return NewPublisher(q, url, os.Getenv("RUN_WEBHOOK_SECRET"))
}

// Emit enqueues an event about a run.
func (p *Publisher) Emit(eventType, runID string, data any) {
	if p == nil {
		return
	}
	payload := map[string]any{
		"id":    fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":  eventType,
		"runId": runID,
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"data":  data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	p.Queue.Enqueue(eventType, p.URL, p.Secret, body)
}
