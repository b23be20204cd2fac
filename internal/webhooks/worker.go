package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"paintshop/internal/logger"
)

type Worker struct {
	Queue       *Queue
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int
}

func NewWorker(q *Queue) *Worker {
	max := 10
	if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			max = n
		}
	}
	return &Worker{Queue: q, HTTP: &http.Client{Timeout: 5 * time.Second}, Stop: make(chan struct{}), MaxAttempts: max}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, it := range w.Queue.Due(50) {
		success := false
		next := time.Now().Add(nextBackoff(it.Attempts))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
		if err != nil {
			w.Queue.Fail(it.ID, err.Error(), 0)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Event-Type", it.EventType)
		if it.Secret != "" {
			req.Header.Set(SignatureHeader, Sign(it.Secret, time.Now(), it.Payload))
		}
		resp, err := w.HTTP.Do(req)
		code := 0
		lastErr := ""
		if err != nil {
			lastErr = err.Error()
		} else {
			code = resp.StatusCode
			_ = resp.Body.Close()
			if code >= 200 && code < 300 {
				success = true
			} else {
				lastErr = http.StatusText(code)
			}
		}
		if !success && it.Attempts+1 >= w.MaxAttempts {
			logger.Warnf("webhook %s %s dead-lettered after %d attempts: %s", it.EventType, it.ID, it.Attempts+1, lastErr)
			w.Queue.Fail(it.ID, lastErr, code)
			continue
		}
		w.Queue.Mark(it.ID, success, next, lastErr, code)
	}
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
