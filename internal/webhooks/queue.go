package webhooks

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Delivery is one pending webhook POST.
type Delivery struct {
	ID            string    `json:"id"`
	EventType     string    `json:"eventType"`
	URL           string    `json:"url"`
	Secret        string    `json:"-"`
	Payload       []byte    `json:"-"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"nextAttemptAt"`
	LastError     string    `json:"lastError,omitempty"`
	ResponseCode  int       `json:"responseCode,omitempty"`
}

// Queue holds deliveries in memory until they succeed or exhaust their
// attempts; exhausted deliveries move to the dead-letter list.
type Queue struct {
	mu    sync.Mutex
	items map[string]*Delivery
	dead  []Delivery
	now   func() time.Time
}

func NewQueue() *Queue {
	return &Queue{items: map[string]*Delivery{}, now: time.Now}
}

func (q *Queue) Enqueue(eventType, url, secret string, payload []byte) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	d := &Delivery{ID: uuid.New().String(), EventType: eventType, URL: url, Secret: secret, Payload: payload, NextAttemptAt: q.now()}
	q.items[d.ID] = d
	return d.ID
}

// Due returns up to limit deliveries whose next attempt is not after now,
// oldest first.
func (q *Queue) Due(limit int) []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	out := []Delivery{}
	for _, d := range q.items {
		if !d.NextAttemptAt.After(now) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Mark records an attempt. Successful deliveries leave the queue; failed
// ones are rescheduled at next.
func (q *Queue) Mark(id string, success bool, next time.Time, lastError string, code int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.items[id]
	if !ok {
		return
	}
	if success {
		delete(q.items, id)
		return
	}
	d.Attempts++
	d.NextAttemptAt = next
	d.LastError = lastError
	d.ResponseCode = code
}

// Fail moves a delivery to the dead-letter list.
func (q *Queue) Fail(id, lastError string, code int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	d, ok := q.items[id]
	if !ok {
		return
	}
	delete(q.items, id)
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = code
	q.dead = append(q.dead, *d)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dead returns a copy of the dead-letter list.
func (q *Queue) Dead() []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Delivery(nil), q.dead...)
}
