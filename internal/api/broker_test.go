package api

import (
	"testing"
	"time"

	"paintshop/internal/model"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	rid := "r1"
	ch := b.Subscribe(rid)
	other := b.Subscribe("r2")

	evt := model.RunEvent{Type: "run.started", RunID: rid, Data: map[string]any{"x": 1}}
	b.Publish(rid, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["x"].(int) != 1 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-other:
		t.Fatalf("event leaked to another run: %+v", got)
	default:
	}

	b.Unsubscribe(rid, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// second unsubscribe is a no-op
	b.Unsubscribe(rid, ch)
	b.Publish(rid, evt)
	b.Unsubscribe("r2", other)
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r")
	defer b.Unsubscribe("r", ch)
	for i := 0; i < 100; i++ {
		b.Publish("r", model.RunEvent{Type: "run.warning"})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer: got %d of %d", len(ch), cap(ch))
	}
}
