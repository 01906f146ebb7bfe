package events

import (
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	jid := "j1"
	ch := b.Subscribe(jid)

	evt := Event{Type: JobImproved, Data: map[string]any{"bestCost": 7}}
	b.Publish(jid, evt)
	b.Publish("other", Event{Type: JobProgress})

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["bestCost"].(int) != 7 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(jid, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// second unsubscribe and publish after close must not panic
	b.Unsubscribe(jid, ch)
	b.Publish(jid, evt)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("j")
	for i := 0; i < 100; i++ {
		b.Publish("j", Event{Type: JobProgress, Data: map[string]any{"generation": i}})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected full buffer, got %d/%d", len(ch), cap(ch))
	}
	first := <-ch
	if first.Data["generation"].(int) != 0 {
		t.Fatalf("expected oldest event first, got %+v", first)
	}
}

func TestBrokerKeepsFinalEventWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("j")
	for i := 0; i < 40; i++ {
		b.Publish("j", Event{Type: JobProgress, Data: map[string]any{"generation": i}})
	}
	b.Publish("j", Event{Type: JobSucceeded, Data: map[string]any{"bestCost": 10}})
	if len(ch) != cap(ch) {
		t.Fatalf("expected full buffer, got %d/%d", len(ch), cap(ch))
	}
	var last Event
	for len(ch) > 0 {
		last = <-ch
	}
	if !last.Final() || last.Data["bestCost"].(int) != 10 {
		t.Fatalf("final event lost, last queued: %+v", last)
	}
	b.Unsubscribe("j", ch)
}

func TestDeliver(t *testing.T) {
	ch := make(chan Event, 2)
	if !deliver(ch, Event{Type: JobProgress}) || !deliver(ch, Event{Type: JobImproved}) {
		t.Fatal("send with free buffer failed")
	}
	if deliver(ch, Event{Type: JobProgress}) {
		t.Fatal("progress should be dropped on a full channel")
	}
	if !deliver(ch, Event{Type: JobFailed}) {
		t.Fatal("final event should replace the oldest one")
	}
	if got := <-ch; got.Type != JobImproved {
		t.Fatalf("oldest event not evicted: %s", got.Type)
	}
	if got := <-ch; got.Type != JobFailed {
		t.Fatalf("expected the final event last, got %s", got.Type)
	}
}

func TestEventFinal(t *testing.T) {
	if !(Event{Type: JobSucceeded}).Final() || !(Event{Type: JobFailed}).Final() {
		t.Fatal("terminal events not final")
	}
	if (Event{Type: JobProgress}).Final() {
		t.Fatal("progress is not final")
	}
}

func TestChanName(t *testing.T) {
	if got := chanName("abc"); got != "job:abc" {
		t.Fatalf("chanName: %s", got)
	}
}
