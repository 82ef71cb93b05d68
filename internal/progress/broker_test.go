package progress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypePlan, Data: map[string]string{"summary": "Will export 1 files"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: plan.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"summary":"Will export 1 files"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishProgress_Throttle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First and last steps always pass, the ones between are throttled.
	b.PublishProgress("r1", 1, 10)
	b.PublishProgress("r1", 2, 10)
	b.PublishProgress("r1", 3, 10)
	b.PublishProgress("r1", 10, 10)

	time.Sleep(50 * time.Millisecond)
	var got []string
loop:
	for {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		default:
			break loop
		}
	}

	if len(got) != 2 {
		t.Fatalf("progress events = %d, want 2: %q", len(got), got)
	}
	if !strings.Contains(got[0], `"done":1`) || !strings.Contains(got[1], `"done":10`) {
		t.Errorf("unexpected progress events %q", got)
	}
	if !strings.Contains(got[1], "event: export.progress") {
		t.Errorf("missing event type in %q", got[1])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: TypeFinished, Data: map[string]string{"run": "r1"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: export.finished") {
		t.Errorf("handler output missing event: %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: TypeStarted, Data: map[string]int{"i": i}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypeFinished, Data: nil})
	b.PublishProgress("r1", 1, 1)
	b.Close()
}

func TestPublishProgress_PerRun(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Each run gets its own first step; a finished run starts over.
	b.PublishProgress("r1", 1, 5)
	b.PublishProgress("r2", 1, 5)
	b.PublishProgress("r1", 2, 5)
	b.Publish(Event{Type: TypeFinished, Data: map[string]string{"run": "r1"}, Run: "r1"})
	b.PublishProgress("r1", 2, 5)

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 4 {
		select {
		case msg := <-ch:
			got = append(got, string(msg))
		case <-timeout:
			t.Fatalf("got %d events, want 4: %q", len(got), got)
		}
	}
	if !strings.Contains(got[1], `"run":"r2"`) {
		t.Errorf("second event = %q", got[1])
	}
	if !strings.Contains(got[3], `"run":"r1","done":2`) {
		t.Errorf("post-finish progress = %q", got[3])
	}
	for i, msg := range got {
		if !strings.HasPrefix(msg, "id: ") {
			t.Errorf("event %d has no id: %q", i, msg)
		}
	}
}
