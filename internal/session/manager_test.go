package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CriticalRange/arula-cli-sub001/internal/eventbus"
	"github.com/CriticalRange/arula-cli-sub001/internal/metrics"
	"github.com/CriticalRange/arula-cli-sub001/internal/orchestrator"
	"github.com/CriticalRange/arula-cli-sub001/internal/providers"
	"github.com/CriticalRange/arula-cli-sub001/internal/tools"
	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

func sseTextServer(t *testing.T, text string, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		chunks := []string{
			`{"id":"c1","choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
			fmt.Sprintf(`{"id":"c1","choices":[{"index":0,"delta":{"content":%q}}]}`, text),
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
			if flusher != nil {
				flusher.Flush()
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
		fmt.Fprintf(w, "data: %s\n\n", `{"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		if flusher != nil {
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newTestManager(server *httptest.Server) (*Manager, *eventbus.Bus, models.ProviderProfile) {
	adapter := providers.NewAdapter()
	registry := tools.NewRegistry()
	bus := eventbus.New()
	loop := orchestrator.NewLoop(adapter, registry, bus, metrics.New())
	manager := NewManager(loop, bus, metrics.New())
	profile := models.ProviderProfile{
		Family:   models.FamilyOpenAI,
		Endpoint: server.URL,
		APIKey:   "test-key",
		Model:    "gpt-4o-mini",
	}
	return manager, bus, profile
}

func TestManager_StartStreamRejectsWhileActive(t *testing.T) {
	server := sseTextServer(t, "hello", 50*time.Millisecond)
	defer server.Close()

	manager, _, profile := newTestManager(server)
	req := StartStreamRequest{SessionID: "s1", Profile: profile, Prompt: "hi"}

	if err := manager.StartStream(context.Background(), req); err != nil {
		t.Fatalf("first StartStream: %v", err)
	}
	if err := manager.StartStream(context.Background(), req); err != ErrAlreadyActive {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	deadline := time.After(2 * time.Second)
	for manager.IsActive("s1") {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for session to finish")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := manager.StartStream(context.Background(), req); err != nil {
		t.Fatalf("expected StartStream to succeed again once the first task finished: %v", err)
	}
}

func TestManager_EmitsLifecycleEvents(t *testing.T) {
	server := sseTextServer(t, "hi", 0)
	defer server.Close()

	manager, bus, profile := newTestManager(server)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	req := StartStreamRequest{SessionID: "s2", Profile: profile, Prompt: "hi"}
	if err := manager.StartStream(context.Background(), req); err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	var first, last models.UIEvent
	deadline := time.After(2 * time.Second)
	var n int
	for {
		select {
		case ev := <-sub.Events:
			if first == nil {
				first = ev
			}
			last = ev
			n++
		case <-deadline:
			t.Fatal("timed out waiting for lifecycle events")
		}
		if _, ok := last.(models.StreamFinished); ok {
			break
		}
	}
	if n < 2 {
		t.Fatalf("expected at least StreamStarted and StreamFinished, got %d events", n)
	}
	if _, ok := first.(models.StreamStarted); !ok {
		t.Fatalf("expected first event StreamStarted, got %T", first)
	}
}

func TestManager_StopStreamAlwaysEmitsStreamFinished(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	manager, bus, _ := newTestManager(server)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	manager.StopStream("never-started")

	select {
	case ev := <-sub.Events:
		if _, ok := ev.(models.StreamFinished); !ok {
			t.Fatalf("expected StreamFinished, got %T", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for StreamFinished")
	}
}

func TestManager_StopStreamCancelsRunningTask(t *testing.T) {
	server := sseTextServer(t, "slow", 200*time.Millisecond)
	defer server.Close()

	manager, bus, profile := newTestManager(server)
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	req := StartStreamRequest{SessionID: "s3", Profile: profile, Prompt: "hi"}
	if err := manager.StartStream(context.Background(), req); err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	// Let the task actually start before cancelling it.
	select {
	case ev := <-sub.Events:
		if _, ok := ev.(models.StreamStarted); !ok {
			t.Fatalf("expected StreamStarted first, got %T", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for StreamStarted")
	}

	manager.StopStream("s3")

	deadline := time.After(2 * time.Second)
	for manager.IsActive("s3") {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for cancelled session to finish")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
