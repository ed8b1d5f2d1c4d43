// Package session implements the Session Manager component: it owns the
// "at most one active streaming task per session id" invariant, drives the
// Agent Orchestrator for each accepted start_stream, and exposes the Event
// Bus's broadcast to callers via subscribe. Grounded on the teacher's
// internal/sessions/memory.go mutex-guarded map shape (no persistence — the
// spec's Non-goals exclude durable session storage) and the refcounted
// lock/release pattern of internal/agent/tool_registry.go's sessionLock,
// generalized from a resource lock into a per-session stream lock.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/CriticalRange/arula-cli-sub001/internal/eventbus"
	"github.com/CriticalRange/arula-cli-sub001/internal/metrics"
	"github.com/CriticalRange/arula-cli-sub001/internal/orchestrator"
	"github.com/CriticalRange/arula-cli-sub001/pkg/models"
)

// StartStreamRequest bundles everything one start_stream call needs.
type StartStreamRequest struct {
	SessionID string
	Profile   models.ProviderProfile
	System    string
	Prompt    string
	History   []models.ChatMessage
	Config    orchestrator.LoopConfig
}

// ErrAlreadyActive is returned by StartStream when session_id already has a
// running streaming task.
var ErrAlreadyActive = fmt.Errorf("session already has an active stream")

// active tracks one in-flight streaming task: its cancellation handle and
// the done channel the manager waits on to know the task has exited.
type active struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is the Session Manager: a mutex-guarded table of at-most-one
// active task per session id, a Loop to drive each task, and the Event Bus
// every UI event is published to. A Manager is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	active  map[string]*active
	loop    *orchestrator.Loop
	bus     *eventbus.Bus
	metrics *metrics.Metrics
}

// NewManager constructs a Manager. bus and m may be nil for a headless
// caller that only cares about loop's returned StreamEvent channel (tests).
func NewManager(loop *orchestrator.Loop, bus *eventbus.Bus, m *metrics.Metrics) *Manager {
	return &Manager{
		active:  make(map[string]*active),
		loop:    loop,
		bus:     bus,
		metrics: m,
	}
}

// StartStream accepts a new streaming task for req.SessionID, rejecting
// with ErrAlreadyActive if one is already running. On acceptance it spawns
// a goroutine that emits StreamStarted and drives the Orchestrator's
// StreamTurn to completion before the task's handle is removed. StreamTurn
// itself publishes Token/Thinking/ToolCallStart/ToolCallResult and the
// turn's closing StreamFinished or StreamErrored; a turn ended by
// cancellation publishes neither (StopStream publishes StreamFinished).
// A panic anywhere in the driven turn is converted to StreamErrored rather
// than propagated, so one broken session can never take down the manager.
func (m *Manager) StartStream(ctx context.Context, req StartStreamRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("session id must not be empty")
	}

	taskCtx, cancel := context.WithCancel(ctx)
	entry := &active{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if _, exists := m.active[req.SessionID]; exists {
		m.mu.Unlock()
		cancel()
		return ErrAlreadyActive
	}
	m.active[req.SessionID] = entry
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
	}

	go m.run(taskCtx, req, entry)
	return nil
}

func (m *Manager) run(ctx context.Context, req StartStreamRequest, entry *active) {
	defer close(entry.done)
	defer m.release(req.SessionID)
	defer func() {
		if p := recover(); p != nil {
			m.publish(ctx, models.NewStreamErrored(req.SessionID, fmt.Sprintf("session panic: %v", p)))
		}
	}()

	m.publish(ctx, models.NewStreamStarted(req.SessionID))

	// The Loop owns translating its own StreamEvent sequence into
	// StreamFinished/StreamErrored on the bus (spec.md section 2: "(B)
	// translates those into UI events on (G)"); draining the channel here
	// is only to block until the turn is fully done before releasing the
	// session's lock.
	events := m.loop.StreamTurn(ctx, req.SessionID, req.Profile, req.System, req.Prompt, req.History, req.Config)
	for range events {
	}
}

// release removes session_id's active-task entry, making the session
// eligible for a future StartStream call.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	delete(m.active, sessionID)
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
	}
}

// StopStream triggers session_id's cancellation handle if one is active,
// and always emits StreamFinished so the UI settles even if the task had
// already exited (or never existed) by the time this call runs.
func (m *Manager) StopStream(sessionID string) {
	m.mu.Lock()
	entry, ok := m.active[sessionID]
	m.mu.Unlock()
	if ok {
		entry.cancel()
	}
	m.publish(context.Background(), models.NewStreamFinished(sessionID))
}

// IsActive reports whether session_id currently has a running stream task.
func (m *Manager) IsActive(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[sessionID]
	return ok
}

// Subscribe returns a new subscriber to the Event Bus's broadcast. A nil
// Bus yields a Subscription whose Events channel is immediately closed, so
// a headless Manager never blocks a caller waiting on it.
func (m *Manager) Subscribe() *eventbus.Subscription {
	if m.bus == nil {
		closed := make(chan models.UIEvent)
		close(closed)
		return &eventbus.Subscription{Events: closed}
	}
	return m.bus.Subscribe()
}

// publish is a nil-safe send to the bus; every send operation ignores "no
// subscribers" by construction (eventbus.Bus.Publish is itself a no-op
// broadcast when nobody is subscribed).
func (m *Manager) publish(ctx context.Context, ev models.UIEvent) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, ev)
}
