// Package notify delivers wager lifecycle events to a webhook endpoint.
// Delivery is best effort and fully decoupled from the state machine: intents
// are queued after the state change commits, a worker pool pushes them out,
// failures retry with backoff behind a circuit breaker and are eventually
// dropped. Nothing here ever propagates an error back into a wager operation.
package notify

import (
	"context"
	"sync"
	"time"
)

// Event kinds emitted by the wager lifecycle.
const (
	EventWagerCreated     = "wager_created"
	EventWagerAccepted    = "wager_accepted"
	EventMatchStarted     = "match_started"
	EventResultSubmitted  = "result_submitted"
	EventWagerCompleted   = "wager_completed"
	EventWagerCancelled   = "wager_cancelled"
	EventDisputeOpened    = "dispute_opened"
	EventDisputeResolved  = "dispute_resolved"
	EventReadyCheckExpiry = "ready_check_expired"
)

// Intent is one notification to deliver.
type Intent struct {
	Event   string            `json:"event"`
	WagerID string            `json:"wager_id"`
	UserIDs []string          `json:"user_ids"`
	Detail  map[string]string `json:"detail,omitempty"`
	TS      time.Time         `json:"ts"`
}

type job struct {
	intent  Intent
	attempt int
}

// Sender pushes one intent to the external endpoint.
type Sender interface {
	Send(ctx context.Context, intent Intent) error
}

type Config struct {
	Enabled          bool
	Workers          int
	RetryMax         int
	RetryBase        time.Duration
	FailureThreshold int
	OpenDuration     time.Duration
	Buffer           int
}

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

type Manager struct {
	cfg    Config
	sender Sender

	dispatchCh chan job
	done       chan struct{}

	mu      sync.Mutex
	started bool
	breaker breakerState
}

func NewManager(cfg Config, sender Sender) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = 30 * time.Second
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	return &Manager{
		cfg:        cfg,
		sender:     sender,
		dispatchCh: make(chan job, cfg.Buffer),
		done:       make(chan struct{}),
	}
}

func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled || m.sender == nil {
		return
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
}

// Emit queues an intent. A full queue drops the intent rather than blocking
// the caller.
func (m *Manager) Emit(intent Intent) {
	if !m.cfg.Enabled || m.sender == nil {
		return
	}
	if intent.TS.IsZero() {
		intent.TS = time.Now().UTC()
	}
	select {
	case m.dispatchCh <- job{intent: intent}:
		metricQueuedTotal.Add(1)
		metricQueueLen.Set(int64(len(m.dispatchCh)))
	default:
		metricDroppedTotal.Add(1)
	}
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case j := <-m.dispatchCh:
			metricQueueLen.Set(int64(len(m.dispatchCh)))
			m.process(ctx, j)
		}
	}
}

func (m *Manager) process(ctx context.Context, j job) {
	now := time.Now()
	if m.circuitOpen(now) {
		metricCircuitOpenTotal.Add(1)
		m.retryOrDrop(j)
		return
	}
	if err := m.sender.Send(ctx, j.intent); err != nil {
		metricFailedTotal.Add(1)
		m.recordFailure(time.Now())
		m.retryOrDrop(j)
		return
	}
	metricSentTotal.Add(1)
	m.recordSuccess()
}

func (m *Manager) retryOrDrop(j job) {
	if j.attempt >= m.cfg.RetryMax {
		metricRetryDroppedTotal.Add(1)
		return
	}
	j.attempt++
	metricRetryTotal.Add(1)
	delay := m.cfg.RetryBase * time.Duration(1<<(j.attempt-1))
	time.AfterFunc(delay, func() {
		select {
		case <-m.done:
		case m.dispatchCh <- j:
			metricQueueLen.Set(int64(len(m.dispatchCh)))
		}
	})
}

func (m *Manager) circuitOpen(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.breaker.openUntil.IsZero() && now.Before(m.breaker.openUntil)
}

func (m *Manager) recordFailure(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaker.consecutiveFailures++
	if m.breaker.consecutiveFailures >= m.cfg.FailureThreshold {
		m.breaker.openUntil = now.Add(m.cfg.OpenDuration)
		m.breaker.consecutiveFailures = 0
	}
}

func (m *Manager) recordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaker = breakerState{}
}
