package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/jurisdata/internal/model"
	"github.com/nao1215/jurisdata/internal/protocol"
	"github.com/nao1215/jurisdata/internal/transport"
)

// Transport is the connection used for round-trips. *transport.Conn
// implements it.
type Transport interface {
	Send(p []byte) error
	ReceiveMore(buf []byte) ([]byte, error)
	Interrupt() error
	State() transport.State
	Close() error
}

// DialFunc creates a fresh connection.
type DialFunc func(ctx context.Context) (Transport, error)

// Phase is the live phase of the orchestrator.
type Phase int32

const (
	// PhaseIdle means no round-trip is running.
	PhaseIdle Phase = iota

	// PhaseRequesting means the request is being built and sent.
	PhaseRequesting

	// PhaseAwaitingResponse means the response is being received.
	PhaseAwaitingResponse
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequesting:
		return "requesting"
	case PhaseAwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// Run describes one finished discovery.
type Run struct {
	ID            string
	URL           string
	StartedAt     time.Time
	Duration      time.Duration
	Outcome       model.Outcome
	BytesReceived int
	Err           error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBlockSize sets the initial receive buffer capacity.
func WithBlockSize(n int) Option {
	return func(o *Orchestrator) {
		o.blockSize = n
	}
}

// WithRedial sets how a fresh connection is made when the current one is
// missing or broken.
func WithRedial(dial DialFunc) Option {
	return func(o *Orchestrator) {
		o.redial = dial
	}
}

// WithInterruptOnCancel controls whether cancelling a run interrupts a
// pending receive. Enabled by default.
func WithInterruptOnCancel(enabled bool) Option {
	return func(o *Orchestrator) {
		o.interruptOnCancel = enabled
	}
}

// task is one background round-trip.
type task struct {
	active atomic.Bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Orchestrator runs at most one discovery at a time and holds the Result of
// the last successful one.
type Orchestrator struct {
	logger            *slog.Logger
	blockSize         int
	redial            DialFunc
	interruptOnCancel bool

	// startMu serializes StartDiscovery and Close.
	startMu sync.Mutex
	closed  bool
	current atomic.Pointer[task]

	complete atomic.Bool
	phase    atomic.Int32

	connMu sync.Mutex
	conn   Transport

	// mu guards result and lastRun.
	mu      sync.Mutex
	result  model.Result
	lastRun Run
}

// New creates an Orchestrator using t. t may be nil when WithRedial is set.
func New(t Transport, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:            slog.Default(),
		blockSize:         protocol.DefaultBlockSize,
		interruptOnCancel: true,
		conn:              t,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartDiscovery launches a round-trip for url in the background. It
// returns false without doing anything while another discovery is in
// flight or after Close.
func (o *Orchestrator) StartDiscovery(ctx context.Context, url string) bool {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	if o.closed {
		return false
	}
	prev := o.current.Load()
	if prev != nil {
		if prev.active.Load() {
			return false
		}
		// Cancelled runs may still be unwinding.
		<-prev.done
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	t.active.Store(true)

	o.complete.Store(false)
	o.current.Store(t)
	go o.run(runCtx, t, url)
	return true
}

// InFlight reports whether a discovery is running and not cancelled.
func (o *Orchestrator) InFlight() bool {
	t := o.current.Load()
	return t != nil && t.active.Load()
}

// ConsumeComplete reports whether a discovery finished since the last call,
// clearing the flag. Each discovery is reported once.
func (o *Orchestrator) ConsumeComplete() bool {
	return o.complete.CompareAndSwap(true, false)
}

// State returns the live phase.
func (o *Orchestrator) State() Phase {
	return Phase(o.phase.Load())
}

// Outcome returns the outcome of the last finished discovery.
func (o *Orchestrator) Outcome() model.Outcome {
	return o.LastRun().Outcome
}

// LastRun returns the record of the last finished discovery.
func (o *Orchestrator) LastRun() Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRun
}

// ObserveResult returns a copy of the last successful Result.
func (o *Orchestrator) ObserveResult() model.Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result.Clone()
}

// Cancel stops the in-flight discovery, if any. The run ends without
// touching the Result.
func (o *Orchestrator) Cancel() {
	t := o.current.Load()
	if t == nil {
		return
	}

	o.mu.Lock()
	t.active.Store(false)
	o.mu.Unlock()

	t.cancel()
}

// Wait blocks until the current discovery, if any, has finished.
func (o *Orchestrator) Wait() {
	if t := o.current.Load(); t != nil {
		<-t.done
	}
}

// Close cancels any discovery, waits for it and closes the connection.
// StartDiscovery returns false afterwards.
func (o *Orchestrator) Close() error {
	o.startMu.Lock()
	o.closed = true
	o.startMu.Unlock()

	o.Cancel()
	o.Wait()

	o.connMu.Lock()
	defer o.connMu.Unlock()
	if o.conn == nil {
		return nil
	}
	err := o.conn.Close()
	o.conn = nil
	return err
}

// alive reports whether t may keep going. Every step of a round-trip checks
// it.
func alive(ctx context.Context, t *task) bool {
	return t.active.Load() && ctx.Err() == nil
}

func (o *Orchestrator) run(ctx context.Context, t *task, url string) {
	defer close(t.done)
	defer t.cancel()

	run := Run{
		ID:        uuid.NewString(),
		URL:       url,
		StartedAt: time.Now(),
	}
	logger := o.logger.With("discovery_id", run.ID, "url", url)
	logger.Debug("discovery started")

	run.Outcome, run.Err = o.roundTrip(ctx, t, url, &run, logger)
	run.Duration = time.Since(run.StartedAt)

	o.mu.Lock()
	o.lastRun = run
	o.mu.Unlock()

	o.phase.Store(int32(PhaseIdle))
	t.active.Store(false)
	o.complete.Store(true)

	switch run.Outcome {
	case model.OutcomeCompleted:
		logger.Info("discovery completed",
			"bytes", run.BytesReceived,
			"duration", run.Duration)
	case model.OutcomeCancelled:
		logger.Info("discovery cancelled")
	default:
		logger.Warn("discovery failed",
			"bytes", run.BytesReceived,
			"error", run.Err)
	}
}

func (o *Orchestrator) roundTrip(ctx context.Context, t *task, url string, run *Run, logger *slog.Logger) (model.Outcome, error) {
	o.phase.Store(int32(PhaseRequesting))

	payload, err := protocol.EncodeRequest(protocol.NewScrapeRequest(url))
	if err != nil {
		return model.OutcomeFailed, err
	}
	if !alive(ctx, t) {
		return model.OutcomeCancelled, ErrCancelled
	}

	conn, err := o.connection(ctx)
	if err != nil {
		if !alive(ctx, t) {
			return model.OutcomeCancelled, ErrCancelled
		}
		return model.OutcomeFailed, err
	}
	if o.interruptOnCancel {
		stop := context.AfterFunc(ctx, func() {
			if err := conn.Interrupt(); err != nil {
				logger.Debug("failed to interrupt receive", "error", err)
			}
		})
		defer stop()
	}

	if err := conn.Send(payload); err != nil {
		if !alive(ctx, t) {
			return model.OutcomeCancelled, ErrCancelled
		}
		return model.OutcomeFailed, fmt.Errorf("failed to send request: %w", err)
	}
	if !alive(ctx, t) {
		return model.OutcomeCancelled, ErrCancelled
	}

	o.phase.Store(int32(PhaseAwaitingResponse))
	if !alive(ctx, t) {
		return model.OutcomeCancelled, ErrCancelled
	}

	raw, err := protocol.NewFramer(
		protocol.WithBlockSize(o.blockSize),
		protocol.WithFramerLogger(o.logger),
	).ReadMessage(conn)
	run.BytesReceived = len(raw)
	if !alive(ctx, t) {
		return model.OutcomeCancelled, ErrCancelled
	}
	if err != nil {
		return model.OutcomeFailed, fmt.Errorf("failed to receive response: %w", err)
	}

	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		logger.Warn("malformed response",
			"bytes", len(raw),
			"payload", string(raw),
			"error", err)
		return model.OutcomeFailed, err
	}
	if !resp.Success {
		return model.OutcomeFailed, ErrUnsuccessful
	}
	result := resp.Result()

	o.mu.Lock()
	defer o.mu.Unlock()
	if !alive(ctx, t) {
		return model.OutcomeCancelled, ErrCancelled
	}
	o.result = result
	return model.OutcomeCompleted, nil
}

// connection returns the current connection, dialing a fresh one when it is
// missing or broken and a DialFunc is set.
func (o *Orchestrator) connection(ctx context.Context) (Transport, error) {
	o.connMu.Lock()
	defer o.connMu.Unlock()

	if o.conn != nil && o.conn.State() != transport.StateBroken {
		return o.conn, nil
	}
	if o.redial == nil {
		if o.conn == nil {
			return nil, ErrNoConnection
		}
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, transport.ErrBroken)
	}

	fresh, err := o.redial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoConnection, err)
	}
	if o.conn != nil {
		if err := o.conn.Close(); err != nil && !errors.Is(err, transport.ErrBroken) {
			o.logger.Debug("failed to close broken connection", "error", err)
		}
	}
	o.conn = fresh
	o.logger.Debug("dialed fresh connection")
	return fresh, nil
}
