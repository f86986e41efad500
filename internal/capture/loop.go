package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the capture loop lifecycle
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateCooldown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateCooldown:
		return "cooldown"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Handler receives each accepted scan
type Handler func(badge string)

// DefaultCooldown applies when Options.Cooldown is not set
const DefaultCooldown = 2 * time.Second

// Options tunes a Loop
type Options struct {
	PollInterval time.Duration
	Cooldown     time.Duration
	// MaxRuntime ends a loop that was never stopped. Zero disables it.
	MaxRuntime time.Duration
}

// Loop polls a Source on a background goroutine and hands every physical
// badge presentation to the handler exactly once.
type Loop struct {
	src     Source
	handler Handler
	opts    Options
	log     *zap.Logger

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewLoop creates a stopped loop
func NewLoop(src Source, handler Handler, opts Options, log *zap.Logger) *Loop {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 400 * time.Millisecond
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		src:     src,
		handler: handler,
		opts:    opts,
		log:     log.Named("capture"),
	}
}

// State returns the current lifecycle state
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start begins polling. It is a no-op while the loop is already running.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if l.opts.MaxRuntime > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), l.opts.MaxRuntime)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	l.gen++
	l.cancel = cancel
	l.state = StatePolling

	go l.run(ctx, l.gen)
	l.log.Info("capture loop started",
		zap.Duration("interval", l.opts.PollInterval),
		zap.Duration("cooldown", l.opts.Cooldown),
		zap.Duration("maxRuntime", l.opts.MaxRuntime))
}

// Stop requests cancellation and returns immediately. At most one poll
// already in flight may still complete, and its badge is still delivered.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.state != StateStopped {
		l.state = StateStopped
		l.log.Info("capture loop stopped")
	}
}

// setState moves the loop of generation gen to s, unless that run is over
func (l *Loop) setState(gen uint64, s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == gen && l.cancel != nil {
		l.state = s
	}
}

// finish marks run gen as ended on its own (max runtime or panic)
func (l *Loop) finish(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == gen && l.cancel != nil {
		l.cancel()
		l.cancel = nil
		l.state = StateStopped
	}
}

func (l *Loop) run(ctx context.Context, gen uint64) {
	defer l.finish(gen)
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("capture loop crashed", zap.Any("panic", r))
		}
	}()

	ticker := time.NewTicker(l.opts.PollInterval)
	defer ticker.Stop()

	var (
		lastBadge     string
		cooldownUntil time.Time
		coolingDown   bool
	)

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				l.log.Warn("capture loop reached max runtime", zap.Duration("maxRuntime", l.opts.MaxRuntime))
			}
			return
		case <-ticker.C:
		}

		if coolingDown && !time.Now().Before(cooldownUntil) {
			coolingDown = false
			l.setState(gen, StatePolling)
		}

		badge, ok, err := l.src.Poll()
		if err != nil {
			l.log.Warn("capture source unreadable", zap.Error(err))
			continue
		}
		// A badge already taken from the source is delivered even if the
		// loop was stopped during the poll; it cannot be put back.
		if !ok {
			continue
		}
		if coolingDown && badge == lastBadge {
			l.log.Debug("duplicate scan suppressed", zap.String("badge", badge))
			continue
		}

		lastBadge = badge
		l.deliver(badge)

		coolingDown = true
		cooldownUntil = time.Now().Add(l.opts.Cooldown)
		l.setState(gen, StateCooldown)
	}
}

func (l *Loop) deliver(badge string) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("scan handler panicked", zap.String("badge", badge), zap.Any("panic", r))
		}
	}()
	l.log.Debug("scan accepted", zap.String("badge", badge))
	l.handler(badge)
}
