package agent

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Runner lifecycle states.
const (
	StateStopped  = "stopped"
	StateStarting = "starting"
	StateRunning  = "running"
	StateStopping = "stopping"
)

const (
	baseInterval = 4 * time.Second
	maxInterval  = 60 * time.Second
	startTimeout = 15 * time.Second
)

// Runner drives one agent's loop: observe, decide, act, sleep.
type Runner struct {
	mgr    *Manager
	wallet string

	mu         sync.Mutex
	state      string
	iterations int64
	lastAction string
	lastErr    string
	lastActive time.Time
	failures   int

	stop chan struct{}
	done chan struct{}
}

func newRunner(mgr *Manager, wallet string) *Runner {
	return &Runner{
		mgr:    mgr,
		wallet: wallet,
		state:  StateStopped,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (r *Runner) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) Telemetry() (iterations int64, lastAction, lastErr string, lastActive time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.iterations, r.lastAction, r.lastErr, r.lastActive
}

func (r *Runner) setState(s string) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Start launches the loop and blocks until the first iteration confirms the
// agent is alive, or the start deadline passes.
func (r *Runner) Start(ctx context.Context) error {
	r.setState(StateStarting)
	confirmed := make(chan error, 1)
	go r.loop(confirmed)

	select {
	case err := <-confirmed:
		if err != nil {
			r.Stop()
			return err
		}
		return nil
	case <-time.After(startTimeout):
		r.Stop()
		return fmt.Errorf("agent %s did not confirm within %s", r.wallet, startTimeout)
	case <-ctx.Done():
		r.Stop()
		return ctx.Err()
	}
}

// Stop requests shutdown and waits for the loop goroutine to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.state == StateStopped {
		r.mu.Unlock()
		return
	}
	r.state = StateStopping
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	r.mu.Unlock()

	<-r.done
	r.setState(StateStopped)
}

func (r *Runner) loop(confirmed chan<- error) {
	defer close(r.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.stop
		cancel()
	}()

	first := true
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		err := r.iterate(ctx)

		r.mu.Lock()
		r.iterations++
		r.lastActive = time.Now()
		if err != nil {
			r.lastErr = err.Error()
			r.failures++
		} else {
			r.lastErr = ""
			r.failures = 0
		}
		failures := r.failures
		r.mu.Unlock()

		if first {
			first = false
			if err != nil {
				confirmed <- fmt.Errorf("first iteration: %w", err)
				return
			}
			r.setState(StateRunning)
			confirmed <- nil
		}
		if err != nil {
			slog.Warn("agent iteration failed", "wallet", r.wallet, "err", err)
		}

		select {
		case <-r.stop:
			return
		case <-time.After(r.sleepFor(failures)):
		}
	}
}

// sleepFor backs off exponentially on consecutive failures and jitters every
// interval so a fleet of agents doesn't act in lockstep.
func (r *Runner) sleepFor(failures int) time.Duration {
	d := baseInterval
	for i := 0; i < failures && d < maxInterval; i++ {
		d *= 2
	}
	if d > maxInterval {
		d = maxInterval
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4))
	return d + jitter
}

// iterate runs one observe/decide/act cycle.
func (r *Runner) iterate(ctx context.Context) error {
	cfg, err := r.mgr.store.LoadAgentConfig(ctx, r.wallet)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Enabled {
		return fmt.Errorf("agent disabled")
	}

	zone, e := r.mgr.svc.Runtime.FindPlayer(r.wallet)
	if e == nil {
		return fmt.Errorf("agent character not in world")
	}
	if cfg.ZoneID != zone.ID || cfg.EntityID != e.ID {
		cfg.ZoneID, cfg.EntityID = zone.ID, e.ID
		r.mgr.store.SaveAgentConfig(r.wallet, cfg)
	}

	// Cross-zone intent takes priority over the focus policy.
	if cfg.TargetZone != "" && cfg.TargetZone != zone.ID {
		if moved, err := r.travelToward(ctx, cfg); err == nil {
			r.note(moved)
			return nil
		}
		// No portal in reach yet; keep walking via the policy below.
	}

	action, err := r.act(ctx, cfg, zone.ID, e.ID)
	if err != nil {
		return err
	}
	r.note(action)
	return nil
}

func (r *Runner) note(action string) {
	r.mu.Lock()
	r.lastAction = action
	r.mu.Unlock()
}
