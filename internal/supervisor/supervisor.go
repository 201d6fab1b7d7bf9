// Package supervisor is a thin liveness watchdog that restarts the chain
// follower on failure.
package supervisor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lay2dev/chainindex/internal/store"
	"github.com/lay2dev/chainindex/pkg/logging"
)

// Config configures the liveness check cadence.
type Config struct {
	LivenessCheckInterval time.Duration
}

// Follower is the subset of *follower.Follower the supervisor depends on,
// narrowed for testability.
type Follower interface {
	Start()
	Running() bool
	Tip() (*store.BlockDigest, error)
}

// Supervisor restarts the follower whenever a liveness tick observes it
// stopped running, and otherwise logs the current tip.
type Supervisor struct {
	follower Follower
	cfg      Config
	log      *logging.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Supervisor for f.
func New(f Follower, cfg Config) *Supervisor {
	return &Supervisor{
		follower: f,
		cfg:      cfg,
		log:      logging.GetDefault().Component("supervisor"),
	}
}

// StartForever starts the follower and arms the periodic liveness check.
// It returns once the background goroutine is running; call Stop to tear
// it down.
func (s *Supervisor) StartForever() {
	s.follower.Start()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

// Stop ends the liveness loop. It does not stop the follower itself.
func (s *Supervisor) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.LivenessCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Supervisor) tick() {
	if !s.follower.Running() {
		attempt := uuid.NewString()
		s.log.Error("follower not running, restarting", "restart_id", attempt)
		s.follower.Start()
		return
	}

	tip, err := s.follower.Tip()
	if err != nil {
		s.log.Error("liveness check: read tip failed", "error", err)
		return
	}
	if tip == nil {
		s.log.Info("liveness check: follower running, store empty")
		return
	}
	s.log.Info("liveness check: follower running", "tip_block_number", tip.BlockNumber)
}
