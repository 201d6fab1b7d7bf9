// Package follower implements the chain-following state machine: poll the
// node for the next block, append it or roll back on a fork, and
// periodically prune old consumed state.
package follower

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lay2dev/chainindex/internal/codec"
	"github.com/lay2dev/chainindex/internal/rpc"
	"github.com/lay2dev/chainindex/internal/store"
	"github.com/lay2dev/chainindex/pkg/logging"
)

// fastCatchupDelay is the inter-cycle delay used while the follower is
// behind the node's tip, so catch-up doesn't wait out a full poll interval
// between every block.
const fastCatchupDelay = time.Millisecond

// StoreError wraps a failure from the store during append or rollback. It
// is treated as potentially fatal: the transaction is rolled back in full
// and the follower stops, to be restarted by the supervisor against the
// same block.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string { return fmt.Sprintf("follower: %s: %v", e.Op, e.Cause) }
func (e *StoreError) Unwrap() error { return e.Cause }

// Config holds the follower's scheduling parameters.
type Config struct {
	PollInterval  time.Duration
	KeepNum       uint64
	PruneInterval uint64
}

// Follower is the single writer to the store: it owns the poll/append/
// rollback/prune cycle and nothing else writes to the database.
type Follower struct {
	store *store.Storage
	rpc   *rpc.Client
	cfg   Config
	log   *logging.Logger

	newBlockListener func(*rpc.Block)

	mu    sync.Mutex
	state State

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Follower. newBlockListener may be nil.
func New(st *store.Storage, client *rpc.Client, cfg Config, newBlockListener func(*rpc.Block)) *Follower {
	return &Follower{
		store:            st,
		rpc:              client,
		cfg:              cfg,
		log:              logging.GetDefault().Component("follower"),
		newBlockListener: newBlockListener,
		state:            StateStopped,
	}
}

// Start transitions the follower to Running and launches its poll loop.
// Starting an already-running follower is a no-op.
func (f *Follower) Start() {
	f.mu.Lock()
	if f.state == StateRunning {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan struct{})
	f.state = StateRunning
	f.mu.Unlock()

	go f.run(ctx)
}

// Stop requests the poll loop to exit after its current cycle completes,
// and blocks until it has.
func (f *Follower) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	done := f.done
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	f.mu.Lock()
	f.state = StateStopped
	f.mu.Unlock()
}

// Running reports whether the follower's poll loop is currently active.
func (f *Follower) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateRunning
}

// State returns the follower's current lifecycle state.
func (f *Follower) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Tip returns the highest retained block, or nil if the store is empty.
func (f *Follower) Tip() (*store.BlockDigest, error) {
	return f.store.Tip()
}

func (f *Follower) run(ctx context.Context) {
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// The cycle runs detached from ctx so that Stop lets an in-flight
		// cycle (RPC fetch and store transaction) complete.
		sleep, err := f.cycle(context.WithoutCancel(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			f.log.Error("poll cycle failed", "error", err)
			f.mu.Lock()
			f.state = StateFailed
			f.mu.Unlock()
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// cycle runs one iteration of the polling loop described in the follower's
// state-machine contract and returns how long to wait before the next one.
func (f *Follower) cycle(ctx context.Context) (time.Duration, error) {
	tip, err := f.store.Tip()
	if err != nil {
		return 0, &StoreError{Op: "read tip", Cause: err}
	}

	if tip == nil {
		block, err := f.rpc.GetBlockByNumber(ctx, "0x0")
		if err != nil {
			return 0, err
		}
		if block == nil {
			return f.cfg.PollInterval, nil
		}
		if err := f.append(ctx, block); err != nil {
			return 0, err
		}
		return fastCatchupDelay, nil
	}

	next := tip.BlockNumber + 1
	block, err := f.rpc.GetBlockByNumber(ctx, codec.Uint64ToHex(next))
	if err != nil {
		return 0, err
	}
	if block == nil {
		return f.cfg.PollInterval, nil
	}

	if block.Header.ParentHash == codec.BytesToHex(tip.BlockHash[:]) {
		if err := f.append(ctx, block); err != nil {
			return 0, err
		}
		return fastCatchupDelay, nil
	}

	if err := f.rollback(tip); err != nil {
		return 0, err
	}
	return fastCatchupDelay, nil
}
