// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/naviscope/internal/plugin"
)

// FlowControlConfig bounds the runtime's resource usage (spec.md §5).
type FlowControlConfig struct {
	ChannelCapacity   int
	MaxInFlight       int
	DeferredPollLimit int
	IdleSleep         time.Duration
}

// DefaultFlowControl takes runtime.GOMAXPROCS(0), clamped to [1, 8] after
// the teacher's 8-worker cap (pkg/ingestion/resolver.go
// resolveCallsParallel), and sets MaxInFlight, which is also the number
// of executor goroutines Run starts, to four times that.
func DefaultFlowControl() FlowControlConfig {
	workers := runtime.GOMAXPROCS(0)
	if workers > 8 {
		workers = 8
	}
	if workers < 1 {
		workers = 1
	}
	return FlowControlConfig{
		ChannelCapacity:   256,
		MaxInFlight:       workers * 4,
		DeferredPollLimit: 64,
		IdleSleep:         50 * time.Millisecond,
	}
}

// CommitFunc applies one epoch's accumulated ops to the graph and
// publishes the resulting snapshot. Returning an error means the
// epoch is NOT published (spec.md §5: "partial epochs are not
// published").
type CommitFunc func(epoch uint64, ops []plugin.GraphOp) error

type pendingOp struct {
	seq int
	op  plugin.GraphOp
}

// Runtime wires Intake -> Scheduler -> Executor -> CommitSink together
// (spec.md §4.H). Construct with New, start with Run, cancel via the
// context passed to Run.
type Runtime struct {
	flow    FlowControlConfig
	execute ExecuteFunc
	commit  CommitFunc
	logger  *slog.Logger

	deferred *DeferredStore
	tracker  *BatchTracker

	intake chan Message
	ready  chan Message
	sem    chan struct{}

	mu       sync.Mutex
	epochOps map[uint64][]pendingOp
	groupSeq map[string]int
}

// New constructs a Runtime. execute performs the actual work for one
// message (implemented by internal/engine, which closes over the
// compiler/scanner); commit applies one epoch's ops and publishes the
// next snapshot.
func New(flow FlowControlConfig, execute ExecuteFunc, commit CommitFunc, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		flow:     flow,
		execute:  execute,
		commit:   commit,
		logger:   logger,
		deferred: NewDeferredStore(),
		tracker:  NewBatchTracker(),
		intake:   make(chan Message, flow.ChannelCapacity),
		ready:    make(chan Message, flow.ChannelCapacity),
		sem:      make(chan struct{}, flow.MaxInFlight),
		epochOps: make(map[uint64][]pendingOp),
		groupSeq: make(map[string]int),
	}
}

// Tracker exposes the BatchTracker so callers can register message ids
// before submitting them.
func (r *Runtime) Tracker() *BatchTracker { return r.tracker }

// Submit admits msg to the intake channel, blocking if it is full or
// ctx is done.
func (r *Runtime) Submit(ctx context.Context, msg Message) error {
	select {
	case r.intake <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the scheduler and a bounded executor pool, and blocks
// until ctx is cancelled and every in-flight message has drained. It
// does not publish partial epochs on cancellation (spec.md §5).
func (r *Runtime) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.schedule(ctx)
	}()

	workers := r.flow.MaxInFlight
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.executeLoop(ctx)
		}()
	}

	wg.Wait()
}

// schedule is stage 2 (admission + dependency check) plus a periodic
// deferred-store drain (the "idle sleep while nothing is ready"
// behavior of spec.md §5).
func (r *Runtime) schedule(ctx context.Context) {
	ticker := time.NewTicker(r.flow.IdleSleep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.intake:
			if !ok {
				return
			}
			r.admit(ctx, msg)
		case <-ticker.C:
			for _, msg := range r.deferred.PopReady(r.flow.DeferredPollLimit) {
				r.dispatch(ctx, msg)
			}
		}
	}
}

func (r *Runtime) admit(ctx context.Context, msg Message) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	if len(msg.DependsOn) == 0 {
		r.dispatch(ctx, msg)
		return
	}
	metrics().deferredTotal.Inc()
	r.deferred.Defer(msg)
}

func (r *Runtime) dispatch(ctx context.Context, msg Message) {
	select {
	case r.ready <- msg:
	case <-ctx.Done():
	}
}

func (r *Runtime) executeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-r.ready:
			if !ok {
				return
			}
			r.handle(msg)
		}
	}
}

func (r *Runtime) handle(msg Message) {
	metrics().inFlight.Inc()
	defer metrics().inFlight.Dec()

	result := r.execute(msg)
	result.Epoch = msg.Epoch
	result.Group = msg.Group

	switch result.Status {
	case StatusDone:
		metrics().messagesTotal.WithLabelValues("done").Inc()
		r.accumulate(msg.Group, msg.Epoch, result.Operations)
		r.finish(msg.ID)
	case StatusDeferred:
		metrics().messagesTotal.WithLabelValues("deferred").Inc()
		next := msg
		next.DependsOn = result.NextDependencies
		r.deferred.Defer(next)
		return // still in-flight: semaphore permit is kept
	case StatusRetryableError:
		metrics().messagesTotal.WithLabelValues("retryable_error").Inc()
		r.logger.Warn("ingest.executor.retry", "msg_id", msg.ID, "err", result.Err)
		r.deferred.Defer(msg)
		return
	case StatusFatalError:
		metrics().messagesTotal.WithLabelValues("fatal_error").Inc()
		r.logger.Error("ingest.executor.fatal", "msg_id", msg.ID, "err", result.Err)
		r.finish(msg.ID)
	}
	<-r.sem
}

func (r *Runtime) finish(msgID string) {
	r.deferred.NotifyMessageDone(msgID)
	r.tracker.MarkDone(msgID)
}

func (r *Runtime) accumulate(group string, epoch uint64, ops []plugin.GraphOp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.groupSeq[group]
	r.groupSeq[group] = seq + 1
	for _, op := range ops {
		r.epochOps[epoch] = append(r.epochOps[epoch], pendingOp{seq: seq, op: op})
	}
}

// CommitEpoch applies every op accumulated for epoch, in submission
// order (ties within a group preserved by seq), via the Runtime's
// CommitFunc, then clears the epoch's buffer. Returns the number of
// ops applied. Safe to call once all of an epoch's messages have been
// accounted for (e.g. once a BatchTracker registered for that epoch's
// message set has fired).
func (r *Runtime) CommitEpoch(epoch uint64) (int, error) {
	r.mu.Lock()
	pending := r.epochOps[epoch]
	delete(r.epochOps, epoch)
	r.mu.Unlock()

	if len(pending) == 0 {
		return 0, nil
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

	ops := make([]plugin.GraphOp, len(pending))
	for i, p := range pending {
		ops[i] = p.op
	}

	start := time.Now()
	err := r.commit(epoch, ops)
	metrics().commitSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		r.logger.Error("ingest.commit.failed", "epoch", epoch, "err", err)
		return 0, err
	}
	r.logger.Info("ingest.commit.epoch", "epoch", epoch, "ops", len(ops))
	return len(ops), nil
}
