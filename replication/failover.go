package replication

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// failoverTask is one dead server's queues waiting to be claimed by this
// node, submitted to the fixed-size claim worker pool.
type failoverTask struct {
	deadServer string
	queueIDs   []QueueID
}

// failoverClaimer owns a small fixed pool of workers that claim the
// replication queues of servers this node has observed die. It mirrors the
// HBase region server's NodeFailoverWorker: a jittered initial sleep gives a
// server that merely blipped a chance to come back before its queues are
// stolen, and claiming re-checks liveness immediately before transferring
// ownership to avoid two survivors double-claiming the same queues.
type failoverClaimer struct {
	manager        *SourceManager
	workers        int
	sleepBefore    time.Duration
	isServerAlive  func(addr string) bool
	logger         *slog.Logger

	mu      sync.Mutex
	tasks   chan failoverTask
	wg      sync.WaitGroup
	started bool

	inFlight atomic.Int32
}

func newFailoverClaimer(m *SourceManager, workers int, sleepBefore time.Duration, isAlive func(string) bool, logger *slog.Logger) *failoverClaimer {
	if workers < 1 {
		workers = 1
	}
	return &failoverClaimer{
		manager:       m,
		workers:       workers,
		sleepBefore:   sleepBefore,
		isServerAlive: isAlive,
		logger:        logger.With("component", "failover_claimer"),
		tasks:         make(chan failoverTask, 64),
	}
}

func (f *failoverClaimer) start(ctx context.Context) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return
	}
	f.started = true
	f.mu.Unlock()

	for i := 0; i < f.workers; i++ {
		f.wg.Add(1)
		go f.worker(ctx, i)
	}
}

// submit enqueues a dead server's queues for claiming. It never blocks the
// caller (the queue is generously sized and claim tasks are idempotent), so
// it is safe to call from the goroutine that detected the failure.
func (f *failoverClaimer) submit(t failoverTask) {
	select {
	case f.tasks <- t:
	default:
		f.logger.Warn("failover task queue full, dropping claim attempt; it will be retried on next scan", "dead_server", t.deadServer)
	}
}

func (f *failoverClaimer) stop() {
	close(f.tasks)
	f.wg.Wait()
}

func (f *failoverClaimer) worker(ctx context.Context, id int) {
	defer f.wg.Done()
	for task := range f.tasks {
		f.claim(ctx, task)
	}
}

// activeCount reports how many claim tasks are currently sleeping, checking
// liveness, or claiming — spec.md §6's activeFailoverTaskCount().
func (f *failoverClaimer) activeCount() int {
	return int(f.inFlight.Load())
}

func (f *failoverClaimer) claim(ctx context.Context, task failoverTask) {
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	jitter := time.Duration(rand.Int63n(int64(f.sleepBefore) + 1))
	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		return
	}

	// Re-check liveness right before claiming: a server that came back up
	// during the sleep must not have its queues stolen out from under it.
	if f.isServerAlive != nil && f.isServerAlive(task.deadServer) {
		f.logger.Info("dead server came back before claim, skipping", "server", task.deadServer)
		return
	}

	for _, qid := range task.queueIDs {
		if err := f.manager.claimQueue(ctx, qid, task.deadServer); err != nil {
			f.logger.Error("failed to claim queue", "queue", qid.String(), "dead_server", task.deadServer, "error", err)
		}
	}
}
