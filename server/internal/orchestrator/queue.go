package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueClosed 队列已关闭（会话结束或服务退出）。
var ErrQueueClosed = errors.New("session queue closed")

// ErrQueueFull 排队中的请求超过容量。
var ErrQueueFull = errors.New("session queue full")

// Job 在会话的串行处理器上执行。
type Job func(ctx context.Context) error

// Queue 为单个会话提供串行处理：同一会话的所有修改都在一个 goroutine 里依次执行，
// 保证回答不会乱序、会话状态不被并发修改。
type Queue struct {
	sessionID string
	jobs      chan *queuedJob
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	logger    *log.Logger
	timeout   time.Duration

	mu        sync.Mutex
	total     int64
	processed int64
	failed    int64
	rejected  int64
}

type queuedJob struct {
	name      string
	ctx       context.Context
	fn        Job
	timestamp time.Time
	resultCh  chan error
	state     atomic.Int32
}

// queuedJob.state
const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

const (
	defaultQueueCapacity = 16
	defaultJobTimeout    = 60 * time.Second
	slowJobThreshold     = 10 * time.Second
)

func NewQueue(sessionID string, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		sessionID: sessionID,
		jobs:      make(chan *queuedJob, defaultQueueCapacity),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		timeout:   defaultJobTimeout,
	}
	q.wg.Add(1)
	go q.loop()
	return q
}

// Do 排队执行 fn 并等待结果。调用方 ctx 取消时，还在排队的任务直接放弃并返回 ctx.Err()；
// 已开始的 fn 通过同一个 ctx 感知取消，Do 等它结束并返回它的结果，
// 所以 Do 返回错误时 fn 一定没有执行完。
func (q *Queue) Do(ctx context.Context, name string, fn Job) error {
	select {
	case <-q.ctx.Done():
		return ErrQueueClosed
	default:
	}

	job := &queuedJob{
		name:      name,
		ctx:       ctx,
		fn:        fn,
		timestamp: time.Now(),
		resultCh:  make(chan error, 1),
	}

	select {
	case q.jobs <- job:
		q.mu.Lock()
		q.total++
		q.mu.Unlock()
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return ErrQueueClosed
	default:
		q.mu.Lock()
		q.rejected++
		q.mu.Unlock()
		q.logger.Printf("[Queue] ⚠️  queue full for session %s, rejecting %s", q.sessionID, name)
		return ErrQueueFull
	}

	select {
	case err := <-job.resultCh:
		return err
	case <-ctx.Done():
		if job.state.CompareAndSwap(jobQueued, jobAbandoned) {
			return ctx.Err()
		}
		return <-job.resultCh
	case <-q.ctx.Done():
		if job.state.CompareAndSwap(jobQueued, jobAbandoned) {
			return ErrQueueClosed
		}
		return <-job.resultCh
	}
}

func (q *Queue) loop() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *Queue) run(job *queuedJob) {
	start := time.Now()
	if !job.state.CompareAndSwap(jobQueued, jobRunning) {
		return
	}
	if err := job.ctx.Err(); err != nil {
		job.resultCh <- err
		return
	}

	ctx, cancel := context.WithTimeout(job.ctx, q.timeout)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	err := job.fn(ctx)
	elapsed := time.Since(start)

	q.mu.Lock()
	q.processed++
	if err != nil {
		q.failed++
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Printf("[Queue] ❌ %s failed for session %s: %v (queued %v, ran %v)",
			job.name, q.sessionID, err, start.Sub(job.timestamp), elapsed)
	}
	if elapsed > slowJobThreshold {
		q.logger.Printf("[Queue] ⚠️  slow %s for session %s: %v", job.name, q.sessionID, elapsed)
	}
	job.resultCh <- err
}

// Close 停止处理器并等待当前任务结束。排队中未执行的任务返回 ErrQueueClosed。
// 不能在本队列的 Job 内部调用。
func (q *Queue) Close() {
	q.cancel()
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.logger.Printf("[Queue] closed for session %s: total=%d processed=%d failed=%d rejected=%d",
		q.sessionID, q.total, q.processed, q.failed, q.rejected)
}

// QueueStats 队列统计
type QueueStats struct {
	SessionID string `json:"session_id"`
	Total     int64  `json:"total"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Rejected  int64  `json:"rejected"`
	Pending   int    `json:"pending"`
}

func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		SessionID: q.sessionID,
		Total:     q.total,
		Processed: q.processed,
		Failed:    q.failed,
		Rejected:  q.rejected,
		Pending:   len(q.jobs),
	}
}
