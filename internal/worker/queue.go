package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/issueops/backend/internal/metrics"
	"github.com/issueops/backend/pkg/logger"
)

type TaskType string

const (
	TaskGenerateResolution TaskType = "generate_resolution"
	TaskGenerateSOP        TaskType = "generate_sop"
)

type Task struct {
	Type    TaskType
	IssueID string
	Attempt int
}

// Handler processes one task. Returning an error triggers redelivery up to
// MaxAttempts; handlers must therefore be idempotent (the duplicate-
// generation guard in the generation service makes redelivery safe).
type Handler func(ctx context.Context, task Task) error

type Config struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Queue is an in-process task queue with at-least-once delivery: a failed
// task is re-enqueued with a delay until its attempts run out.
type Queue struct {
	tasks       chan Task
	handler     Handler
	workers     int
	maxAttempts int
	retryDelay  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(cfg Config, handler Handler) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		tasks:       make(chan Task, cfg.QueueSize),
		handler:     handler,
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(i)
	}
	logger.Info("Worker queue started", zap.Int("workers", q.workers))
}

// Enqueue submits a task without blocking. Returns false when the queue is
// full; callers treat that as a degraded trigger, not an error, since every
// generation can also be requested explicitly over HTTP.
func (q *Queue) Enqueue(task Task) bool {
	select {
	case q.tasks <- task:
		return true
	default:
		logger.Warn("Task queue full, dropping trigger",
			zap.String("type", string(task.Type)),
			zap.String("issue_id", task.IssueID),
		)
		metrics.TasksTotal.WithLabelValues(string(task.Type), "dropped").Inc()
		return false
	}
}

func (q *Queue) run(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.process(task)
		}
	}
}

func (q *Queue) process(task Task) {
	err := q.handler(q.ctx, task)
	if err == nil {
		metrics.TasksTotal.WithLabelValues(string(task.Type), "ok").Inc()
		return
	}

	task.Attempt++
	if task.Attempt >= q.maxAttempts {
		metrics.TasksTotal.WithLabelValues(string(task.Type), "failed").Inc()
		logger.Error("Task failed permanently",
			zap.String("type", string(task.Type)),
			zap.String("issue_id", task.IssueID),
			zap.Int("attempts", task.Attempt),
			zap.Error(err),
		)
		return
	}

	logger.Warn("Task failed, scheduling redelivery",
		zap.String("type", string(task.Type)),
		zap.String("issue_id", task.IssueID),
		zap.Int("attempt", task.Attempt),
		zap.Error(err),
	)
	metrics.TasksTotal.WithLabelValues(string(task.Type), "retried").Inc()

	delay := q.retryDelay
	go func(t Task) {
		select {
		case <-q.ctx.Done():
		case <-time.After(delay):
			q.Enqueue(t)
		}
	}(task)
}

// Stop drains nothing: in-flight tasks finish, queued tasks are abandoned.
// Abandoned triggers are recoverable through the explicit HTTP endpoints.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
	logger.Info("Worker queue stopped")
}
