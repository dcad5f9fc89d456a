package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

type HandlerFunc func(ctx context.Context, job Job) error

const (
	DefaultJobTimeout = 2 * time.Minute
	writeTimeout      = 5 * time.Second
)

// WorkerPool pops jobs from a Redis list and runs the handler registered for
// their type. Failed jobs are retried with exponential backoff through a
// sorted set and moved to the dead letter list after MaxRetry attempts.
type WorkerPool struct {
	redis       redis.UniversalClient
	queue       string
	workers     int
	handlers    map[string]HandlerFunc
	pollTimeout time.Duration
	retryBase   time.Duration
	jobTimeout  time.Duration
	wg          sync.WaitGroup
}

func NewWorkerPool(client redis.UniversalClient, queue string, workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		redis:       client,
		queue:       queue,
		workers:     workers,
		handlers:    make(map[string]HandlerFunc),
		pollTimeout: time.Second,
		retryBase:   5 * time.Second,
		jobTimeout:  DefaultJobTimeout,
	}
}

func (wp *WorkerPool) Handle(jobType string, handler HandlerFunc) {
	wp.handlers[jobType] = handler
}

func (wp *WorkerPool) retryQueue() string {
	return wp.queue + ":retry"
}

func (wp *WorkerPool) deadQueue() string {
	return wp.queue + ":dead"
}

func (wp *WorkerPool) Start(ctx context.Context) {
	log.Infof("starting worker pool with %d workers on %s", wp.workers, wp.queue)

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		ticker := time.NewTicker(wp.pollTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := wp.promoteRetries(ctx, time.Now()); err != nil && ctx.Err() == nil {
					log.Errorf("promoting retries: %+v", err)
				}
			}
		}
	}()
}

// Wait blocks until every worker has stopped after the start context is done.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		if ctx.Err() != nil {
			log.Infof("worker %d stopping", id)
			return
		}

		result, err := wp.redis.BRPop(ctx, wp.pollTimeout, wp.queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Errorf("worker %d: popping job: %+v", id, err)
				time.Sleep(wp.pollTimeout)
			}
			continue
		}

		// result is [queue, payload]
		wp.process(ctx, result[1])
	}
}

// process runs one popped job. A job already taken off the queue runs to
// completion (or jobTimeout) even if ctx is cancelled; if it fails because
// the pool is stopping it goes back on the queue without using a retry.
func (wp *WorkerPool) process(ctx context.Context, payload string) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		log.Warnf("dropping malformed job payload: %+v", err)
		return
	}

	handler, ok := wp.handlers[job.Type]
	if !ok {
		job.ErrorMsg = fmt.Sprintf("no handler for job type %s", job.Type)
		writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancelWrite()
		wp.bury(writeCtx, job)
		return
	}

	jobCtx, cancelJob := context.WithTimeout(context.WithoutCancel(ctx), wp.jobTimeout)
	err := handler(jobCtx, job)
	cancelJob()
	if err == nil {
		return
	}

	// detached from ctx so the write still lands during shutdown
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancelWrite()

	if ctx.Err() != nil {
		if err := wp.redis.RPush(writeCtx, wp.queue, payload).Err(); err != nil {
			log.Errorf("returning job %s to the queue: %+v", job.ID, err)
			return
		}
		log.Warnf("job %s interrupted by shutdown, returned to the queue: %+v", job.ID, err)
		return
	}

	job.Retry++
	job.ErrorMsg = err.Error()
	if job.Retry >= job.MaxRetry {
		wp.bury(writeCtx, job)
		return
	}

	delay := wp.retryBase * time.Duration(1<<job.Retry)
	jobBytes, _ := json.Marshal(job)
	retryAt := time.Now().Add(delay).Unix()
	if err := wp.redis.ZAdd(writeCtx, wp.retryQueue(), redis.Z{Score: float64(retryAt), Member: jobBytes}).Err(); err != nil {
		log.Errorf("scheduling retry of job %s: %+v", job.ID, err)
		return
	}
	log.Warnf("job %s failed, retrying in %v (%d/%d): %s", job.ID, delay, job.Retry, job.MaxRetry, job.ErrorMsg)
}

func (wp *WorkerPool) bury(ctx context.Context, job Job) {
	log.Errorf("job %s (%s) moved to dead letter queue: %s", job.ID, job.Type, job.ErrorMsg)
	jobBytes, _ := json.Marshal(job)
	if err := wp.redis.RPush(ctx, wp.deadQueue(), jobBytes).Err(); err != nil {
		log.Errorf("burying job %s: %+v", job.ID, err)
	}
}

// promoteRetries moves retries that are due back onto the main queue. ZRem
// decides which process wins a job when several pools share the queue.
func (wp *WorkerPool) promoteRetries(ctx context.Context, now time.Time) error {
	due, err := wp.redis.ZRangeByScore(ctx, wp.retryQueue(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("reading retry queue: %w", err)
	}

	for _, payload := range due {
		removed, err := wp.redis.ZRem(ctx, wp.retryQueue(), payload).Result()
		if err != nil {
			return fmt.Errorf("removing retry: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := wp.redis.LPush(ctx, wp.queue, payload).Err(); err != nil {
			return fmt.Errorf("requeueing retry: %w", err)
		}
	}
	return nil
}
