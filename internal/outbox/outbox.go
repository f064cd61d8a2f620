// Package outbox queues outbound Telegram messages and drains them with a
// fixed number of workers, pacing each destination chat.
package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"autofilter/internal/metrics"
)

// ErrClosed is returned by Enqueue once the outbox stopped accepting work.
var ErrClosed = errors.New("outbox closed")

const (
	maxTrackedChats = 4096
	limiterIdleTTL  = 10 * time.Minute
)

// Requester is the part of the bot API the outbox needs.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type job struct {
	chatID int64
	msg    tgbotapi.Chattable
	done   func(error)
}

// Outbox is a bounded send queue. Enqueue blocks when the queue is full.
type Outbox struct {
	api      Requester
	jobs     chan job
	workers  int
	perChat  int
	limiters *expirable.LRU[int64, ratelimit.Limiter]
	mu       sync.Mutex
	logger   *zap.Logger

	gate      sync.RWMutex
	closeOnce sync.Once
	closed    chan struct{}
}

func New(api Requester, workers, queueSize, perChatPerSecond int, logger *zap.Logger) *Outbox {
	if workers <= 0 {
		workers = 1
	}
	if perChatPerSecond <= 0 {
		perChatPerSecond = 1
	}
	return &Outbox{
		api:      api,
		jobs:     make(chan job, queueSize),
		workers:  workers,
		perChat:  perChatPerSecond,
		limiters: expirable.NewLRU[int64, ratelimit.Limiter](maxTrackedChats, nil, limiterIdleTTL),
		logger:   logger,
		closed:   make(chan struct{}),
	}
}

// Enqueue schedules msg for chatID. done, if set, receives the send result.
func (o *Outbox) Enqueue(ctx context.Context, chatID int64, msg tgbotapi.Chattable, done func(error)) error {
	o.gate.RLock()
	defer o.gate.RUnlock()

	select {
	case <-o.closed:
		return ErrClosed
	default:
	}

	select {
	case o.jobs <- job{chatID: chatID, msg: msg, done: done}:
		metrics.OutboxQueueDepth.Inc()
		return nil
	case <-o.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is cancelled. Jobs still queued
// at that point are failed with ErrClosed.
func (o *Outbox) Run(ctx context.Context) {
	o.logger.Info("Outbox started", zap.Int("workers", o.workers), zap.Int("per_chat_per_second", o.perChat))

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.work(ctx)
		}()
	}

	<-ctx.Done()
	o.closeOnce.Do(func() { close(o.closed) })
	wg.Wait()

	// wait out Enqueue calls racing the close so nothing lands after drain
	o.gate.Lock()
	o.drain()
	o.gate.Unlock()
	o.logger.Info("Outbox stopped")
}

func (o *Outbox) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-o.jobs:
			metrics.OutboxQueueDepth.Dec()
			o.limiter(j.chatID).Take()
			_, err := o.api.Request(j.msg)
			if err != nil {
				metrics.OutboxSendsTotal.WithLabelValues("failed").Inc()
				o.logger.Warn("Failed to deliver queued message", zap.Int64("chat_id", j.chatID), zap.Error(err))
			} else {
				metrics.OutboxSendsTotal.WithLabelValues("sent").Inc()
			}
			if j.done != nil {
				j.done(err)
			}
		}
	}
}

func (o *Outbox) drain() {
	for {
		select {
		case j := <-o.jobs:
			metrics.OutboxQueueDepth.Dec()
			metrics.OutboxSendsTotal.WithLabelValues("dropped").Inc()
			if j.done != nil {
				j.done(ErrClosed)
			}
		default:
			return
		}
	}
}

func (o *Outbox) limiter(chatID int64) ratelimit.Limiter {
	o.mu.Lock()
	defer o.mu.Unlock()
	if l, ok := o.limiters.Get(chatID); ok {
		return l
	}
	l := ratelimit.New(o.perChat, ratelimit.WithoutSlack)
	o.limiters.Add(chatID, l)
	return l
}
