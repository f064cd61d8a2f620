package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAPI struct {
	mu   sync.Mutex
	sent []int64
	at   []time.Time
	fail map[int64]bool
}

func (r *recordingAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	msg := c.(tgbotapi.MessageConfig)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[msg.ChatID] {
		return nil, errors.New("Forbidden: bot was blocked by the user")
	}
	r.sent = append(r.sent, msg.ChatID)
	r.at = append(r.at, time.Now())
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (r *recordingAPI) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestOutboxDeliversAndReports(t *testing.T) {
	api := &recordingAPI{fail: map[int64]bool{3: true}}
	o := New(api, 2, 8, 1000, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(stopped)
	}()

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := map[int64]error{}
	for _, chat := range []int64{1, 2, 3} {
		chat := chat
		wg.Add(1)
		err := o.Enqueue(context.Background(), chat, tgbotapi.NewMessage(chat, "hi"), func(err error) {
			mu.Lock()
			results[chat] = err
			mu.Unlock()
			wg.Done()
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.NoError(t, results[1])
	assert.NoError(t, results[2])
	assert.Error(t, results[3])
	assert.Equal(t, 2, api.count())

	cancel()
	<-stopped
	assert.ErrorIs(t, o.Enqueue(context.Background(), 1, tgbotapi.NewMessage(1, "late"), nil), ErrClosed)
}

func TestOutboxPacesEachChat(t *testing.T) {
	api := &recordingAPI{}
	o := New(api, 4, 8, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		require.NoError(t, o.Enqueue(ctx, 7, tgbotapi.NewMessage(7, "x"), func(error) { wg.Done() }))
	}
	wg.Wait()

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.at, 3)
	first, last := api.at[0], api.at[0]
	for _, ts := range api.at {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	assert.GreaterOrEqual(t, last.Sub(first), 150*time.Millisecond)
}

func TestOutboxEnqueueRespectsContext(t *testing.T) {
	o := New(&recordingAPI{}, 1, 1, 1, zap.NewNop())
	require.NoError(t, o.Enqueue(context.Background(), 1, tgbotapi.NewMessage(1, "fills queue"), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := o.Enqueue(ctx, 1, tgbotapi.NewMessage(1, "blocked"), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOutboxFailsQueuedJobsOnShutdown(t *testing.T) {
	o := New(&recordingAPI{}, 1, 4, 1, zap.NewNop())

	var got error
	done := make(chan struct{})
	require.NoError(t, o.Enqueue(context.Background(), 1, tgbotapi.NewMessage(1, "never sent"), func(err error) {
		got = err
		close(done)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Run(ctx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("queued job was not completed")
	}
	// a worker may have picked the job before noticing cancellation
	if got != nil {
		assert.ErrorIs(t, got, ErrClosed)
	}
}
