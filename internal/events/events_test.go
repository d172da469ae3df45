package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockBus struct {
	mock.Mock
}

func (m *mockBus) PublishAll(ctx context.Context, events []domain.Event) error {
	return m.Called(ctx, events).Error(0)
}

func sampleEvents() []domain.Event {
	id := domain.NewStaffAccountID()
	return []domain.Event{
		domain.FailedLoginRecorded{StaffAccountID: id, FailedLoginAttempts: 5, At: testNow},
		domain.AccountLocked{StaffAccountID: id, LockedUntil: testNow.Add(15 * time.Minute), At: testNow},
	}
}

func TestInMemoryDispatcher_PublishAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	d.Subscribe(domain.EventFailedLoginRecorded, func(_ context.Context, e domain.Event) error {
		seen = append(seen, e.EventName())
		return nil
	})
	d.Subscribe(domain.EventAccountLocked, func(_ context.Context, e domain.Event) error {
		seen = append(seen, e.EventName())
		return errors.New("listener down")
	})
	d.Subscribe(domain.EventAccountLocked, func(_ context.Context, e domain.Event) error {
		seen = append(seen, "second:"+e.EventName())
		return nil
	})

	err := d.PublishAll(context.Background(), sampleEvents())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listener down")
	assert.Equal(t, []string{
		domain.EventFailedLoginRecorded,
		domain.EventAccountLocked,
		"second:" + domain.EventAccountLocked,
	}, seen)

	assert.NoError(t, d.PublishAll(context.Background(), nil))
}

func TestFanout_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	evts := sampleEvents()
	boom := errors.New("stream unavailable")

	first, second := new(mockBus), new(mockBus)
	first.On("PublishAll", ctx, evts).Return(boom)

	err := Fanout{first, second}.PublishAll(ctx, evts)
	assert.ErrorIs(t, err, boom)
	first.AssertExpectations(t)
	second.AssertNotCalled(t, "PublishAll", mock.Anything, mock.Anything)

	assert.NoError(t, Fanout{second}.PublishAll(ctx, nil))
}

func TestNewBus_DispatcherRunsAfterTransports(t *testing.T) {
	ctx := context.Background()
	evts := sampleEvents()
	d := NewInMemoryDispatcher()
	delivered := 0
	d.Subscribe(domain.EventFailedLoginRecorded, func(context.Context, domain.Event) error {
		delivered++
		return nil
	})

	stream := new(mockBus)
	stream.On("PublishAll", ctx, evts).Return(errors.New("stream unavailable")).Once()
	stream.On("PublishAll", ctx, evts).Return(nil).Once()
	bus := NewBus(d, stream)

	require.Error(t, bus.PublishAll(ctx, evts))
	assert.Zero(t, delivered)

	require.NoError(t, bus.PublishAll(ctx, evts))
	assert.Equal(t, 1, delivered)
	stream.AssertExpectations(t)
}

func TestNewEnvelope(t *testing.T) {
	event := sampleEvents()[1]
	envelope, err := NewEnvelope(event)
	require.NoError(t, err)

	assert.NotEmpty(t, envelope.ID)
	assert.Equal(t, domain.EventAccountLocked, envelope.Type)
	assert.Equal(t, event.AggregateID(), envelope.AggregateID)
	assert.Equal(t, testNow, envelope.Timestamp)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, event.AggregateID(), payload["staff_account_id"])

	values := envelope.Values()
	assert.Equal(t, domain.EventAccountLocked, values["type"])
	assert.Equal(t, string(envelope.Payload), values["payload"])
}

type recordingPipeliner struct {
	client *redis.Client
	queued int
	err    error
}

func (r *recordingPipeliner) TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error) {
	pipe := r.client.TxPipeline()
	if err := fn(pipe); err != nil {
		return nil, err
	}
	r.queued = pipe.Len()
	pipe.Discard()
	return nil, r.err
}

func TestRedisStreamPublisher_PublishAll(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	t.Run("queues one entry per event", func(t *testing.T) {
		rec := &recordingPipeliner{client: client}
		p := &RedisStreamPublisher{client: rec, stream: "staff-account-events", maxLen: DefaultStreamMaxLen}

		require.NoError(t, p.PublishAll(context.Background(), sampleEvents()))
		assert.Equal(t, 2, rec.queued)
	})

	t.Run("exec failure is returned", func(t *testing.T) {
		rec := &recordingPipeliner{client: client, err: errors.New("EXECABORT")}
		p := &RedisStreamPublisher{client: rec, stream: "staff-account-events", maxLen: DefaultStreamMaxLen}

		err := p.PublishAll(context.Background(), sampleEvents())
		assert.ErrorContains(t, err, "EXECABORT")
	})

	t.Run("nothing to publish", func(t *testing.T) {
		rec := &recordingPipeliner{client: client, err: errors.New("unused")}
		p := &RedisStreamPublisher{client: rec, stream: "staff-account-events"}
		assert.NoError(t, p.PublishAll(context.Background(), nil))
		assert.Zero(t, rec.queued)
	})
}
