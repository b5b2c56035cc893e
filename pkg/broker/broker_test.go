package broker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/pkg/broker"
	"arena/pkg/decision"
	"arena/pkg/modeladapter"
	"arena/pkg/modeladapter/scripted"
)

func TestCollect_IsolatesFailingAdapterFromOthers(t *testing.T) {
	failing := scripted.New(scripted.Step{Err: errors.New("permanent failure")})
	working := scripted.New(scripted.Step{Bundle: decision.Bundle{{Symbol: "BTC/USDT", Action: decision.ActionHold}}})

	b := broker.New()
	work := []broker.Work{
		{ID: "model-a", Adapter: failing, Payload: modeladapter.RoundPayload{}},
		{ID: "model-b", Adapter: working, Payload: modeladapter.RoundPayload{}},
	}

	results := b.Collect(context.Background(), work, time.Now().Add(time.Second))
	require.Len(t, results, 2)

	assert.Error(t, results["model-a"].Err)
	assert.NoError(t, results["model-b"].Err)
	assert.Len(t, results["model-b"].Bundle, 1)
}

func TestCollect_DeadlineBoundsSlowAdapters(t *testing.T) {
	slow := slowAdapter{delay: 200 * time.Millisecond}
	fast := scripted.New(scripted.Step{Bundle: decision.Bundle{}})

	b := broker.New()
	work := []broker.Work{
		{ID: "slow", Adapter: slow, Payload: modeladapter.RoundPayload{}},
		{ID: "fast", Adapter: fast, Payload: modeladapter.RoundPayload{}},
	}

	start := time.Now()
	results := b.Collect(context.Background(), work, time.Now().Add(20*time.Millisecond))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 200*time.Millisecond, "collect must not wait for the slow adapter past its deadline context cancellation")
	assert.NoError(t, results["fast"].Err)
	require.Contains(t, results, "slow")
}

type slowAdapter struct{ delay time.Duration }

func (s slowAdapter) Decide(ctx context.Context, _ modeladapter.RoundPayload) (decision.Bundle, error) {
	select {
	case <-time.After(s.delay):
		return decision.Bundle{}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCollect_PanicInAdapterDoesNotCrashOthers(t *testing.T) {
	panicking := panicAdapter{}
	working := scripted.New(scripted.Step{Bundle: decision.Bundle{}})

	b := broker.New()
	work := []broker.Work{
		{ID: "panics", Adapter: panicking, Payload: modeladapter.RoundPayload{}},
		{ID: "ok", Adapter: working, Payload: modeladapter.RoundPayload{}},
	}

	results := b.Collect(context.Background(), work, time.Now().Add(time.Second))
	assert.Error(t, results["panics"].Err)
	assert.NoError(t, results["ok"].Err)
}

type panicAdapter struct{}

func (panicAdapter) Decide(context.Context, modeladapter.RoundPayload) (decision.Bundle, error) {
	panic("boom")
}
