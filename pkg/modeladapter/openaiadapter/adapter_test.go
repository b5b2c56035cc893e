package openaiadapter_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/pkg/arenaerr"
	"arena/pkg/ledger"
	"arena/pkg/llm"
	"arena/pkg/modeladapter"
	"arena/pkg/modeladapter/openaiadapter"
)

type fakeLLMClient struct {
	response *llm.ChatResponse
	err      error
	calls    int
}

func (f *fakeLLMClient) Chat(_ context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeLLMClient) ChatStream(_ context.Context, _ *llm.ChatRequest) (<-chan llm.StreamResponse, error) {
	return nil, nil
}

func (f *fakeLLMClient) ChatStructured(_ context.Context, _ *llm.ChatRequest, target interface{}) (interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	content := f.response.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), target); err != nil {
		return nil, err
	}
	return target, nil
}

func (f *fakeLLMClient) GetConfig() *llm.Config { return &llm.Config{} }

func (f *fakeLLMClient) Close() error { return nil }

func samplePayload() modeladapter.RoundPayload {
	return modeladapter.RoundPayload{
		Session: modeladapter.SessionInfo{Round: 1, Now: time.Unix(0, 0), ElapsedMinutes: 0},
		Symbols: []string{"BTC/USDT"},
		Market:  nil,
		Account: ledger.AccountView{Cash: 1000},
	}
}

func TestDecide_ValidResponseParsesIntoBundle(t *testing.T) {
	fake := &fakeLLMClient{response: &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{
			Content: `{"decisions":[{"symbol":"BTC/USDT","action":"BUY","confidence":0.7,"reasoning":"breakout above resistance line","positionSize":0.3}]}`,
		}}},
	}}
	adapter := openaiadapter.New(fake, openaiadapter.Config{ModelAlias: "gpt-4o-mini", MaxRequestsPerMinute: 60})

	bundle, err := adapter.Decide(context.Background(), samplePayload())
	require.NoError(t, err)
	require.Len(t, bundle, 1)
	assert.Equal(t, "BTC/USDT", bundle[0].Symbol)
}

func TestDecide_MalformedResponseIsBadResponse(t *testing.T) {
	fake := &fakeLLMClient{response: &llm.ChatResponse{
		Choices: []llm.Choice{{Message: llm.Message{Content: "not json at all"}}},
	}}
	adapter := openaiadapter.New(fake, openaiadapter.Config{ModelAlias: "gpt-4o-mini", MaxRequestsPerMinute: 60})

	_, err := adapter.Decide(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Equal(t, arenaerr.KindBadResponse, arenaerr.KindOf(err))
}
