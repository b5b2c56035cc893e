package observer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/pkg/leaderboard"
	"arena/pkg/observer"
)

func TestChannelSink_RecordsEventsInOrder(t *testing.T) {
	sink := observer.NewChannelSink(8)

	sink.Started("session-1")
	sink.RoundStart(1)
	sink.RoundComplete(1, []leaderboard.Entry{{ModelID: "gpt-5", TotalReturnPct: 0.02}})
	sink.Error(2, "adapter timeout")
	sink.CompetitionFinished("session-1", 2)

	close(sink.Events)

	var kinds []string
	for ev := range sink.Events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{"started", "roundStart", "roundComplete", "error", "competitionFinished"}, kinds)
}

func TestChannelSink_RoundCompleteCarriesLeaderboard(t *testing.T) {
	sink := observer.NewChannelSink(1)
	sink.RoundComplete(3, []leaderboard.Entry{{ModelID: "claude", TotalReturnPct: 0.1}})
	ev := <-sink.Events
	require.Len(t, ev.Leaderboard, 1)
	assert.Equal(t, "claude", ev.Leaderboard[0].ModelID)
	assert.Equal(t, 3, ev.Round)
}
