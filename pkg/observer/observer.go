// Package observer defines the scheduler's optional lifecycle sink: a
// write-only destination for round/session events, with no feedback to
// the caller.
package observer

import (
	"arena/pkg/leaderboard"

	"github.com/zeromicro/go-zero/core/logx"
)

// Sink receives scheduler lifecycle events.
type Sink interface {
	Started(sessionID string)
	RoundStart(round int)
	RoundComplete(round int, snapshot []leaderboard.Entry)
	CompetitionFinished(sessionID string, totalRounds int)
	Error(round int, message string)
}

// LogSink writes every event via logx, matching pkg/journal's write-only
// consumer pattern.
type LogSink struct{}

// NewLogSink constructs a LogSink.
func NewLogSink() *LogSink { return &LogSink{} }

func (LogSink) Started(sessionID string) {
	logx.Infof("session started: %s", sessionID)
}

func (LogSink) RoundStart(round int) {
	logx.Infof("round %d starting", round)
}

func (LogSink) RoundComplete(round int, snapshot []leaderboard.Entry) {
	logx.Infof("round %d complete, leader=%v", round, leaderOf(snapshot))
}

func (LogSink) CompetitionFinished(sessionID string, totalRounds int) {
	logx.Infof("session %s finished after %d rounds", sessionID, totalRounds)
}

func (LogSink) Error(round int, message string) {
	logx.Errorf("round %d error: %s", round, message)
}

func leaderOf(snapshot []leaderboard.Entry) string {
	if len(snapshot) == 0 {
		return "none"
	}
	return snapshot[0].ModelID
}

// Event is a single published lifecycle event, used by ChannelSink to
// buffer events for test assertions.
type Event struct {
	Kind       string
	Round      int
	SessionID  string
	Message    string
	Leaderboard []leaderboard.Entry
}

// ChannelSink buffers events onto a channel, for tests.
type ChannelSink struct {
	Events chan Event
}

// NewChannelSink constructs a ChannelSink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{Events: make(chan Event, buffer)}
}

func (c *ChannelSink) Started(sessionID string) {
	c.Events <- Event{Kind: "started", SessionID: sessionID}
}

func (c *ChannelSink) RoundStart(round int) {
	c.Events <- Event{Kind: "roundStart", Round: round}
}

func (c *ChannelSink) RoundComplete(round int, snapshot []leaderboard.Entry) {
	c.Events <- Event{Kind: "roundComplete", Round: round, Leaderboard: snapshot}
}

func (c *ChannelSink) CompetitionFinished(sessionID string, totalRounds int) {
	c.Events <- Event{Kind: "competitionFinished", SessionID: sessionID, Round: totalRounds}
}

func (c *ChannelSink) Error(round int, message string) {
	c.Events <- Event{Kind: "error", Round: round, Message: message}
}
