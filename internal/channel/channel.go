// Package channel holds the messaging entry points. Each channel receives
// user text, hands it to the routing handler, and delivers replies.
package channel

import (
	"context"
	"time"
)

// InboundMessage is a message received from a channel.
type InboundMessage struct {
	ChannelName string
	SenderID    string
	SenderName  string
	ChatID      string
	Text        string
	Timestamp   time.Time
}

// OutboundMessage is a message to send through a channel.
type OutboundMessage struct {
	ChatID string
	Text   string
}

// Channel is the interface for messaging integrations.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	OnMessage(handler func(InboundMessage))
	IsRunning() bool
}

// ChunkWriter is implemented by channels that can deliver a reply
// incrementally as it streams from the provider. Channels without it get the
// aggregated reply through Send.
type ChunkWriter interface {
	SendChunk(ctx context.Context, chatID, content string) error
	EndStream(ctx context.Context, chatID string) error
}
