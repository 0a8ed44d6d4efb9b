// Package gateway connects claw to the chat service. The scheduler and its
// collaborators only see the Client interface; the Discord implementation
// lives in discord.go.
package gateway

import "context"

// Message is one chat message as the rest of the daemon sees it: rendered
// content with mention markup already replaced.
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	FromSelf   bool
	DM         bool
}

// Client is the outbound capability surface the job pipeline needs.
type Client interface {
	// ResolveChannel checks that a channel can be delivered to, consulting
	// local state first and falling back to a remote fetch.
	ResolveChannel(ctx context.Context, channelID string) error

	// Send posts text to a channel.
	Send(ctx context.Context, channelID, text string) error

	// History returns up to limit recent messages from a channel,
	// newest first.
	History(ctx context.Context, channelID string, limit int) ([]Message, error)
}
