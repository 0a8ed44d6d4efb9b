// Package prompt assembles the augmented prompt handed to the worker tool:
// recent channel history followed by the user's request.
package prompt

import (
	"context"
	"log/slog"
	"strings"

	"claw/internal/gateway"
)

// historyLimit is the number of recent messages included as context. The
// rendered header names this count, so they must move together.
const historyLimit = 20

const (
	historyHeader  = "Chat History (last 20 messages):"
	historyTrailer = "Based on the above context, please respond to the latest request:"
)

type Builder struct {
	chat gateway.Client
	// botLabel is the speaker label for the bot's own prior messages,
	// normally the worker tool's display name.
	botLabel string
}

func NewBuilder(chat gateway.Client, botLabel string) *Builder {
	return &Builder{chat: chat, botLabel: botLabel}
}

// Build returns prompt prefixed with rendered channel history. History
// failures are logged and degrade to the unaugmented prompt; they never fail
// the job.
func (b *Builder) Build(ctx context.Context, channelID, prompt string) string {
	msgs, err := b.chat.History(ctx, channelID, historyLimit)
	if err != nil {
		slog.Warn("history fetch failed, using raw prompt", "channel", channelID, "err", err)
		return prompt
	}

	lines := b.renderLines(msgs)
	if len(lines) == 0 {
		return prompt
	}

	var sb strings.Builder
	sb.WriteString(historyHeader)
	sb.WriteString("\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(historyTrailer)
	sb.WriteString("\n")
	sb.WriteString(prompt)
	return sb.String()
}

// renderLines converts a newest-first history into oldest-first
// "<speaker>: <content>" lines, dropping messages whose rendered content is
// empty.
func (b *Builder) renderLines(msgs []gateway.Message) []string {
	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		label := m.AuthorName
		if m.FromSelf {
			label = b.botLabel
		}
		lines = append(lines, label+": "+content)
	}
	return lines
}
