// Package deliver posts finished responses back to the originating channel.
package deliver

import (
	"context"
	"fmt"
	"unicode/utf8"

	"claw/internal/gateway"
)

// maxResponseChars is the threshold beyond which a response body is cut
// before posting. Discord rejects arbitrarily large messages; the cut is
// flagged both in the lead-in and with a suffix on the body.
const maxResponseChars = 3000

const truncationSuffix = "... (truncated)"

type Sink struct {
	chat gateway.Client
}

func NewSink(chat gateway.Client) *Sink {
	return &Sink{chat: chat}
}

// Deliver formats response for authorID and sends it to the channel. Send
// failures are returned to the caller; the sink never retries.
func (s *Sink) Deliver(ctx context.Context, channelID, authorID, response string) error {
	text, _ := Format(authorID, response)
	return s.chat.Send(ctx, channelID, text)
}

// Format renders the addressed reply with the response in a fenced block.
// The second return reports whether the response was truncated.
func Format(authorID, response string) (string, bool) {
	if len(response) > maxResponseChars {
		// Back off to a rune boundary so the cut never emits invalid UTF-8.
		cut := maxResponseChars
		for cut > 0 && !utf8.RuneStart(response[cut]) {
			cut--
		}
		body := response[:cut] + truncationSuffix
		return fmt.Sprintf("<@%s> Here's the result (truncated):\n```\n%s\n```", authorID, body), true
	}
	return fmt.Sprintf("<@%s> Here's the result:\n```\n%s\n```", authorID, response), false
}
