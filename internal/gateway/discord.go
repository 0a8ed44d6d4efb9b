package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"
)

const ackEmoji = "✅"

// EnqueueFunc receives every addressed inbound prompt. Returning an error
// suppresses the acknowledgment reaction.
type EnqueueFunc func(ctx context.Context, msg Message) error

// Discord is the real chat client: a discordgo gateway session plus the
// ingress handler that turns addressed messages into queued jobs.
type Discord struct {
	session *discordgo.Session
	enqueue EnqueueFunc
}

// NewDiscord builds a Discord client. proxyURL, when non-empty, is applied to
// both the REST client and the gateway websocket dialer.
func NewDiscord(token, proxyURL string, enqueue EnqueueFunc) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url %q: %w", proxyURL, err)
		}
		session.Client = &http.Client{
			Timeout:   60 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyURL(u)},
		}
		session.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyURL(u),
			HandshakeTimeout: 45 * time.Second,
		}
	}

	d := &Discord{session: session, enqueue: enqueue}
	session.AddHandler(d.onReady)
	session.AddHandler(d.onMessageCreate)
	return d, nil
}

// Open connects to the gateway and starts receiving events.
func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}

func (d *Discord) onReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("logged in", "user", r.User.Username, "id", r.User.ID)
}

// onMessageCreate is the ingress path: accept bot mentions and DMs, strip
// the mention markup, and enqueue the remainder as a job.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	self := s.State.User
	if self == nil || m.Author == nil || m.Author.ID == self.ID {
		return
	}

	dm := d.isDM(m.ChannelID)
	if !dm && !mentionsUser(m.Message, self.ID) {
		return
	}

	prompt := StripMentions(m.Content, self.ID)
	if prompt == "" {
		return
	}

	slog.Info("received prompt", "author", m.Author.Username, "channel", m.ChannelID, "len", len(prompt))

	err := d.enqueue(context.Background(), Message{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    prompt,
		DM:         dm,
	})
	if err != nil {
		slog.Error("enqueue prompt failed", "message", m.ID, "err", err)
		return
	}

	if err := s.MessageReactionAdd(m.ChannelID, m.ID, ackEmoji); err != nil {
		slog.Warn("ack reaction failed", "message", m.ID, "err", err)
	}
}

func (d *Discord) isDM(channelID string) bool {
	ch, err := d.session.State.Channel(channelID)
	if err != nil {
		ch, err = d.session.Channel(channelID)
		if err != nil {
			return false
		}
	}
	return ch.Type == discordgo.ChannelTypeDM
}

// ResolveChannel checks the state cache, then falls back to a REST fetch
// (which also primes the cache for the later send).
func (d *Discord) ResolveChannel(ctx context.Context, channelID string) error {
	if _, err := d.session.State.Channel(channelID); err == nil {
		return nil
	}
	if _, err := d.session.Channel(channelID); err != nil {
		return fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	return nil
}

func (d *Discord) Send(ctx context.Context, channelID, text string) error {
	if _, err := d.session.ChannelMessageSend(channelID, text); err != nil {
		return fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	return nil
}

// History returns up to limit recent messages, newest first, with Discord
// mention markup replaced by display names.
func (d *Discord) History(ctx context.Context, channelID string, limit int) ([]Message, error) {
	msgs, err := d.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("fetch history for channel %s: %w", channelID, err)
	}

	selfID := ""
	if d.session.State.User != nil {
		selfID = d.session.State.User.ID
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Author == nil {
			continue
		}
		out = append(out, Message{
			ID:         m.ID,
			ChannelID:  channelID,
			AuthorID:   m.Author.ID,
			AuthorName: m.Author.Username,
			Content:    m.ContentWithMentionsReplaced(),
			FromSelf:   selfID != "" && m.Author.ID == selfID,
		})
	}
	return out, nil
}

// StripMentions removes direct mentions of the given user from content and
// trims the result. Discord renders mentions as <@id> or <@!id>.
func StripMentions(content, userID string) string {
	content = strings.ReplaceAll(content, "<@"+userID+">", "")
	content = strings.ReplaceAll(content, "<@!"+userID+">", "")
	return strings.TrimSpace(content)
}

func mentionsUser(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}
