package mind

import "time"

// Speaker tags who produced an utterance.
type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

// BotName is the label bot-authored lines carry in history and channel logs.
const BotName = "Bot"

// Utterance is one line of session history.
type Utterance struct {
	Speaker Speaker `json:"speaker"`
	Name    string  `json:"name,omitempty"`
	Text    string  `json:"text"`
}

// Line renders the utterance as "name: text", using BotName for bot lines.
func (u Utterance) Line() string {
	name := u.Name
	if u.Speaker == SpeakerBot {
		name = BotName
	}
	return name + ": " + u.Text
}

// SessionKey identifies a conversation: one human in one channel.
type SessionKey struct {
	UserID    string
	ChannelID string
}

func (k SessionKey) valid() bool {
	return k.UserID != "" && k.ChannelID != ""
}

// Session is a read-only snapshot of per-(user, channel) dialogue state.
type Session struct {
	Key              SessionKey
	History          []Utterance
	LastActivity     time.Time
	MessageCount     int
	DisplayName      string
	PersonalityScore float64
	Topics           []string // sorted; accumulated only
}

// HistoryLines returns the last n history entries rendered as lines, oldest first.
func (s Session) HistoryLines(n int) []string {
	h := s.History
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	lines := make([]string, 0, len(h))
	for _, u := range h {
		lines = append(lines, u.Line())
	}
	return lines
}

// ChannelKind distinguishes guild channels from direct-message channels.
type ChannelKind int

const (
	ChannelGuild ChannelKind = iota
	ChannelDirect
)

// MessageEvent is the platform-neutral record of an inbound message.
// The platform adapter builds it; the core never sees raw platform objects.
type MessageEvent struct {
	MessageID    string
	AuthorID     string
	AuthorName   string
	AuthorIsBot  bool
	ChannelID    string
	ChannelKind  ChannelKind
	GuildID      string
	GuildName    string
	Text         string
	PromptText   string   // Text with bot mention tokens removed, valid when Stripped
	Stripped     bool     // PromptText is set, even if empty
	Mentions     []string // user ids mentioned in the message
	BotMentioned bool
}

// Key returns the session/guard key for the event.
func (e MessageEvent) Key() SessionKey {
	return SessionKey{UserID: e.AuthorID, ChannelID: e.ChannelID}
}

// Prompt returns the text to hand to generation.
func (e MessageEvent) Prompt() string {
	if e.Stripped {
		return e.PromptText
	}
	return e.Text
}

// IsDirect reports whether the message arrived in a direct-message channel.
func (e MessageEvent) IsDirect() bool {
	return e.ChannelKind == ChannelDirect
}

// Where names the guild for logs, or "DM".
func (e MessageEvent) Where() string {
	if e.IsDirect() || e.GuildName == "" {
		if e.GuildID == "" {
			return "DM"
		}
		return e.GuildID
	}
	return e.GuildName
}
