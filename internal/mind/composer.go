package mind

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/keshon/server-chatter/internal/ai"
	"github.com/keshon/server-chatter/internal/persona"
)

// Platform is what the core needs from the chat platform. Every call is best
// effort; the composer logs failures and carries on.
type Platform interface {
	Typing(ctx context.Context, channelID string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	Reply(ctx context.Context, channelID, messageID, text string, mentionAuthor bool) error
	Send(ctx context.Context, channelID, text string) error
}

// CosmeticConfig holds the independent probabilities applied to each reply.
type CosmeticConfig struct {
	ReactionChance    float64
	PersonalityChance float64
	ReplyChance       float64 // threaded reply; otherwise a plain channel post
}

// DefaultCosmeticConfig returns 20% reaction, 15% personality phrase, 70% reply.
func DefaultCosmeticConfig() CosmeticConfig {
	return CosmeticConfig{
		ReactionChance:    0.2,
		PersonalityChance: 0.15,
		ReplyChance:       0.7,
	}
}

// Outcome describes what one response flow did.
type Outcome struct {
	Generated string         // reply as generated or substituted, recorded in history
	Reply     string         // text actually delivered
	Failure   ai.FailureKind // set when a fallback phrase was used
	Reaction  string
	Category  string
	Threaded  bool
	Delivered bool
	Features  []string
}

// Composer builds and delivers one reply. It assumes the caller already holds
// the guard for the event's key.
type Composer struct {
	store    *Store
	gen      ai.Generator
	platform Platform
	book     *persona.Book
	rand     Rand
	cfg      CosmeticConfig
}

// NewComposer wires a composer. A nil book takes persona defaults.
func NewComposer(store *Store, gen ai.Generator, platform Platform, book *persona.Book, r Rand, cfg CosmeticConfig) *Composer {
	if book == nil {
		book = persona.Default()
	}
	if r == nil {
		r = DefaultRand()
	}
	return &Composer{
		store:    store,
		gen:      gen,
		platform: platform,
		book:     book,
		rand:     r,
		cfg:      cfg,
	}
}

// BuildRequest renders the generation request for a session and inbound text.
func BuildRequest(sess Session, userName, text string, r Rand) ai.Request {
	return ai.Request{
		Prompt:       ai.BuildPrompt(sess.HistoryLines(ai.ContextLines), sess.PersonalityScore, userName, text),
		MaxNewTokens: intBetween(r, ai.MinNewTokens, ai.MaxNewTokens),
		Temperature:  ai.Temperature(sess.PersonalityScore),
	}
}

// Respond records the inbound message, generates (or substitutes) a reply,
// records it as bot-authored and delivers it with cosmetic variation.
func (c *Composer) Respond(ctx context.Context, ev MessageEvent, log zerolog.Logger) Outcome {
	var out Outcome

	if err := c.platform.Typing(ctx, ev.ChannelID); err != nil {
		log.Debug().Err(err).Msg("typing indicator failed")
	}

	c.store.AppendMessage(ev.AuthorID, ev.ChannelID, ev.AuthorName, ev.Text, false)
	sess := c.store.GetOrCreate(ev.AuthorID, ev.ChannelID)

	req := BuildRequest(sess, ev.AuthorName, ev.Prompt(), c.rand)
	log.Debug().
		Int("max_new_tokens", req.MaxNewTokens).
		Float64("temperature", req.Temperature).
		Int("prompt_len", len(req.Prompt)).
		Msg("generation request")

	text, err := c.gen.Generate(ctx, req)
	if err != nil {
		out.Failure = ai.ClassifyFailure(err)
		text = persona.Pick(c.rand, c.book.Fallbacks.For(string(out.Failure)))
		log.Warn().Err(err).Str("fallback", string(out.Failure)).Msg("using fallback reply")
	}
	out.Generated = text

	c.store.AppendMessage(ev.AuthorID, ev.ChannelID, ev.AuthorName, text, true)

	if c.rand.Float64() < c.cfg.ReactionChance {
		emoji := persona.Pick(c.rand, c.book.Reactions)
		if err := c.platform.React(ctx, ev.ChannelID, ev.MessageID, emoji); err != nil {
			log.Debug().Err(err).Str("emoji", emoji).Msg("reaction failed")
		} else {
			out.Reaction = emoji
			out.Features = append(out.Features, "reaction")
		}
	}

	if c.rand.Float64() < c.cfg.PersonalityChance {
		category, phrase := c.book.PersonalityPhrase(c.rand)
		if phrase != "" {
			text = phrase + " " + text
			out.Category = category
			out.Features = append(out.Features, "personality")
		}
	}
	out.Reply = text

	if c.rand.Float64() < c.cfg.ReplyChance {
		out.Threaded = true
		mention := ev.BotMentioned && !ev.IsDirect()
		err = c.platform.Reply(ctx, ev.ChannelID, ev.MessageID, text, mention)
	} else {
		err = c.platform.Send(ctx, ev.ChannelID, text)
	}
	if err != nil {
		log.Warn().Err(err).Bool("threaded", out.Threaded).Msg("delivery failed")
		return out
	}
	out.Delivered = true
	return out
}
