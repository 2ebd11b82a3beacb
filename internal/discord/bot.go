package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/server-chatter/internal/logging"
	"github.com/keshon/server-chatter/internal/mind"
	"github.com/keshon/server-chatter/internal/persona"
	"github.com/keshon/server-chatter/internal/webhook"
)

const (
	DefaultReactionBackChance = 0.3
	DefaultWelcomeChance      = 0.1
	DefaultStatusInterval     = 30 * time.Minute

	welcomeChannel = "general"
	notifyTimeout  = 10 * time.Second
)

// MessageHandler consumes translated message events.
type MessageHandler interface {
	HandleMessage(ctx context.Context, ev mind.MessageEvent) mind.Result
}

// Options configures a Bot. Zero values take defaults.
type Options struct {
	Book               *persona.Book
	Rand               mind.Rand
	Notifier           *webhook.Notifier
	StatusInterval     time.Duration
	ReactionBackChance float64
	WelcomeChance      float64
}

// Bot is the Discord side of the chatter: it owns the gateway session,
// translates events for the core and performs the cosmetic extras.
type Bot struct {
	dg       *discordgo.Session
	book     *persona.Book
	rand     mind.Rand
	notifier *webhook.Notifier
	opts     Options
	log      zerolog.Logger

	ctx     context.Context
	handler MessageHandler

	mu     sync.Mutex
	guilds map[string]struct{}

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates the gateway session without connecting.
func New(token string, opts Options) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if opts.Book == nil {
		opts.Book = persona.Default()
	}
	if opts.Rand == nil {
		opts.Rand = mind.DefaultRand()
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = DefaultStatusInterval
	}
	if opts.ReactionBackChance == 0 {
		opts.ReactionBackChance = DefaultReactionBackChance
	}
	if opts.WelcomeChance == 0 {
		opts.WelcomeChance = DefaultWelcomeChance
	}
	return &Bot{
		dg:       dg,
		book:     opts.Book,
		rand:     opts.Rand,
		notifier: opts.Notifier,
		opts:     opts,
		log:      logging.Component("discord"),
		ctx:      context.Background(),
		guilds:   make(map[string]struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Platform returns the delivery side of the session for the core.
func (b *Bot) Platform() mind.Platform { return sender{s: b.dg} }

// Ready is closed after the first gateway Ready event.
func (b *Bot) Ready() <-chan struct{} { return b.ready }

// Run connects, dispatches events to h and blocks until ctx ends.
func (b *Bot) Run(ctx context.Context, h MessageHandler) error {
	b.ctx = ctx
	b.handler = h

	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onMessageReactionAdd)
	b.dg.AddHandler(b.onGuildMemberAdd)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onGuildDelete)
	b.dg.AddHandler(b.onDisconnect)
	b.dg.AddHandler(b.onRateLimit)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-b.ready:
		case <-ctx.Done():
			return
		}
		newStatusRotator(b.dg, b.rand, b.book.Statuses, b.opts.StatusInterval, b.log).Run(ctx)
	}()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing gateway")
	wg.Wait()
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentsMessageContent
}

// recoverHandler logs a panic from a gateway handler instead of crashing.
func (b *Bot) recoverHandler(name string) {
	if r := recover(); r != nil {
		b.log.Error().Str("handler", name).Interface("panic", r).Msg("event handler crashed")
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	defer b.recoverHandler("ready")

	b.mu.Lock()
	for _, g := range r.Guilds {
		b.guilds[g.ID] = struct{}{}
	}
	b.mu.Unlock()

	b.log.Info().
		Str("bot", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("discord bot is running")

	if name, err := setWatching(s, b.rand, b.book.StartupStatuses); err != nil {
		b.log.Warn().Err(err).Msg("failed to set startup status")
	} else {
		b.log.Debug().Str("status", name).Msg("startup status set")
	}

	b.readyOnce.Do(func() { close(b.ready) })
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.recoverHandler("message_create")

	if m.Author == nil || b.handler == nil {
		return
	}
	botID := selfID(s)
	if m.Author.ID == botID {
		return
	}

	guildName := ""
	if m.GuildID != "" {
		if g, err := s.State.Guild(m.GuildID); err == nil {
			guildName = g.Name
		}
	}

	ev := toMessageEvent(m.Message, botID, guildName)
	res := b.handler.HandleMessage(b.ctx, ev)
	b.log.Trace().Str("message", ev.MessageID).Stringer("result", res).Msg("message handled")
}

func (b *Bot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	defer b.recoverHandler("reaction_add")

	botID := selfID(s)
	if r.UserID == botID || reactorIsBot(s, r) {
		return
	}

	msg, err := s.State.Message(r.ChannelID, r.MessageID)
	if err != nil {
		msg, err = s.ChannelMessage(r.ChannelID, r.MessageID)
		if err != nil {
			b.log.Debug().Err(err).Str("message", r.MessageID).Msg("reacted message not found")
			return
		}
	}
	if msg.Author == nil || msg.Author.ID != botID {
		return
	}

	if b.rand.Float64() >= b.opts.ReactionBackChance {
		return
	}
	emoji := persona.Pick(b.rand, b.book.ReactionBack)
	if err := s.MessageReactionAdd(r.ChannelID, r.MessageID, emoji); err != nil {
		b.log.Debug().Err(err).Str("emoji", emoji).Msg("reaction back failed")
	}
}

func reactorIsBot(s *discordgo.Session, r *discordgo.MessageReactionAdd) bool {
	if r.Member != nil && r.Member.User != nil {
		return r.Member.User.Bot
	}
	u, err := s.User(r.UserID)
	if err != nil {
		return false
	}
	return u.Bot
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	defer b.recoverHandler("member_add")

	if m.Member == nil || m.User == nil {
		return
	}
	if b.rand.Float64() >= b.opts.WelcomeChance {
		return
	}

	var channels []*discordgo.Channel
	if g, err := s.State.Guild(m.GuildID); err == nil {
		channels = g.Channels
	} else if channels, err = s.GuildChannels(m.GuildID); err != nil {
		b.log.Debug().Err(err).Str("guild", m.GuildID).Msg("cannot list channels for welcome")
		return
	}
	channelID, ok := findChannelByName(channels, welcomeChannel)
	if !ok {
		return
	}

	line := b.book.WelcomeLine(b.rand, m.User.Mention())
	if _, err := s.ChannelMessageSend(channelID, line); err != nil {
		b.log.Debug().Err(err).Str("guild", m.GuildID).Msg("welcome failed")
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	defer b.recoverHandler("guild_create")

	if g.Guild == nil || g.Unavailable {
		return
	}

	b.mu.Lock()
	_, known := b.guilds[g.ID]
	b.guilds[g.ID] = struct{}{}
	total := len(b.guilds)
	b.mu.Unlock()

	if known {
		return
	}
	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("bot added to guild")
	b.notify(webhook.Joined, guildStats(g.Guild, total))
}

func (b *Bot) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	defer b.recoverHandler("guild_delete")

	if g.Guild == nil || g.Unavailable {
		// outage, not a removal
		return
	}

	b.mu.Lock()
	delete(b.guilds, g.ID)
	total := len(b.guilds)
	b.mu.Unlock()

	info := g.Guild
	if g.BeforeDelete != nil {
		info = g.BeforeDelete
	}
	b.log.Info().Str("guild", g.ID).Str("name", info.Name).Msg("bot removed from guild")
	b.notify(webhook.Left, guildStats(info, total))
}

func (b *Bot) notify(ev webhook.Event, stats webhook.GuildStats) {
	if !b.notifier.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, notifyTimeout)
	defer cancel()
	if err := b.notifier.Notify(ctx, ev, stats); err != nil {
		b.log.Warn().Err(err).Str("guild", stats.ID).Msg("webhook notify failed")
	}
}

func (b *Bot) onDisconnect(s *discordgo.Session, _ *discordgo.Disconnect) {
	b.log.Error().Msg("gateway disconnected")
}

func (b *Bot) onRateLimit(s *discordgo.Session, r *discordgo.RateLimit) {
	ev := b.log.Warn()
	if r.TooManyRequests != nil {
		ev = ev.Dur("retry_after", r.RetryAfter)
	}
	ev.Str("url", r.URL).Msg("rate limited by discord")
}

func guildStats(g *discordgo.Guild, total int) webhook.GuildStats {
	return webhook.GuildStats{
		Name:        g.Name,
		ID:          g.ID,
		MemberCount: g.MemberCount,
		OwnerID:     g.OwnerID,
		TotalGuilds: total,
	}
}

func selfID(s *discordgo.Session) string {
	if s.State == nil || s.State.User == nil {
		return ""
	}
	return s.State.User.ID
}
