package mind

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-chatter/internal/ai"
	"github.com/keshon/server-chatter/internal/persona"
)

type harness struct {
	rand     *scriptedRand
	store    *Store
	platform *fakePlatform
	guard    *Guard
	composer *Composer
	engine   *Engine
}

func newHarness(r *scriptedRand, gen ai.Generator) *harness {
	h := &harness{
		rand:     r,
		store:    NewStore(StoreOptions{Rand: r}),
		platform: &fakePlatform{},
		guard:    NewGuard(),
	}
	book := persona.Default()
	h.composer = NewComposer(h.store, gen, h.platform, book, r, DefaultCosmeticConfig())
	h.engine = NewEngine(EngineOptions{
		Store:    h.store,
		Guard:    h.guard,
		Decider:  NewDecider(DefaultDecisionConfig(), r, atHour(15)),
		Composer: h.composer,
		Platform: h.platform,
		Book:     book,
	})
	return h
}

func TestComposerFallbackOnStatusError(t *testing.T) {
	// floats: personality score, reaction (hit), personality phrase (miss), reply (hit)
	// ints: max tokens, fallback pick, emoji pick
	r := script([]float64{0.5, 0.1, 0.5, 0.6}, 20, 0, 2)

	var got ai.Request
	gen := generatorFunc(func(_ context.Context, req ai.Request) (string, error) {
		got = req
		return "", &ai.StatusError{Code: 503, Body: "loading"}
	})
	h := newHarness(r, gen)

	ev := guildMessage("u1", "c1", "<@42> What do you think about this?")
	ev.PromptText = "What do you think about this?"
	ev.Stripped = true
	ev.BotMentioned = true

	out := h.composer.Respond(context.Background(), ev, zerolog.Nop())

	circuits := persona.Default().Fallbacks.Status[0]
	assert.Equal(t, ai.FailureStatus, out.Failure)
	assert.Equal(t, circuits, out.Reply)
	assert.Equal(t, []string{"reaction"}, out.Features)
	assert.Equal(t, "✨", out.Reaction)
	assert.True(t, out.Threaded)
	assert.True(t, out.Delivered)

	assert.Equal(t, 100, got.MaxNewTokens)
	assert.InDelta(t, 0.9, got.Temperature, 1e-12)
	assert.True(t, strings.HasSuffix(got.Prompt, "Human (u1): What do you think about this?\nAI:"))

	replies, sends, reactions := h.platform.snapshot()
	require.Len(t, replies, 1)
	assert.Empty(t, sends)
	assert.Equal(t, circuits, replies[0].Text)
	assert.True(t, replies[0].Mention)
	assert.Equal(t, []string{"✨"}, reactions)

	sess := h.store.GetOrCreate("u1", "c1")
	require.Len(t, sess.History, 2)
	assert.Equal(t, "u1: <@42> What do you think about this?", sess.History[0].Line())
	assert.Equal(t, Utterance{Speaker: SpeakerBot, Name: "u1", Text: circuits}, sess.History[1])
	assert.True(t, h.store.Channels().RecentBotActivity("c1", 5))

	floats, ints := r.remaining()
	assert.Zero(t, floats)
	assert.Zero(t, ints)
}

func TestComposerFallbackFamilies(t *testing.T) {
	book := persona.Default()
	tests := []struct {
		name string
		err  error
		kind ai.FailureKind
		want []string
	}{
		{"empty", ai.ErrEmptyReply, ai.FailureEmpty, book.Fallbacks.Empty},
		{"status", &ai.StatusError{Code: 500}, ai.FailureStatus, book.Fallbacks.Status},
		{"timeout", context.DeadlineExceeded, ai.FailureTimeout, book.Fallbacks.Timeout},
		{"exception", errors.New("boom"), ai.FailureException, book.Fallbacks.Exception},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := generatorFunc(func(context.Context, ai.Request) (string, error) { return "", tt.err })
			h := newHarness(script(nil, 0, 0), gen)
			out := h.composer.Respond(context.Background(), guildMessage("u1", "c1", "hi"), zerolog.Nop())
			assert.Equal(t, tt.kind, out.Failure)
			assert.Equal(t, tt.want[0], out.Reply)
		})
	}
}

func TestComposerAllCosmetics(t *testing.T) {
	// ints: max tokens, emoji, category (thinking), phrase
	r := script([]float64{0.5, 0.0, 0.0, 0.0}, 0, 0, 1, 0)
	h := newHarness(r, replyWith("Sure thing, happy to help."))

	out := h.composer.Respond(context.Background(), guildMessage("u1", "c1", "any tips?"), zerolog.Nop())

	assert.Equal(t, ai.FailureNone, out.Failure)
	assert.Equal(t, []string{"reaction", "personality"}, out.Features)
	assert.Equal(t, "thinking", out.Category)
	assert.Equal(t, "Hmm, interesting... Sure thing, happy to help.", out.Reply)
	assert.Equal(t, "Sure thing, happy to help.", out.Generated)

	replies, _, reactions := h.platform.snapshot()
	require.Len(t, replies, 1)
	assert.False(t, replies[0].Mention, "no ping when the bot was not mentioned")
	assert.Equal(t, []string{"🤖"}, reactions)

	sess := h.store.GetOrCreate("u1", "c1")
	assert.Equal(t, "Bot: Sure thing, happy to help.", sess.HistoryLines(1)[0])
}

func TestComposerNoCosmetics(t *testing.T) {
	r := script([]float64{0.5, 0.9, 0.9, 0.9}, 100)
	var got ai.Request
	h := newHarness(r, generatorFunc(func(_ context.Context, req ai.Request) (string, error) {
		got = req
		return "Plain answer here.", nil
	}))

	ev := guildMessage("u1", "c1", "hello")
	ev.ChannelKind = ChannelDirect
	out := h.composer.Respond(context.Background(), ev, zerolog.Nop())

	assert.Empty(t, out.Features)
	assert.False(t, out.Threaded)
	assert.Equal(t, ai.MaxNewTokens, got.MaxNewTokens)

	replies, sends, reactions := h.platform.snapshot()
	assert.Empty(t, replies)
	assert.Empty(t, reactions)
	require.Len(t, sends, 1)
	assert.Equal(t, "Plain answer here.", sends[0].Text)
	assert.Equal(t, 1, h.platform.typing)
}

func TestComposerPromptUsesRecentHistory(t *testing.T) {
	var prompts []string
	gen := generatorFunc(func(_ context.Context, req ai.Request) (string, error) {
		prompts = append(prompts, req.Prompt)
		return "Reply number one.", nil
	})
	h := newHarness(script([]float64{0.25}), gen)

	for _, text := range []string{"first", "second", "third"} {
		h.composer.Respond(context.Background(), guildMessage("u1", "c1", text), zerolog.Nop())
	}

	// score 0.775 => no tone prefix; last four lines include the current message
	want := "Bot: Reply number one.\nu1: second\nBot: Reply number one.\nu1: third\nHuman (u1): third\nAI:"
	assert.Equal(t, want, prompts[2])
}

func TestComposerDeliveryErrorsAreSwallowed(t *testing.T) {
	r := script([]float64{0.5, 0.0, 0.9, 0.0})
	h := newHarness(r, replyWith("This reply will not arrive."))
	h.platform.reactErr = errors.New("missing permissions")
	h.platform.replyErr = errors.New("unknown channel")

	out := h.composer.Respond(context.Background(), guildMessage("u1", "c1", "hello"), zerolog.Nop())
	assert.False(t, out.Delivered)
	assert.Empty(t, out.Features)

	sess := h.store.GetOrCreate("u1", "c1")
	assert.Len(t, sess.History, 2, "history is recorded even when delivery fails")
}

func TestEngineIgnoresUnaddressedMessage(t *testing.T) {
	h := newHarness(script([]float64{0.99}), replyWith("unused reply"))

	res := h.engine.HandleMessage(context.Background(), guildMessage("u1", "c1", "hello"))
	assert.Equal(t, ResultIgnored, res)

	replies, sends, _ := h.platform.snapshot()
	assert.Empty(t, replies)
	assert.Empty(t, sends)
	assert.Equal(t, 0, h.store.Len())
}

func TestEngineIgnoresBots(t *testing.T) {
	h := newHarness(script(nil), replyWith("unused reply"))
	ev := guildMessage("b1", "c1", "hey bot")
	ev.AuthorIsBot = true
	assert.Equal(t, ResultIgnored, h.engine.HandleMessage(context.Background(), ev))
}

func TestEngineDropsConcurrentMessageForSameKey(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	gen := generatorFunc(func(ctx context.Context, req ai.Request) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return "Finally, an answer.", nil
	})
	h := newHarness(script(nil), gen)

	first := guildMessage("u1", "c1", "hey bot, question")
	second := guildMessage("u1", "c1", "hey bot, another one")

	done := make(chan Result, 1)
	go func() { done <- h.engine.HandleMessage(context.Background(), first) }()

	<-started
	assert.Equal(t, ResultDropped, h.engine.HandleMessage(context.Background(), second))

	other := guildMessage("u2", "c1", "just chatting")
	assert.Equal(t, ResultIgnored, h.engine.HandleMessage(context.Background(), other))

	close(release)
	select {
	case res := <-done:
		assert.Equal(t, ResultResponded, res)
	case <-time.After(5 * time.Second):
		t.Fatal("first flow did not finish")
	}

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.Equal(t, 0, h.guard.Len())

	sess := h.store.GetOrCreate("u1", "c1")
	assert.Len(t, sess.History, 2, "dropped message is not recorded")
}

func TestEngineRecoversPanicWithApology(t *testing.T) {
	gen := generatorFunc(func(context.Context, ai.Request) (string, error) {
		panic("generator exploded")
	})
	h := newHarness(script(nil), gen)

	ev := guildMessage("u1", "c1", "hey bot")
	assert.Equal(t, ResultFailed, h.engine.HandleMessage(context.Background(), ev))

	_, sends, _ := h.platform.snapshot()
	require.Len(t, sends, 1)
	assert.Equal(t, persona.Default().Apology, sends[0].Text)

	assert.Equal(t, 0, h.guard.Len())
	assert.True(t, h.guard.TryAcquire(ev.Key()))
}

func TestEngineRespondsToMention(t *testing.T) {
	h := newHarness(script([]float64{0.5}), replyWith("Happy to chat!"))

	ev := guildMessage("u1", "c1", "<@42> What do you think about this?")
	ev.BotMentioned = true
	assert.Equal(t, ResultResponded, h.engine.HandleMessage(context.Background(), ev))

	_, sends, _ := h.platform.snapshot()
	require.Len(t, sends, 1)
	assert.Equal(t, "Happy to chat!", sends[0].Text)
	assert.Equal(t, 0, h.guard.Len())
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "dropped", ResultDropped.String())
	assert.Equal(t, "result(9)", Result(9).String())
}
