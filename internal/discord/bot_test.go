package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-chatter/internal/mind"
	"github.com/keshon/server-chatter/internal/webhook"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []mind.MessageEvent
}

func (h *recordingHandler) HandleMessage(_ context.Context, ev mind.MessageEvent) mind.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return mind.ResultIgnored
}

type hookRecorder struct {
	mu     sync.Mutex
	embeds []*discordgo.MessageEmbed
}

func (h *hookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p discordgo.WebhookParams
	_ = json.NewDecoder(r.Body).Decode(&p)
	h.mu.Lock()
	h.embeds = append(h.embeds, p.Embeds...)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func newTestBot(t *testing.T, notifier *webhook.Notifier) *Bot {
	t.Helper()
	b, err := New("test-token", Options{Notifier: notifier, Rand: mind.NewRand(1)})
	require.NoError(t, err)
	b.dg.State.User = &discordgo.User{ID: botID, Username: "chatter"}
	return b
}

func TestOnMessageCreateTranslates(t *testing.T) {
	b := newTestBot(t, nil)
	h := &recordingHandler{}
	b.handler = h

	b.onMessageCreate(b.dg, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m1", ChannelID: "c1", GuildID: "g1",
		Content:  "<@!42> hey",
		Author:   &discordgo.User{ID: "u1", Username: "alice"},
		Mentions: []*discordgo.User{{ID: botID}},
	}})
	// own messages never reach the core
	b.onMessageCreate(b.dg, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m2", ChannelID: "c1", GuildID: "g1",
		Content: "my own reply",
		Author:  &discordgo.User{ID: botID, Bot: true},
	}})

	require.Len(t, h.events, 1)
	ev := h.events[0]
	assert.True(t, ev.BotMentioned)
	assert.Equal(t, "hey", ev.Prompt())
	assert.Equal(t, "alice", ev.AuthorName)
}

func TestGuildJoinLeaveNotifies(t *testing.T) {
	rec := &hookRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	b := newTestBot(t, webhook.New(srv.URL, srv.Client()))

	b.onReady(b.dg, &discordgo.Ready{
		User:   &discordgo.User{ID: botID, Username: "chatter"},
		Guilds: []*discordgo.Guild{{ID: "g1"}, {ID: "g2"}},
	})
	select {
	case <-b.Ready():
	default:
		t.Fatal("ready channel not closed")
	}

	// guilds from Ready arriving as GuildCreate are not joins
	b.onGuildCreate(b.dg, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1", Name: "Old"}})
	b.onGuildCreate(b.dg, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g3", Name: "New", MemberCount: 5, OwnerID: "o3"}})
	b.onGuildDelete(b.dg, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g2", Unavailable: true}})
	b.onGuildDelete(b.dg, &discordgo.GuildDelete{
		Guild:        &discordgo.Guild{ID: "g1"},
		BeforeDelete: &discordgo.Guild{ID: "g1", Name: "Old", MemberCount: 9},
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.embeds, 2)

	join := rec.embeds[0]
	assert.Equal(t, webhook.ColorJoin, join.Color)
	assert.Equal(t, "New", join.Fields[0].Value)
	assert.Equal(t, "3", join.Fields[4].Value)

	leave := rec.embeds[1]
	assert.Equal(t, webhook.ColorLeave, leave.Color)
	assert.Equal(t, "Old", leave.Fields[0].Value)
	assert.Equal(t, "9", leave.Fields[2].Value)
	assert.Equal(t, "2", leave.Fields[4].Value)
}

func TestHandlerPanicIsContained(t *testing.T) {
	b := newTestBot(t, nil)
	b.handler = panicHandler{}
	assert.NotPanics(t, func() {
		b.onMessageCreate(b.dg, &discordgo.MessageCreate{Message: &discordgo.Message{
			ChannelID: "c1",
			Author:    &discordgo.User{ID: "u1"},
		}})
	})
}

type panicHandler struct{}

func (panicHandler) HandleMessage(context.Context, mind.MessageEvent) mind.Result {
	panic("unexpected")
}
