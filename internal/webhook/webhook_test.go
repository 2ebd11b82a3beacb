package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stats = GuildStats{Name: "Cozy Corner", ID: "123", MemberCount: 42, OwnerID: "999", TotalGuilds: 7}

func TestBuildEmbed(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	join := BuildEmbed(Joined, stats, at)
	assert.Equal(t, ColorJoin, join.Color)
	assert.Equal(t, "2024-05-01T12:00:00Z", join.Timestamp)
	require.Len(t, join.Fields, 5)
	assert.Equal(t, "Cozy Corner", join.Fields[0].Value)
	assert.Equal(t, "123", join.Fields[1].Value)
	assert.Equal(t, "42", join.Fields[2].Value)
	assert.Equal(t, "999", join.Fields[3].Value)
	assert.Equal(t, "7", join.Fields[4].Value)

	leave := BuildEmbed(Left, GuildStats{}, at)
	assert.Equal(t, ColorLeave, leave.Color)
	assert.NotEqual(t, join.Title, leave.Title)
	assert.Equal(t, "unknown", leave.Fields[0].Value)
}

func TestNotifyPostsEmbed(t *testing.T) {
	var got discordgo.WebhookParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, srv.Client())
	require.NoError(t, n.Notify(context.Background(), Joined, stats))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, ColorJoin, got.Embeds[0].Color)
	assert.Equal(t, "42", got.Embeds[0].Fields[2].Value)
}

func TestNotifyStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Notify(context.Background(), Left, stats)
	assert.ErrorContains(t, err, "400")
}

func TestDisabledNotifier(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	n := New("", srv.Client())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), Joined, stats))
	assert.Zero(t, hits.Load())

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}
