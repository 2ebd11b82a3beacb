package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-chatter/internal/mind"
)

// toMessageEvent translates a gateway message into the core's record.
// botID is the bot's own user id; guildName may be empty.
func toMessageEvent(m *discordgo.Message, botID, guildName string) mind.MessageEvent {
	ev := mind.MessageEvent{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		GuildName: guildName,
		Text:      m.Content,
	}
	if m.GuildID == "" {
		ev.ChannelKind = mind.ChannelDirect
	}
	if m.Author != nil {
		ev.AuthorID = m.Author.ID
		ev.AuthorIsBot = m.Author.Bot
		ev.AuthorName = displayName(m.Author, m.Member)
	}
	for _, u := range m.Mentions {
		if u == nil {
			continue
		}
		ev.Mentions = append(ev.Mentions, u.ID)
		if botID != "" && u.ID == botID {
			ev.BotMentioned = true
		}
	}
	if ev.BotMentioned {
		ev.PromptText = stripMention(m.Content, botID)
		ev.Stripped = true
	}
	return ev
}

// stripMention removes both mention spellings of id from text.
func stripMention(text, id string) string {
	text = strings.ReplaceAll(text, "<@"+id+">", "")
	text = strings.ReplaceAll(text, "<@!"+id+">", "")
	return strings.TrimSpace(text)
}

// displayName prefers the guild nickname, then the global name, then the username.
func displayName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// findChannelByName returns the id of the first text channel called name.
func findChannelByName(channels []*discordgo.Channel, name string) (string, bool) {
	for _, ch := range channels {
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if strings.EqualFold(ch.Name, name) {
			return ch.ID, true
		}
	}
	return "", false
}
