package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// messenger is the part of *discordgo.Session the delivery path uses.
type messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// sender implements mind.Platform on top of a discordgo session.
type sender struct {
	s messenger
}

func (p sender) Typing(ctx context.Context, channelID string) error {
	if err := p.s.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("typing in %s: %w", channelID, err)
	}
	return nil
}

func (p sender) React(ctx context.Context, channelID, messageID, emoji string) error {
	if err := p.s.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("react %s on %s: %w", emoji, messageID, err)
	}
	return nil
}

// Reply answers messageID as a threaded reply. mentionAuthor controls whether
// the replied-to user is pinged.
func (p sender) Reply(ctx context.Context, channelID, messageID, text string, mentionAuthor bool) error {
	_, err := p.s.ChannelMessageSendComplex(channelID, replyMessage(channelID, messageID, text, mentionAuthor), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("reply in %s: %w", channelID, err)
	}
	return nil
}

func (p sender) Send(ctx context.Context, channelID, text string) error {
	if _, err := p.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send to %s: %w", channelID, err)
	}
	return nil
}

func replyMessage(channelID, messageID, text string, mentionAuthor bool) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: text,
		Reference: &discordgo.MessageReference{
			MessageID: messageID,
			ChannelID: channelID,
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{
				discordgo.AllowedMentionTypeUsers,
				discordgo.AllowedMentionTypeRoles,
			},
			RepliedUser: mentionAuthor,
		},
	}
}
